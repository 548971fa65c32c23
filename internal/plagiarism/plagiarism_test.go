package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLoader struct {
	texts  map[string]string
	failed map[string]error
}

func (l *mapLoader) LoadText(_ context.Context, id string) (string, error) {
	if err, ok := l.failed[id]; ok {
		return "", err
	}
	text, ok := l.texts[id]
	if !ok {
		return "", fmt.Errorf("document %s not found", id)
	}
	return text, nil
}

func sampleTexts() map[string]string {
	return map[string]string{
		"student1.txt": "The quick brown fox jumps over the lazy dog. This is a common sentence used in typography.\n" +
			"Machine learning is a subset of artificial intelligence that enables computers to learn without being explicitly programmed.\n" +
			"Data structures and algorithms are fundamental concepts in computer science.",
		"student2.txt": "A quick brown fox jumps over the lazy dog. This sentence is commonly used in typography and design.\n" +
			"Machine learning represents a subset of artificial intelligence allowing computers to learn without explicit programming.\n" +
			"Fundamental concepts in computer science include data structures and algorithms.",
		"student3.txt": "The weather today is quite pleasant with sunny skies and mild temperatures.\n" +
			"Blockchain technology has revolutionized the way we think about digital transactions and security.",
		"student4.txt": "The quick brown fox jumps over the lazy dog. This is a common sentence used in typography.\n" +
			"Artificial intelligence and machine learning are transforming various industries.\n" +
			"Understanding data structures and algorithms is crucial for software development.",
	}
}

func TestCompareProducesAllPairs(t *testing.T) {
	comparator := NewComparator(DefaultOptions(), nil)

	report, err := comparator.Compare(context.Background(), sampleTexts(), MethodWordBased)
	require.NoError(t, err)

	assert.Len(t, report.Comparisons, 6)
	assert.Equal(t, 4, report.Summary.TotalFiles)
	assert.Equal(t, 6, report.Summary.TotalComparisons)
	assert.Equal(t, MethodWordBased, report.Method)
	assert.Empty(t, report.Excluded)

	for i := 1; i < len(report.Comparisons); i++ {
		assert.GreaterOrEqual(t,
			report.Comparisons[i-1].SimilarityPercentage,
			report.Comparisons[i].SimilarityPercentage)
	}

	assert.GreaterOrEqual(t, report.Comparisons[0].SimilarityPercentage, 50.0)

	// student3 shares no passage with anyone
	for _, r := range report.Comparisons[3:] {
		assert.Contains(t, []string{r.File1, r.File2}, "student3.txt")
		assert.Equal(t, StatusMinimal, r.Status)
	}
}

func TestCompareTwoDocuments(t *testing.T) {
	comparator := NewComparator(DefaultOptions(), nil)

	report, err := comparator.Compare(context.Background(), map[string]string{
		"a": "Hello world\nFoo bar",
		"b": "Hello world\nBaz qux",
	}, MethodLineBased)
	require.NoError(t, err)

	require.Len(t, report.Comparisons, 1)
	assert.Equal(t, 50.0, report.Comparisons[0].SimilarityPercentage)
	assert.Equal(t, 1, report.Comparisons[0].CommonSegments)
	assert.Equal(t, StatusMedium, report.Comparisons[0].Status)
}

func TestCompareSummary(t *testing.T) {
	comparator := NewComparator(DefaultOptions(), nil)

	report, err := comparator.Compare(context.Background(), map[string]string{
		"a": "Hello world\nFoo bar",
		"b": "Hello world\nBaz qux",
		"c": "Hello world\nFoo bar",
	}, MethodLineBased)
	require.NoError(t, err)

	require.Len(t, report.Comparisons, 3)
	assert.Equal(t, "a", report.Comparisons[0].File1)
	assert.Equal(t, "c", report.Comparisons[0].File2)
	assert.Equal(t, 100.0, report.Comparisons[0].SimilarityPercentage)

	// equal scores keep pair order
	assert.Equal(t, []string{"a", "b"}, []string{report.Comparisons[1].File1, report.Comparisons[1].File2})
	assert.Equal(t, []string{"b", "c"}, []string{report.Comparisons[2].File1, report.Comparisons[2].File2})

	assert.Equal(t, Summary{
		TotalFiles:        3,
		TotalComparisons:  3,
		AverageSimilarity: 66.67,
		HighestSimilarity: 100,
		SuspiciousPairs:   3,
		HighRiskPairs:     1,
	}, report.Summary)
}

func TestCompareInsufficientDocuments(t *testing.T) {
	comparator := NewComparator(DefaultOptions(), nil)

	_, err := comparator.Compare(context.Background(), map[string]string{"a": "text"}, MethodWordBased)
	assert.ErrorIs(t, err, ErrInsufficientDocuments)

	_, err = comparator.Compare(context.Background(), nil, MethodWordBased)
	assert.ErrorIs(t, err, ErrInsufficientDocuments)
}

func TestCompareExcludesUnreadableDocuments(t *testing.T) {
	comparator := NewComparator(DefaultOptions(), nil)

	report, err := comparator.Compare(context.Background(), map[string]string{
		"a": "some shared text here",
		"b": "some shared text there",
		"c": "   \n\t",
		"d": "bad \xff bytes",
	}, MethodWordBased)
	require.NoError(t, err)

	assert.Len(t, report.Comparisons, 1)
	assert.Equal(t, 2, report.Summary.TotalFiles)
	require.Len(t, report.Excluded, 2)
	assert.Equal(t, "c", report.Excluded[0].DocumentID)
	assert.Equal(t, "d", report.Excluded[1].DocumentID)
}

func TestCompareFailsWhenExclusionLeavesOneDocument(t *testing.T) {
	comparator := NewComparator(DefaultOptions(), nil)

	_, err := comparator.Compare(context.Background(), map[string]string{
		"a": "readable",
		"b": "",
	}, MethodWordBased)
	assert.ErrorIs(t, err, ErrInsufficientDocuments)
}

func TestCompareUnknownMethodFallsBack(t *testing.T) {
	comparator := NewComparator(DefaultOptions(), nil)

	unknown, err := comparator.Compare(context.Background(), sampleTexts(), Method("unknown"))
	require.NoError(t, err)
	word, err := comparator.Compare(context.Background(), sampleTexts(), MethodWordBased)
	require.NoError(t, err)

	assert.Equal(t, word, unknown)
}

func TestCompareFrom(t *testing.T) {
	texts := sampleTexts()
	loader := &mapLoader{
		texts:  texts,
		failed: map[string]error{"student3.txt": errors.New("decryption failed")},
	}
	comparator := NewComparator(DefaultOptions(), nil)

	ids := []string{"student1.txt", "student2.txt", "student3.txt", "student4.txt", "student1.txt"}
	report, err := comparator.CompareFrom(context.Background(), loader, ids, MethodCharBased)
	require.NoError(t, err)

	assert.Len(t, report.Comparisons, 3)
	require.Len(t, report.Excluded, 1)
	assert.Equal(t, "student3.txt", report.Excluded[0].DocumentID)
	assert.Contains(t, report.Excluded[0].Reason, "decryption failed")
	assert.Equal(t, MethodCharBased, report.Method)
}

func TestCompareFromAllUnreadable(t *testing.T) {
	loader := &mapLoader{texts: map[string]string{"a": "only one readable"}}
	comparator := NewComparator(DefaultOptions(), nil)

	_, err := comparator.CompareFrom(context.Background(), loader, []string{"a", "missing"}, MethodWordBased)
	assert.ErrorIs(t, err, ErrInsufficientDocuments)
}

func TestCompareOnPoolMatchesInline(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(ctx, 3)
	defer pool.Close()

	for _, method := range []Method{MethodWordBased, MethodCharBased, MethodLineBased} {
		inline, err := NewComparator(DefaultOptions(), nil).Compare(ctx, sampleTexts(), method)
		require.NoError(t, err)

		pooled, err := NewComparator(DefaultOptions(), pool).Compare(ctx, sampleTexts(), method)
		require.NoError(t, err)

		assert.Equal(t, inline, pooled, string(method))
	}
}

func TestCompareCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewComparator(DefaultOptions(), nil).Compare(ctx, sampleTexts(), MethodWordBased)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareOnClosedPool(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1)
	pool.Close()

	_, err := NewComparator(DefaultOptions(), pool).Compare(context.Background(), sampleTexts(), MethodWordBased)
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestWorkerPoolSize(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 0)
	defer pool.Close()

	assert.GreaterOrEqual(t, pool.Size(), 1)
}
