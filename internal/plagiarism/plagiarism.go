package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RishiKendai/textguard/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInsufficientDocuments means fewer than two usable documents were available
	ErrInsufficientDocuments = errors.New("at least 2 readable documents are required for comparison")

	// ErrUnreadableDocument marks a document whose text could not be obtained
	ErrUnreadableDocument = errors.New("document text unavailable")
)

// TextLoader supplies decrypted document text by id
type TextLoader interface {
	LoadText(ctx context.Context, id string) (string, error)
}

// Exclusion records a document left out of a run and why
type Exclusion struct {
	DocumentID string `json:"document_id" bson:"document_id"`
	Reason     string `json:"reason" bson:"reason"`
}

// Summary aggregates the pair results of a run
type Summary struct {
	TotalFiles        int     `json:"total_files" bson:"total_files"`
	TotalComparisons  int     `json:"total_comparisons" bson:"total_comparisons"`
	AverageSimilarity float64 `json:"average_similarity" bson:"average_similarity"`
	HighestSimilarity float64 `json:"highest_similarity" bson:"highest_similarity"`
	SuspiciousPairs   int     `json:"suspicious_pairs" bson:"suspicious_pairs"`
	HighRiskPairs     int     `json:"high_risk_pairs" bson:"high_risk_pairs"`
}

// Report is the outcome of comparing a document set.
// Comparisons are ordered by similarity, highest first.
type Report struct {
	Method      Method        `json:"method" bson:"method"`
	Summary     Summary       `json:"summary" bson:"summary"`
	Comparisons []ScoreResult `json:"comparisons" bson:"comparisons"`
	Excluded    []Exclusion   `json:"excluded,omitempty" bson:"excluded,omitempty"`
}

// Pair is an unordered pair of documents to score
type Pair struct {
	DocumentA *Document
	DocumentB *Document
}

type pairResult struct {
	index  int
	result ScoreResult
}

// ComputationJob scores one pair on a worker
type ComputationJob struct {
	Index      int
	Pair       Pair
	Method     Method
	Scorer     *Scorer
	ResultChan chan<- pairResult
}

// Execute executes the computation job
func (j *ComputationJob) Execute(ctx context.Context) error {
	result := scorePair(j.Scorer, j.Pair, j.Method)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case j.ResultChan <- pairResult{index: j.Index, result: result}:
		return nil
	}
}

func scorePair(scorer *Scorer, pair Pair, method Method) ScoreResult {
	start := time.Now()
	result := scorer.Score(pair.DocumentA, pair.DocumentB, method)
	metrics.PairDuration.WithLabelValues(string(result.Method)).Observe(time.Since(start).Seconds())
	return result
}

// Comparator scores every unordered pair of a document set
type Comparator struct {
	scorer *Scorer
	pool   *WorkerPool
}

// NewComparator builds a comparator. With a nil pool pairs are scored on the calling goroutine.
func NewComparator(opts Options, pool *WorkerPool) *Comparator {
	return &Comparator{
		scorer: NewScorer(opts),
		pool:   pool,
	}
}

// Compare scores all pairs of the given id -> text mapping
func (c *Comparator) Compare(ctx context.Context, texts map[string]string, method Method) (*Report, error) {
	if len(texts) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientDocuments, len(texts))
	}

	ids := make([]string, 0, len(texts))
	for id := range texts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]*Document, 0, len(ids))
	excluded := make([]Exclusion, 0)
	for _, id := range ids {
		if err := checkReadable(texts[id]); err != nil {
			excluded = append(excluded, exclude(id, err))
			continue
		}
		docs = append(docs, NewDocument(id, texts[id]))
	}

	return c.run(ctx, docs, excluded, ParseMethod(string(method)))
}

// CompareFrom loads every id through loader and scores all pairs of the readable ones
func (c *Comparator) CompareFrom(ctx context.Context, loader TextLoader, ids []string, method Method) (*Report, error) {
	unique := make(map[string]struct{}, len(ids))
	ordered := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := unique[id]; ok {
			continue
		}
		unique[id] = struct{}{}
		ordered = append(ordered, id)
	}
	if len(ordered) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientDocuments, len(ordered))
	}
	sort.Strings(ordered)

	docs := make([]*Document, 0, len(ordered))
	excluded := make([]Exclusion, 0)
	for _, id := range ordered {
		text, err := loader.LoadText(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			excluded = append(excluded, exclude(id, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)))
			continue
		}
		if err := checkReadable(text); err != nil {
			excluded = append(excluded, exclude(id, err))
			continue
		}
		docs = append(docs, NewDocument(id, text))
	}

	return c.run(ctx, docs, excluded, ParseMethod(string(method)))
}

func checkReadable(text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: text is not valid UTF-8", ErrUnreadableDocument)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text is empty", ErrUnreadableDocument)
	}
	return nil
}

func exclude(id string, err error) Exclusion {
	log.Warn().Err(err).Str("documentId", id).Msg("Excluding document from comparison")
	metrics.ExcludedDocuments.Inc()
	return Exclusion{DocumentID: id, Reason: err.Error()}
}

func (c *Comparator) run(ctx context.Context, docs []*Document, excluded []Exclusion, method Method) (*Report, error) {
	if len(docs) < 2 {
		metrics.ComparisonCount.WithLabelValues(string(method), "insufficient").Inc()
		return nil, fmt.Errorf("%w: %d usable, %d excluded", ErrInsufficientDocuments, len(docs), len(excluded))
	}

	start := time.Now()

	pairs := make([]Pair, 0, len(docs)*(len(docs)-1)/2)
	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			pairs = append(pairs, Pair{DocumentA: docs[i], DocumentB: docs[j]})
		}
	}

	var results []ScoreResult
	var err error
	if c.pool != nil {
		results, err = c.computeOnPool(ctx, pairs, method)
	} else {
		results, err = c.computeInline(ctx, pairs, method)
	}
	if err != nil {
		metrics.ComparisonCount.WithLabelValues(string(method), "failed").Inc()
		return nil, err
	}

	// Stable sort keeps the id-ordered pair sequence for equal scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityPercentage > results[j].SimilarityPercentage
	})

	report := &Report{
		Method:      method,
		Summary:     summarize(results, len(docs), c.scorer.Options().Thresholds),
		Comparisons: results,
	}
	if len(excluded) > 0 {
		report.Excluded = excluded
	}

	metrics.ComparisonCount.WithLabelValues(string(method), "completed").Inc()
	metrics.ComparisonDuration.WithLabelValues(string(method)).Observe(time.Since(start).Seconds())

	log.Info().
		Str("method", string(method)).
		Int("documents", len(docs)).
		Int("excluded", len(excluded)).
		Int("comparisons", len(results)).
		Float64("highest", report.Summary.HighestSimilarity).
		Dur("elapsed", time.Since(start)).
		Msg("Comparison completed")

	return report, nil
}

func (c *Comparator) computeInline(ctx context.Context, pairs []Pair, method Method) ([]ScoreResult, error) {
	results := make([]ScoreResult, len(pairs))
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[i] = scorePair(c.scorer, pair, method)
	}
	return results, nil
}

func (c *Comparator) computeOnPool(ctx context.Context, pairs []Pair, method Method) ([]ScoreResult, error) {
	resultChan := make(chan pairResult, len(pairs))

	for i, pair := range pairs {
		job := &ComputationJob{
			Index:      i,
			Pair:       pair,
			Method:     method,
			Scorer:     c.scorer,
			ResultChan: resultChan,
		}
		if err := c.pool.Submit(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to submit pair %s/%s: %w", pair.DocumentA.ID, pair.DocumentB.ID, err)
		}
	}

	results := make([]ScoreResult, len(pairs))
	for received := 0; received < len(pairs); received++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.pool.Done():
			return nil, ErrPoolClosed
		case r := <-resultChan:
			results[r.index] = r.result
		}
	}

	return results, nil
}

func summarize(results []ScoreResult, totalFiles int, t Thresholds) Summary {
	summary := Summary{
		TotalFiles:       totalFiles,
		TotalComparisons: len(results),
	}
	if len(results) == 0 {
		return summary
	}

	sum := 0.0
	for _, r := range results {
		sum += r.SimilarityPercentage
		summary.HighestSimilarity = max(summary.HighestSimilarity, r.SimilarityPercentage)
		if r.SimilarityPercentage >= t.Medium {
			summary.SuspiciousPairs++
		}
		if r.SimilarityPercentage >= t.High {
			summary.HighRiskPairs++
		}
	}
	summary.AverageSimilarity = roundPercentage(sum / float64(len(results)))

	return summary
}
