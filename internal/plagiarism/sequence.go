package plagiarism

import (
	"strings"
)

// Segment is one accepted common unit between two documents
type Segment struct {
	Text string `json:"text"`
	// Size is counted in the segment's own unit: words, characters or lines
	Size int `json:"size"`
}

// ExtractSequences finds the common word n-grams of a and b, longest first.
// An n-gram already covered by an accepted longer one is skipped, so a shared
// passage is counted once rather than once per n-gram length.
func ExtractSequences(a, b *Document, opts Options) []Segment {
	accepted := make([]Segment, 0)
	if len(a.tokens) == 0 || len(b.tokens) == 0 {
		return accepted
	}

	coverage := make([]string, 0) // padded text of accepted n-grams
	visited := make(map[string]struct{})

	for size := opts.MaxNGram; size >= opts.MinNGram; size-- {
		for i := 0; i+size <= len(a.tokens); i++ {
			gram := strings.Join(a.tokens[i:i+size], " ")
			if _, ok := visited[gram]; ok {
				continue
			}
			visited[gram] = struct{}{}

			// Padding with spaces keeps both checks on word boundaries
			padded := " " + gram + " "
			if covered(padded, coverage) {
				continue
			}
			if !Contains(padded, b.paddedTokens) {
				continue
			}

			accepted = append(accepted, Segment{Text: gram, Size: size})
			coverage = append(coverage, padded)
		}
	}

	return accepted
}

func covered(padded string, coverage []string) bool {
	for _, longer := range coverage {
		if strings.Contains(longer, padded) {
			return true
		}
	}
	return false
}

// harmonicMean of two token counts
func harmonicMean(a, b int) float64 {
	if a+b == 0 {
		return 0.0
	}
	return 2.0 * float64(a) * float64(b) / float64(a+b)
}

// wordOverlap is the Jaccard index of the two vocabularies, as a percentage
func wordOverlap(a, b *Document) float64 {
	small, large := a.vocabulary, b.vocabulary
	if len(small) > len(large) {
		small, large = large, small
	}

	common := 0
	for word := range small {
		if _, ok := large[word]; ok {
			common++
		}
	}

	union := len(small) + len(large) - common
	if union == 0 {
		return 0.0
	}
	return float64(common) / float64(union) * 100
}

// wordSimilarity implements word_based scoring: exact lines dominate when
// present, otherwise the stronger of n-gram coverage and vocabulary overlap wins.
func wordSimilarity(a, b *Document, opts Options) (float64, int) {
	if len(a.tokens) == 0 || len(b.tokens) == 0 {
		return 0.0, 0
	}

	matchedLines := countMatchedLines(a, b)
	lineScore := lineRatio(matchedLines, a, b)

	sequences := ExtractSequences(a, b, opts)
	commonWords := 0
	for _, seq := range sequences {
		commonWords += seq.Size
	}

	sequenceScore := 0.0
	if commonWords > 0 {
		sequenceScore = min(100.0, float64(commonWords)/harmonicMean(len(a.tokens), len(b.tokens))*100)
	}

	var final float64
	if matchedLines > 0 {
		final = opts.LineWeight*lineScore + opts.SequenceWeight*sequenceScore
	} else {
		final = max(sequenceScore, wordOverlap(a, b))
	}

	return clampPercentage(final), len(sequences)
}
