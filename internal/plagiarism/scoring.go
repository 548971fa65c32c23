package plagiarism

import (
	"math"
)

// Status is the risk label attached to a similarity percentage
type Status string

const (
	StatusMinimal Status = "MINIMAL"
	StatusLow     Status = "LOW"
	StatusMedium  Status = "MEDIUM"
	StatusHigh    Status = "HIGH"
)

// ScoreResult is the outcome of comparing one pair of documents
type ScoreResult struct {
	File1                string  `json:"file1" bson:"file1"`
	File2                string  `json:"file2" bson:"file2"`
	SimilarityPercentage float64 `json:"similarity_percentage" bson:"similarity_percentage"`
	CommonSegments       int     `json:"common_segments" bson:"common_segments"`
	Method               Method  `json:"method" bson:"method"`
	Status               Status  `json:"status" bson:"status"`
}

// Classify returns the status label for a similarity percentage.
// Each threshold is inclusive for the label above it.
func (t Thresholds) Classify(similarity float64) Status {
	if similarity >= t.High {
		return StatusHigh
	} else if similarity >= t.Medium {
		return StatusMedium
	} else if similarity >= t.Low {
		return StatusLow
	}
	return StatusMinimal
}

type strategy func(a, b *Document, opts Options) (float64, int)

// Scorer turns a strategy's raw matches into a ScoreResult
type Scorer struct {
	opts       Options
	strategies map[Method]strategy
}

func NewScorer(opts Options) *Scorer {
	return &Scorer{
		opts: opts,
		strategies: map[Method]strategy{
			MethodWordBased: wordSimilarity,
			MethodCharBased: charSimilarity,
			MethodLineBased: lineSimilarity,
		},
	}
}

// Options returns the engine options the scorer was built with
func (s *Scorer) Options() Options {
	return s.opts
}

// Score compares a and b with the given method; unknown methods use word_based
func (s *Scorer) Score(a, b *Document, method Method) ScoreResult {
	method = ParseMethod(string(method))

	similarity, segments := s.strategies[method](a, b, s.opts)
	similarity = roundPercentage(clampPercentage(similarity))

	return ScoreResult{
		File1:                a.ID,
		File2:                b.ID,
		SimilarityPercentage: similarity,
		CommonSegments:       segments,
		Method:               method,
		Status:               s.opts.Thresholds.Classify(similarity),
	}
}

func clampPercentage(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0.0
	}
	if v > 100.0 {
		return 100.0
	}
	return v
}

// roundPercentage rounds to 2 decimals
func roundPercentage(v float64) float64 {
	return math.Round(v*100) / 100
}
