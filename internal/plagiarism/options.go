package plagiarism

import "fmt"

// Method selects the scoring strategy used for a comparison run
type Method string

const (
	MethodWordBased Method = "word_based"
	MethodCharBased Method = "char_based"
	MethodLineBased Method = "line_based"
)

// ParseMethod maps a selector string to a Method.
// Empty or unrecognized selectors fall back to word_based.
func ParseMethod(s string) Method {
	switch Method(s) {
	case MethodWordBased, MethodCharBased, MethodLineBased:
		return Method(s)
	default:
		return MethodWordBased
	}
}

// Valid reports whether m is one of the known methods
func (m Method) Valid() bool {
	switch m {
	case MethodWordBased, MethodCharBased, MethodLineBased:
		return true
	}
	return false
}

// Thresholds are the similarity percentages at which the status label changes
type Thresholds struct {
	Low    float64 `yaml:"low" json:"low"`
	Medium float64 `yaml:"medium" json:"medium"`
	High   float64 `yaml:"high" json:"high"`
}

// Options holds every tunable of the similarity engine
type Options struct {
	// Word n-gram lengths, scanned from MaxNGram down to MinNGram
	MinNGram int `yaml:"min_ngram" json:"min_ngram"`
	MaxNGram int `yaml:"max_ngram" json:"max_ngram"`

	// Character substring bounds for char_based. Shared runs longer than
	// SubstringWindow are reported at SubstringWindow.
	MinSubstring    int `yaml:"min_substring" json:"min_substring"`
	SubstringWindow int `yaml:"substring_window" json:"substring_window"`

	// Weights applied when at least one exact line matches
	LineWeight     float64 `yaml:"line_weight" json:"line_weight"`
	SequenceWeight float64 `yaml:"sequence_weight" json:"sequence_weight"`

	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
}

func DefaultOptions() Options {
	return Options{
		MinNGram:        3,
		MaxNGram:        8,
		MinSubstring:    5,
		SubstringWindow: 50,
		LineWeight:      0.7,
		SequenceWeight:  0.3,
		Thresholds: Thresholds{
			Low:    20,
			Medium: 50,
			High:   80,
		},
	}
}

func (o Options) Validate() error {
	if o.MinNGram <= 0 {
		return fmt.Errorf("min_ngram must be greater than 0")
	}
	if o.MaxNGram < o.MinNGram {
		return fmt.Errorf("max_ngram (%d) must not be less than min_ngram (%d)", o.MaxNGram, o.MinNGram)
	}
	if o.MinSubstring <= 0 {
		return fmt.Errorf("min_substring must be greater than 0")
	}
	if o.SubstringWindow < o.MinSubstring {
		return fmt.Errorf("substring_window (%d) must not be less than min_substring (%d)", o.SubstringWindow, o.MinSubstring)
	}
	if o.LineWeight < 0 || o.SequenceWeight < 0 || o.LineWeight+o.SequenceWeight > 1.0+1e-9 {
		return fmt.Errorf("line_weight and sequence_weight must be non-negative and sum to at most 1")
	}
	t := o.Thresholds
	if !(0 <= t.Low && t.Low <= t.Medium && t.Medium <= t.High && t.High <= 100) {
		return fmt.Errorf("thresholds must satisfy 0 <= low <= medium <= high <= 100")
	}
	return nil
}
