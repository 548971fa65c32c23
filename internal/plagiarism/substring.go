package plagiarism

import "strings"

// SubstringStats summarizes the common character substrings of two documents
type SubstringStats struct {
	// Longest common run found, capped at the configured window
	MaxLength int
	// Distinct common substrings with MinSubstring <= length <= SubstringWindow
	Distinct int
}

// ExtractSubstrings scans every start position of the shorter cleaned text and
// grows the candidate up to the window while it still occurs in the other text.
// A candidate that does not occur cannot be extended into one that does, so the
// scan at a start position stops at the first miss.
func ExtractSubstrings(a, b *Document, opts Options) SubstringStats {
	short, long := a, b
	if b.charCount() < a.charCount() {
		short, long = b, a
	}

	stats := SubstringStats{}
	n := short.charCount()
	if n < opts.MinSubstring || long.charCount() == 0 {
		return stats
	}

	distinct := make(map[string]struct{})
	for i := 0; i+opts.MinSubstring <= n; i++ {
		end := min(i+opts.SubstringWindow, n)
		for j := i + opts.MinSubstring; j <= end; j++ {
			sub := short.charSlice(i, j)
			if !strings.Contains(long.chars, sub) {
				break
			}
			distinct[sub] = struct{}{}
			if j-i > stats.MaxLength {
				stats.MaxLength = j - i
			}
		}
	}

	stats.Distinct = len(distinct)
	return stats
}

// charSimilarity implements char_based scoring
func charSimilarity(a, b *Document, opts Options) (float64, int) {
	if a.charCount() == 0 || b.charCount() == 0 {
		return 0.0, 0
	}

	stats := ExtractSubstrings(a, b, opts)
	if stats.MaxLength == 0 {
		return 0.0, 0
	}

	longest := max(a.charCount(), b.charCount())
	return float64(stats.MaxLength) / float64(longest) * 100, stats.Distinct
}
