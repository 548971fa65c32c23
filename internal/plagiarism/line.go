package plagiarism

// countMatchedLines counts lines of a that equal a line of b. Every line of b
// can be claimed once, so repeated lines match at most as often as they occur
// on both sides. This departs from counting every line of a that has any hit
// in b, which would score "x\nx" against "x\ny" as 100 one way and 50 the other.
func countMatchedLines(a, b *Document) int {
	if len(a.lines) == 0 || len(b.lines) == 0 {
		return 0
	}

	occurrencesA := make(map[string]int, len(a.lines))
	for _, line := range a.lines {
		occurrencesA[line]++
	}

	matched := 0
	for _, line := range a.lines {
		countA, pending := occurrencesA[line]
		if !pending {
			continue
		}
		delete(occurrencesA, line)

		// Lines never contain '\n', so anchoring on it turns substring search into line equality
		countB := len(Search("\n"+line+"\n", b.paddedLines))
		matched += min(countA, countB)
	}

	return matched
}

// lineRatio returns the matched-line percentage over the longer line list
func lineRatio(matched int, a, b *Document) float64 {
	total := max(len(a.lines), len(b.lines))
	if matched == 0 || total == 0 {
		return 0.0
	}
	return float64(matched) / float64(total) * 100
}

// lineSimilarity implements line_based scoring
func lineSimilarity(a, b *Document, _ Options) (float64, int) {
	if len(a.lines) == 0 || len(b.lines) == 0 {
		return 0.0, 0
	}

	matched := countMatchedLines(a, b)
	return lineRatio(matched, a, b), matched
}
