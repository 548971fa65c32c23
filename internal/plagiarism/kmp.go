package plagiarism

// Failure computes the KMP failure table for pattern.
// F[k] is the length of the longest proper prefix of pattern[:k+1] that is also a suffix of it.
func Failure(pattern string) []int {
	f := make([]int, len(pattern))
	length := 0

	for i := 1; i < len(pattern); {
		if pattern[i] == pattern[length] {
			length++
			f[i] = length
			i++
			continue
		}
		if length != 0 {
			length = f[length-1]
			continue
		}
		f[i] = 0
		i++
	}

	return f
}

// Search returns every start offset of pattern in text in ascending order,
// overlapping occurrences included. Empty pattern or text yields an empty result.
func Search(pattern, text string) []int {
	return scan(pattern, text, -1)
}

// Contains reports whether pattern occurs in text at least once.
// It stops at the first occurrence.
func Contains(pattern, text string) bool {
	return len(scan(pattern, text, 1)) > 0
}

// scan runs the KMP automaton over text, stopping after limit matches (limit < 0: no limit).
func scan(pattern, text string, limit int) []int {
	matches := make([]int, 0)
	if pattern == "" || text == "" || len(pattern) > len(text) {
		return matches
	}

	f := Failure(pattern)
	j := 0 // matched prefix length

	for i := 0; i < len(text); i++ {
		for j > 0 && text[i] != pattern[j] {
			j = f[j-1]
		}
		if text[i] == pattern[j] {
			j++
		}
		if j == len(pattern) {
			matches = append(matches, i-j+1)
			if limit > 0 && len(matches) >= limit {
				return matches
			}
			j = f[j-1]
		}
	}

	return matches
}
