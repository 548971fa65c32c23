package plagiarism

import (
	"strings"
	"unicode/utf8"
)

// Document is one text of a comparison run together with the views every
// strategy reads. Views are derived once in NewDocument and never mutated.
type Document struct {
	ID   string
	Text string

	tokens       []string
	paddedTokens string // " " + tokens joined by " " + " "
	vocabulary   map[string]struct{}

	lines       []string
	paddedLines string // "\n" + lines joined by "\n" + "\n"

	chars       string
	charOffsets []int // byte offset of every rune in chars, plus len(chars)
}

func NewDocument(id, text string) *Document {
	lower := strings.ToLower(text)

	d := &Document{
		ID:     id,
		Text:   text,
		tokens: strings.Fields(lower),
	}

	d.paddedTokens = " " + strings.Join(d.tokens, " ") + " "
	d.vocabulary = make(map[string]struct{}, len(d.tokens))
	for _, tok := range d.tokens {
		d.vocabulary[tok] = struct{}{}
	}

	for _, line := range strings.Split(lower, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			d.lines = append(d.lines, line)
		}
	}
	d.paddedLines = "\n" + strings.Join(d.lines, "\n") + "\n"

	d.chars = strings.Join(d.tokens, "")
	d.charOffsets = make([]int, 0, utf8.RuneCountInString(d.chars)+1)
	for i := range d.chars {
		d.charOffsets = append(d.charOffsets, i)
	}
	d.charOffsets = append(d.charOffsets, len(d.chars))

	return d
}

// Tokens returns the lowercase whitespace-split words
func (d *Document) Tokens() []string { return d.tokens }

// Lines returns the lowercase trimmed non-empty lines
func (d *Document) Lines() []string { return d.lines }

// Chars returns the lowercase text with all whitespace removed
func (d *Document) Chars() string { return d.chars }

// charCount is the number of runes in Chars
func (d *Document) charCount() int { return len(d.charOffsets) - 1 }

// charSlice returns the runes [i, j) of Chars without copying
func (d *Document) charSlice(i, j int) string {
	return d.chars[d.charOffsets[i]:d.charOffsets[j]]
}
