package mapping

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Span is a half-open [Start, End) byte range of one match.
type Span struct {
	Start int
	End   int
}

// wordRune reports whether r would extend an identifier. A dot counts so
// that a qualified name never matches inside a longer qualified name.
func wordRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !wordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i == len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !wordRune(r)
}

// FindAll returns the spans of every boundary-safe occurrence of literal
// in text, left to right, non-overlapping. The literal is matched
// exactly and case-sensitively. A failed boundary check advances the
// scan by one byte, so occurrences embedded in larger identifiers are
// skipped without hiding later valid ones.
func FindAll(text, literal string) []Span {
	if literal == "" {
		return nil
	}

	var spans []Span
	for i := 0; i <= len(text)-len(literal); {
		j := strings.Index(text[i:], literal)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(literal)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			spans = append(spans, Span{Start: start, End: end})
			i = end
		} else {
			i = start + 1
		}
	}
	return spans
}

// Count returns the number of boundary-safe occurrences of literal.
func Count(text, literal string) int {
	return len(FindAll(text, literal))
}

// ExpandAll rewrites every boundary-safe occurrence through expand and
// returns the new text plus the number of rewrites.
func ExpandAll(text, literal string, expand func(match string) string) (string, int) {
	spans := FindAll(text, literal)
	if len(spans) == 0 {
		return text, 0
	}

	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(text[last:sp.Start])
		b.WriteString(expand(text[sp.Start:sp.End]))
		last = sp.End
	}
	b.WriteString(text[last:])
	return b.String(), len(spans)
}

// ReplaceAll substitutes every boundary-safe occurrence of literal with
// replacement.
func ReplaceAll(text, literal, replacement string) (string, int) {
	return ExpandAll(text, literal, func(string) string { return replacement })
}
