package tokenize

import (
	"sort"
	"strings"
)

// markWords inserts a WordMarker after the final alphanumeric character of
// every word that is followed by another word. A word is a maximal
// alphanumeric run; an embedded "." or "," directly between digits keeps a
// numeric literal together ("3.14", "12,000"). Two runs are separate
// words only when the gap between them contains whitespace or a masked
// placeholder, so punctuation-joined runs like "anti-viral" stay single
// words and placeholder digits are never words themselves. A gap
// containing "; " places the marker after the semicolon-space instead.
func markWords(s string) string {
	var inserts []int

	lastWordEnd := -1
	gapSeparated := false
	i := 0
	for i < len(s) {
		if n := placeholderAt(s, i); n > 0 {
			if lastWordEnd >= 0 {
				gapSeparated = true
			}
			i += n
			continue
		}
		if strings.HasPrefix(s[i:], SentenceMarker) {
			i += len(SentenceMarker)
			continue
		}
		c := s[i]
		switch {
		case isAlnum(c):
			if lastWordEnd >= 0 && gapSeparated {
				inserts = append(inserts, markerPos(s, lastWordEnd, i))
			}
			i = scanWord(s, i)
			lastWordEnd = i
			gapSeparated = false
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if lastWordEnd >= 0 {
				gapSeparated = true
			}
			i++
		default:
			i++
		}
	}
	if len(inserts) == 0 {
		return s
	}

	sort.Ints(inserts)
	var b strings.Builder
	b.Grow(len(s) + len(inserts)*len(WordMarker))
	prev := 0
	for _, pos := range inserts {
		b.WriteString(s[prev:pos])
		b.WriteString(WordMarker)
		prev = pos
	}
	b.WriteString(s[prev:])
	return b.String()
}

// scanWord consumes a word starting at s[i] and returns the index just
// past its last character. It stops before placeholders even though they
// start with an alphanumeric byte.
func scanWord(s string, i int) int {
	j := i
	for j < len(s) {
		if placeholderAt(s, j) > 0 {
			break
		}
		c := s[j]
		if isAlnum(c) {
			j++
			continue
		}
		// decimal or thousands separator inside a numeric literal
		if (c == '.' || c == ',') && j > i && isDigit(s[j-1]) && j+1 < len(s) && isDigit(s[j+1]) {
			j++
			continue
		}
		break
	}
	return j
}

// markerPos picks the insertion point for the marker closing the word
// that ends at wordEnd, given that the next word starts at next.
func markerPos(s string, wordEnd, next int) int {
	if k := strings.Index(s[wordEnd:next], "; "); k >= 0 {
		return wordEnd + k + 2
	}
	return wordEnd
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
