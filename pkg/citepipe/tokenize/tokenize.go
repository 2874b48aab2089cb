// Package tokenize implements the markup-preserving tokenizer. It inserts
// sentence and word boundary markers into article body XML without
// disturbing the original markup: markup is masked behind placeholder
// tokens, boundary detection runs on the masked plain text, and the
// original bytes are restored afterwards.
package tokenize

import "strings"

// Marker tokens inserted into prose. They never land inside markup
// because all markup is masked while they are inserted.
const (
	SentenceMarker = "*S/*"
	WordMarker     = "*W/*"
)

// Tokenizer runs the three-pass transform: mask, mark, restore.
type Tokenizer struct {
	detect SentenceDetector
}

// New creates a Tokenizer using the given sentence boundary detector.
func New(detect SentenceDetector) *Tokenizer {
	return &Tokenizer{detect: detect}
}

// MarkUp annotates word and sentence boundaries in the given body XML.
// All markup and character-entity references in the result are
// byte-identical to the input; only marker tokens are added.
func (t *Tokenizer) MarkUp(body string) string {
	m := mask(body)
	marked := t.markSentences(m.text)
	marked = markWords(marked)
	return m.restore(marked)
}

// StripMarkers removes marker tokens from s and reports how many word and
// sentence markers were removed. Used by the extractor to advance its
// cumulative counters.
func StripMarkers(s string) (out string, words, sentences int) {
	words = strings.Count(s, WordMarker)
	sentences = strings.Count(s, SentenceMarker)
	if words > 0 {
		s = strings.ReplaceAll(s, WordMarker, "")
	}
	if sentences > 0 {
		s = strings.ReplaceAll(s, SentenceMarker, "")
	}
	return s, words, sentences
}
