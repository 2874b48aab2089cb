package tokenize

import (
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// SentenceDetector finds sentence boundaries in plain text. The default
// implementation wraps the Punkt tokenizer; tests plug in deterministic
// detectors.
type SentenceDetector interface {
	// Sentences returns the consecutive sentences of text, in order.
	Sentences(text string) []string
}

type punktDetector struct {
	tok *sentences.DefaultSentenceTokenizer
}

// NewEnglishDetector returns a SentenceDetector backed by the Punkt
// sentence tokenizer with the embedded English training data.
func NewEnglishDetector() (SentenceDetector, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, err
	}
	return &punktDetector{tok: tok}, nil
}

// Sentences implements SentenceDetector.
func (d *punktDetector) Sentences(text string) []string {
	ss := d.tok.Tokenize(text)
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.Text)
	}
	return out
}

// markSentences inserts a SentenceMarker at the start of every detected
// sentence. When a sentence begins with a placeholder the marker is glued
// directly in front of it, never separated from it by whitespace.
func (t *Tokenizer) markSentences(s string) string {
	if t.detect == nil {
		return s
	}
	sents := t.detect.Sentences(s)
	if len(sents) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(sents)*len(SentenceMarker))
	written := 0
	search := 0
	for _, sent := range sents {
		trimmed := strings.TrimSpace(sent)
		if trimmed == "" {
			continue
		}
		idx := strings.Index(s[search:], trimmed)
		if idx < 0 {
			continue
		}
		start := search + idx
		b.WriteString(s[written:start])
		b.WriteString(SentenceMarker)
		written = start
		search = start + len(trimmed)
	}
	b.WriteString(s[written:])
	return b.String()
}
