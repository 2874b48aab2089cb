package tokenize

import (
	"strings"
	"testing"
)

// periodDetector splits sentences after ". " so tests are deterministic.
type periodDetector struct{}

func (periodDetector) Sentences(text string) []string {
	var out []string
	for {
		i := strings.Index(text, ". ")
		if i < 0 {
			break
		}
		out = append(out, text[:i+1])
		text = text[i+2:]
	}
	if strings.TrimSpace(text) != "" {
		out = append(out, text)
	}
	return out
}

func TestMaskRestoreRoundTrip(t *testing.T) {
	inputs := []string{
		`<p>Cells divide. Cells <b>grow</b> fast.</p>`,
		`See <xref ref-type="bibr" rid="B1">[1]</xref> here.`,
		`A dash &#8211; and apostrophe &#x2019; survive.`,
		`<table frame="box"><tr><td>1</td></tr></table> after`,
		`<inline-formula><mml:math><mml:mi>x</mml:mi></mml:math></inline-formula>`,
		`plain text with no markup at all`,
	}
	for _, in := range inputs {
		m := mask(in)
		if got := m.restore(m.text); got != in {
			t.Errorf("restore(mask(%q)) = %q", in, got)
		}
	}
}

func TestMaskExcludesCitationContent(t *testing.T) {
	in := `See <xref ref-type="bibr" rid="B1">[1]</xref> here.`
	m := mask(in)
	if strings.Contains(m.text, "[1]") {
		t.Errorf("citation content not masked: %q", m.text)
	}
	if strings.Contains(m.text, "<xref") {
		t.Errorf("citation markup not masked: %q", m.text)
	}
}

func TestMarkWords(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"one two three", "one*W/* two*W/* three"},
		{"3.14 or 12,000 items", "3.14*W/* or*W/* 12,000*W/* items"},
		{"anti-viral drug", "anti-viral*W/* drug"},
		{"alpha; beta", "alpha; *W/*beta"},
		{"single", "single"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := markWords(tt.in); got != tt.want {
			t.Errorf("markWords(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMarkWordsAroundPlaceholders(t *testing.T) {
	m := mask(`before <xref ref-type="bibr" rid="B1">[1]</xref> after`)
	got := markWords(m.text)
	// The placeholder separates the words; its digits are not a word.
	if want := "before*W/*Z*0/* after"; got != want {
		t.Errorf("markWords = %q, want %q", got, want)
	}
	if restored := m.restore(got); !strings.Contains(restored, `<xref ref-type="bibr" rid="B1">[1]</xref>`) {
		t.Errorf("markup not restored intact: %q", restored)
	}
}

func TestMarkSentences(t *testing.T) {
	tok := New(periodDetector{})
	got := tok.markSentences("First one. Second one.")
	want := "*S/*First one. *S/*Second one."
	if got != want {
		t.Errorf("markSentences = %q, want %q", got, want)
	}
}

func TestMarkSentencesRepeatedSentence(t *testing.T) {
	tok := New(periodDetector{})
	got := tok.markSentences("Yes. Yes. Yes.")
	want := "*S/*Yes. *S/*Yes. *S/*Yes."
	if got != want {
		t.Errorf("markSentences = %q, want %q", got, want)
	}
}

func TestMarkUp(t *testing.T) {
	tok := New(periodDetector{})
	in := `<p>Cells divide. Cells <b>grow</b> fast.</p>`
	got := tok.MarkUp(in)
	want := `*S/*<p>Cells*W/* divide*W/*. *S/*Cells*W/* <b>grow*W/*</b> fast.</p>`
	if got != want {
		t.Errorf("MarkUp = %q, want %q", got, want)
	}
}

func TestMarkUpPreservesMarkupBytes(t *testing.T) {
	tok := New(periodDetector{})
	in := `<p id="p1">A &#8211; b. See <xref ref-type="bibr" rid="B2">[2]</xref>.</p>`
	marked := tok.MarkUp(in)
	stripped, _, _ := StripMarkers(marked)
	if stripped != in {
		t.Errorf("markers removed != input:\n got %q\nwant %q", stripped, in)
	}
}

func TestStripMarkers(t *testing.T) {
	in := "*S/*Cells*W/* divide*W/*. *S/*Done."
	out, words, sents := StripMarkers(in)
	if out != "Cells divide. Done." {
		t.Errorf("out = %q", out)
	}
	if words != 2 || sents != 2 {
		t.Errorf("words = %d, sentences = %d, want 2 and 2", words, sents)
	}
}

func TestPlaceholderAt(t *testing.T) {
	s := "xZ*12/*y"
	if n := placeholderAt(s, 1); n != 6 {
		t.Errorf("placeholderAt = %d, want 6", n)
	}
	if n := placeholderAt(s, 0); n != 0 {
		t.Errorf("placeholderAt on non-placeholder = %d", n)
	}
	if n := placeholderAt("Z*/*", 0); n != 0 {
		t.Errorf("placeholderAt without digits = %d", n)
	}
}
