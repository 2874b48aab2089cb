package tokenize

import (
	"regexp"
	"strconv"
	"strings"
)

// Masking replaces XML ranges and tags with placeholder tokens of the
// form Z*<id>/* so that boundary detection sees plain prose only. An
// optional leading space is captured into the placeholder, matching how
// words adjacent to markup are later bounded.

// rangeMaskRe masks whole elements including their content: citation
// references, formulas, tables, raw math and chemical structures. Their
// prose is excluded from word/sentence marking entirely.
var rangeMaskRe = regexp.MustCompile(`(?s)` +
	` ?<xref[^>]*ref-type="bibr"[^>]*>.*?</xref>` +
	`| ?<disp-formula[^>]*>.*?</disp-formula>` +
	`| ?<inline-formula[^>]*>.*?</inline-formula>` +
	`| ?<table(?:>|\s[^>]*>).*?</table>` +
	`| ?<tex-math[^>]*>.*?</tex-math>` +
	`| ?<mml:math[^>]*>.*?</mml:math>` +
	`| ?<chem-struct(?:>|\s[^>]*>).*?</chem-struct>`)

// tagMaskRe masks remaining markup and character-entity references, but
// not the content they enclose.
var tagMaskRe = regexp.MustCompile(`(?s)(?: ?<[^>]*>)|(?: ?&#\w{1,6};)`)

var placeholderRe = regexp.MustCompile(`Z\*[0-9]+/\*`)

type masked struct {
	text string
	repl map[string]string
}

// mask runs the range pass followed by the tag pass and records every
// replaced byte sequence in a side mapping keyed by placeholder.
func mask(xml string) *masked {
	m := &masked{repl: make(map[string]string)}
	id := 0
	sub := func(src string, re *regexp.Regexp) string {
		return re.ReplaceAllStringFunc(src, func(match string) string {
			ph := "Z*" + strconv.Itoa(id) + "/*"
			id++
			m.repl[ph] = match
			return ph
		})
	}
	m.text = sub(xml, rangeMaskRe)
	m.text = sub(m.text, tagMaskRe)
	return m
}

// restore replaces every placeholder with its recorded original bytes in
// a single pass. Restoring an already restored string changes nothing:
// each placeholder occurs exactly once and unknown placeholder-shaped
// text is left alone.
func (m *masked) restore(s string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(ph string) string {
		if orig, ok := m.repl[ph]; ok {
			return orig
		}
		return ph
	})
}

// placeholderAt reports the length of the placeholder starting at s[i],
// or 0 if there is none.
func placeholderAt(s string, i int) int {
	if i >= len(s) || s[i] != 'Z' || !strings.HasPrefix(s[i+1:], "*") {
		return 0
	}
	j := i + 2
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i+2 || !strings.HasPrefix(s[j:], "/*") {
		return 0
	}
	return j + 2 - i
}
