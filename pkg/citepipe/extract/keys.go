package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const keyMaxLen = 40

// keyFold decomposes and drops combining marks so that accented author
// names produce the same key across differently encoded sources.
var keyFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// cleanKey builds a synthetic reference key from author or title text:
// diacritics folded, everything but letters removed, lower-cased and
// truncated to keyMaxLen runes.
func cleanKey(s string) string {
	if s == "" {
		return ""
	}
	folded, _, err := transform.String(keyFold, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	n := 0
	for _, r := range folded {
		if !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
		n++
		if n == keyMaxLen {
			break
		}
	}
	return b.String()
}
