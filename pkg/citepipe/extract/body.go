package extract

// skipElements are body elements whose prose the tokenizer excluded from
// sentence/word marking; their text advances the character count only.
var skipElements = map[string]struct{}{
	"table":          {},
	"disp-formula":   {},
	"inline-formula": {},
	"tex-math":       {},
	"mml:math":       {},
	"chem-struct":    {},
}

func (e *Extractor) startInBody(name string, attrs map[string]string) error {
	switch name {
	case "xref":
		if attrs["ref-type"] == "bibr" {
			e.cit.inCitation = true
			if err := e.processCitation(attrs); err != nil {
				return err
			}
		}
		e.tags.push(name, false)
		return nil
	case "p":
		if !e.body.skipElement {
			e.body.paragraphs++
		}
		e.tags.push(name, false)
		return nil
	case "sec":
		e.openSection()
		e.tags.push(name, false)
		return nil
	}
	if _, ok := skipElements[name]; ok {
		e.tags.push(name, false)
		e.body.skipElement = true
		return nil
	}
	e.tags.push(name, false)
	return nil
}

func (e *Extractor) endInBody(name string) error {
	switch name {
	case "xref":
		if e.cit.inCitation {
			return e.endCitation()
		}
		return e.tags.pop(name)
	case "sec":
		e.closeSection()
		return e.tags.pop(name)
	case "body":
		e.region = regionNone
		e.resetContent()
		return e.tags.pop(name)
	}
	if _, ok := skipElements[name]; ok {
		e.body.skipElement = false
		return e.tags.pop(name)
	}
	return e.tags.pop(name)
}
