package extract

// startOther handles opening tags outside the metadata, body and
// reference-list regions: the document skeleton itself plus back matter,
// where citations and section counting stay live.
func (e *Extractor) startOther(name string, attrs map[string]string) error {
	switch name {
	case "article":
		e.doc.Type = attrs["article-type"]
		e.tags.push(name, true)
		return nil
	case "front":
		e.inFront = true
		e.tags.push(name, true)
		return nil
	case "article-meta":
		e.region = regionMeta
		e.tags.push(name, false)
		return nil
	case "body":
		e.region = regionBody
		e.resetBodyCounters()
		e.tags.push(name, false)
		return nil
	case "ref-list":
		e.region = regionRefList
		e.cit.refKeys = e.cit.refKeys[:0]
		e.cit.considerPrev = false
		e.resetContent()
		e.tags.push(name, false)
		return nil
	case "sec":
		if !e.inFront {
			e.openSection()
		}
		e.tags.push(name, true)
		return nil
	case "p":
		if !e.inFront && !e.body.skipElement {
			e.body.paragraphs++
		}
		e.tags.push(name, true)
		return nil
	case "xref":
		if attrs["ref-type"] == "bibr" && !e.inFront {
			e.cit.inCitation = true
			if err := e.processCitation(attrs); err != nil {
				return err
			}
			e.tags.push(name, false)
			return nil
		}
		e.tags.push(name, true)
		return nil
	}
	e.tags.push(name, true)
	return nil
}

func (e *Extractor) endOther(name string) error {
	switch name {
	case "front":
		e.inFront = false
	case "sec":
		if !e.inFront {
			e.closeSection()
		}
	case "xref":
		if e.cit.inCitation {
			return e.endCitation()
		}
	}
	return e.tags.pop(name)
}
