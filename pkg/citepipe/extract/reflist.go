package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/citepipe/pkg/citepipe/internalerr"
	"github.com/cognicore/citepipe/pkg/citepipe/model"
)

// refInlineElements may appear inside a retained reference field without
// interrupting its text.
var refInlineElements = map[string]struct{}{
	"bold":          {},
	"italic":        {},
	"underline":     {},
	"monospace":     {},
	"named-content": {},
	"sub":           {},
	"sup":           {},
	"sc":            {},
	"ext-link":      {},
	"uri":           {},
	"xref":          {},
}

func (e *Extractor) startInRefList(name string, attrs map[string]string) error {
	// Sections in back matter keep counting for the section path.
	if name == "sec" && !e.inFront {
		e.openSection()
		e.tags.push(name, true)
		return nil
	}
	if name == "ref" {
		e.refs.inItem = true
		e.refs.cur = model.Reference{PMCID: e.doc.PMCID, RefID: attrs["id"]}
		e.refs.titleRank = 0
		e.refs.authorsSet = false
		e.refs.authKey.Reset()
		e.tags.push(name, false)
		return nil
	}
	if !e.refs.inItem {
		e.tags.push(name, true)
		return nil
	}

	switch name {
	case "person-group":
		if attrs["person-group-type"] == "author" {
			e.refs.inAuthors = true
			e.refs.authKey.Reset()
			e.tags.push(name, false)
			return nil
		}
	case "surname", "collab":
		if e.refs.inAuthors {
			e.tags.push(name, false)
			return nil
		}
		if name == "collab" {
			e.tags.push(name, false)
			return nil
		}
	case "article-title":
		e.refs.inArtTitle = true
		e.tags.push(name, false)
		return nil
	case "title":
		e.refs.inTitle = true
		e.tags.push(name, false)
		return nil
	case "trans-title":
		e.refs.inTransT = true
		e.tags.push(name, false)
		return nil
	case "source":
		e.refs.inSource = true
		e.tags.push(name, false)
		return nil
	case "pub-id", "object-id":
		switch attrs["pub-id-type"] {
		case "pmc", "pmid", "doi", "medline":
			e.refs.idField = attrs["pub-id-type"]
			e.tags.push(name, false)
			return nil
		}
		e.tags.push(name, true)
		return nil
	}

	if !e.tags.top().skip {
		if _, ok := refInlineElements[name]; ok {
			e.tags.push(name, false)
			return nil
		}
	}
	e.tags.push(name, true)
	return nil
}

func (e *Extractor) endInRefList(name string) error {
	if e.refs.inItem {
		return e.endInRefItem(name)
	}
	if name == "ref-list" {
		e.region = regionNone
		return e.tags.pop(name)
	}
	return e.endOther(name)
}

func (e *Extractor) endInRefItem(name string) error {
	if e.refs.inAuthors {
		switch name {
		case "surname":
			if e.refs.authKey.Len() < keyMaxLen {
				e.refs.authKey.WriteString(e.cur.String())
			}
			e.refs.authorsSet = true
			e.resetContent()
		case "collab":
			if !e.refs.authorsSet {
				e.refs.authKey.WriteString(e.cur.String())
			}
			e.resetContent()
		case "person-group":
			e.refs.inAuthors = false
			e.refs.cur.AuthorsKey = cleanKey(e.refs.authKey.String())
			e.refs.authKey.Reset()
			e.refs.authorsSet = false
		}
		return e.tags.pop(name)
	}
	if e.refs.inArtTitle {
		if name == "article-title" {
			e.refs.inArtTitle = false
			e.setTitleKey(rankArticleTitle)
			e.resetContent()
		}
		return e.tags.pop(name)
	}
	if e.refs.inTitle {
		if name == "title" {
			e.refs.inTitle = false
			e.setTitleKey(rankTitle)
			e.resetContent()
		}
		return e.tags.pop(name)
	}
	if e.refs.inTransT {
		if name == "trans-title" {
			e.refs.inTransT = false
			e.setTitleKey(rankTransTitle)
			e.resetContent()
		}
		return e.tags.pop(name)
	}
	if e.refs.inSource {
		if name == "source" {
			e.refs.inSource = false
			e.setTitleKey(rankSource)
			e.resetContent()
		}
		return e.tags.pop(name)
	}
	if name == "pub-id" || name == "object-id" {
		if err := e.endRefID(); err != nil {
			return err
		}
		return e.tags.pop(name)
	}
	if name == "collab" {
		// Collaboration outside a person-group still yields an author key
		// when none was collected.
		if e.refs.authKey.Len() == 0 && e.refs.cur.AuthorsKey == "" {
			e.refs.cur.AuthorsKey = cleanKey(e.cur.String())
		}
		e.resetContent()
		return e.tags.pop(name)
	}
	if name == "ref" {
		e.refs.inItem = false
		if err := e.emitReference(); err != nil {
			return err
		}
		e.cit.refKeys = append(e.cit.refKeys, strings.TrimSpace(e.refs.cur.RefID))
		return e.tags.pop(name)
	}
	return e.tags.pop(name)
}

// setTitleKey derives the title key from the accumulated content unless a
// higher-precedence title source was already used.
func (e *Extractor) setTitleKey(rank int) {
	if rank <= e.refs.titleRank {
		return
	}
	e.refs.titleRank = rank
	e.refs.cur.TitleKey = cleanKey(e.cur.String())
}

// endRefID parses the typed external identifier that is open. Malformed
// numeric ids are fatal for the file.
func (e *Extractor) endRefID() error {
	text := strings.TrimSpace(e.cur.String())
	field := e.refs.idField
	e.refs.idField = ""
	switch field {
	case "pmid":
		n, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("%w: reference pmid %q in %s", internalerr.ErrBadIdentifier, text, e.doc.File)
		}
		e.refs.cur.PMID = n
	case "pmc":
		n, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("%w: reference pmc id %q in %s", internalerr.ErrBadIdentifier, text, e.doc.File)
		}
		e.refs.cur.RefPMCID = n
	case "doi":
		e.refs.cur.DOI = text
	case "medline":
		e.refs.cur.MedlineID = text
	default:
		return nil
	}
	e.resetContent()
	return nil
}

// emitReference flushes the reference row when its item closes.
func (e *Extractor) emitReference() error {
	if !e.shouldPersist() {
		return nil
	}
	r := e.refs.cur
	r.RefID = strings.TrimSpace(r.RefID)
	r.MedlineID = strings.TrimSpace(r.MedlineID)
	r.DOI = strings.TrimSpace(r.DOI)
	return e.sink.Reference(r)
}
