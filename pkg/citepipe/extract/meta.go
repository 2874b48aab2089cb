package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/citepipe/pkg/citepipe/internalerr"
	"github.com/cognicore/citepipe/pkg/citepipe/model"
)

// titleInlineElements may appear inside an article title without losing
// its text; anything else under the title is ignored with a warning.
var titleInlineElements = map[string]struct{}{
	"bold":           {},
	"italic":         {},
	"underline":      {},
	"monospace":      {},
	"named-content":  {},
	"sub":            {},
	"sup":            {},
	"sc":             {},
	"break":          {},
	"ext-link":       {},
	"inline-formula": {},
	"inline-graphic": {},
	"uri":            {},
	"xref":           {},
}

func titleAllows(name string) bool {
	if _, ok := titleInlineElements[name]; ok {
		return true
	}
	return strings.HasPrefix(name, "mml:")
}

func (e *Extractor) startInMeta(name string, attrs map[string]string) {
	switch name {
	case "abstract":
		e.meta.inAbstract = true
		e.tags.push(name, false)
		return
	case "article-id":
		switch attrs["pub-id-type"] {
		case "pmc":
			e.meta.inPMCID = true
			e.tags.push(name, false)
		case "pmid":
			e.meta.inPMID = true
			e.tags.push(name, false)
		default:
			e.tags.push(name, true)
		}
		return
	case "related-article":
		e.meta.inRelated = true
		e.tags.push(name, true)
		return
	case "article-title":
		if !e.meta.inRelated {
			e.meta.inTitle = true
			e.tags.push(name, false)
			return
		}
	}

	if e.meta.inTitle {
		if titleAllows(name) {
			e.tags.push(name, false)
			return
		}
		if name != "fn" && e.tags.top().name != "fn" {
			e.warnf("ignoring unknown element in title: %s in %s", name, e.doc.File)
		}
		e.tags.push(name, true)
		return
	}

	if name == "contrib-group" {
		e.meta.inContribGroup = true
		e.tags.push(name, true)
		return
	}
	if e.meta.inContribGroup {
		e.startInContribGroup(name, attrs)
		return
	}

	if name == "pub-date" {
		e.meta.inPubDate = true
		e.tags.push(name, false)
		return
	}
	if e.meta.inPubDate {
		if name == "year" || name == "month" {
			e.tags.push(name, false)
		} else {
			e.tags.push(name, true)
		}
		return
	}

	e.tags.push(name, true)
}

func (e *Extractor) startInContribGroup(name string, attrs map[string]string) {
	if name == "contrib" {
		if attrs["contrib-type"] == "author" {
			e.meta.inContrib = true
			e.meta.author = model.Author{PMCID: e.doc.PMCID}
			e.tags.push(name, false)
		} else {
			e.tags.push(name, true)
		}
		return
	}
	if e.meta.inContrib {
		if name == "name" {
			e.meta.inName = true
			e.tags.push(name, false)
			return
		}
		if e.meta.inName && (name == "surname" || name == "given-names") {
			e.tags.push(name, false)
			return
		}
	}
	e.tags.push(name, true)
}

func (e *Extractor) endInMeta(name string) error {
	if e.meta.inContribGroup {
		return e.endInContribGroup(name)
	}
	if e.meta.inRelated {
		if name == "related-article" {
			e.meta.inRelated = false
			e.resetContent()
		}
		return e.tags.pop(name)
	}
	if e.meta.inTitle {
		if name == "article-title" {
			e.meta.inTitle = false
			e.doc.Title = e.cur.String()
			e.resetContent()
		}
		return e.tags.pop(name)
	}
	if name == "article-id" {
		return e.endArticleID(name)
	}
	if e.meta.inPubDate {
		return e.endInPubDate(name)
	}
	if e.meta.inAbstract && name == "abstract" {
		e.meta.inAbstract = false
		e.resetContent()
		return e.tags.pop(name)
	}
	if name == "article-meta" {
		e.region = regionNone
		if len(e.meta.dates) > 0 {
			model.SortPubDates(e.meta.dates)
			e.doc.Year = e.meta.dates[0].Year
			e.doc.Month = e.meta.dates[0].Month
			e.meta.dates = nil
		}
		return e.tags.pop(name)
	}
	return e.tags.pop(name)
}

func (e *Extractor) endInContribGroup(name string) error {
	if e.meta.inContrib {
		if e.meta.inName {
			switch name {
			case "surname":
				e.meta.author.LastName = e.cur.String()
				e.resetContent()
			case "given-names":
				e.meta.author.FirstName = e.cur.String()
				e.resetContent()
			case "name":
				e.meta.inName = false
			}
			return e.tags.pop(name)
		}
		if name == "contrib" {
			e.meta.inContrib = false
			if err := e.emitAuthor(); err != nil {
				return err
			}
			e.meta.author = model.Author{}
			return e.tags.pop(name)
		}
		return e.tags.pop(name)
	}
	if name == "contrib-group" {
		e.meta.inContribGroup = false
	}
	return e.tags.pop(name)
}

// emitAuthor flushes the author being parsed when its contrib closes.
// Authors without a surname are dropped.
func (e *Extractor) emitAuthor() error {
	if !e.shouldPersist() || e.meta.author.LastName == "" {
		return nil
	}
	a := e.meta.author
	a.LastName = strings.TrimSpace(a.LastName)
	a.FirstName = strings.TrimSpace(a.FirstName)
	if a.LastName == "" {
		return nil
	}
	return e.sink.Author(a)
}

// endArticleID parses the primary or secondary document id. A malformed
// numeric id is fatal for the file.
func (e *Extractor) endArticleID(name string) error {
	text := strings.TrimSpace(e.cur.String())
	switch {
	case e.meta.inPMCID:
		e.meta.inPMCID = false
		n, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("%w: pmc article-id %q in %s", internalerr.ErrBadIdentifier, text, e.doc.File)
		}
		e.doc.PMCID = n
		e.resetContent()
	case e.meta.inPMID:
		e.meta.inPMID = false
		n, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("%w: pmid article-id %q in %s", internalerr.ErrBadIdentifier, text, e.doc.File)
		}
		e.doc.PMID = n
		e.resetContent()
	}
	return e.tags.pop(name)
}

// endInPubDate accumulates year/month pairs; unparsable values keep the
// unknown sentinels. The earliest collected date wins at article-meta
// close.
func (e *Extractor) endInPubDate(name string) error {
	switch name {
	case "year":
		if n, err := strconv.Atoi(strings.TrimSpace(e.cur.String())); err == nil {
			e.meta.year = n
		}
		e.resetContent()
	case "month":
		if n, err := strconv.Atoi(strings.TrimSpace(e.cur.String())); err == nil {
			e.meta.month = n
		}
		e.resetContent()
	case "pub-date":
		e.meta.dates = append(e.meta.dates, model.PubDate{Year: e.meta.year, Month: e.meta.month})
		e.meta.inPubDate = false
		e.meta.year = model.UnknownYear
		e.meta.month = model.UnknownMonth
	}
	return e.tags.pop(name)
}
