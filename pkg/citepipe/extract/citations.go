package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cognicore/citepipe/pkg/citepipe/model"
)

// abbrevRangeRe matches the literal text of an abbreviated citation range
// such as "3-7", "[3]-[7]" or "3 – 7", accepting the usual dash variants
// (hyphen, unicode hyphens, en dash, minus, soft hyphen).
var abbrevRangeRe = regexp.MustCompile(
	`^\W?\s*([0-9]+)\s*\W?\s*[-\x{2010}\x{2011}\x{2012}\x{2013}\x{2212}\x{00AD}]\s*\W?\s*([0-9]+)\s*\W?$`)

// processCitation handles the opening of a citation marker. Markers with
// multiple space-separated targets emit one row per target immediately and
// share a citation group. A single target either emits immediately or, if
// the previous single citation is close enough, goes pending until the
// closing tag decides between range expansion and plain emission.
func (e *Extractor) processCitation(attrs map[string]string) error {
	rids := strings.Fields(attrs["rid"])
	if len(rids) == 0 {
		return nil
	}

	section := e.sectionPath()

	if e.body.chars > e.cit.lastCharCnt+groupCharGap || e.cit.group == 0 {
		e.cit.group++
	}
	e.cit.lastCharCnt = e.body.chars

	if len(rids) > 1 {
		for _, rid := range rids {
			e.cit.count++
			if err := e.emitCitation(e.snapshot(rid, e.cit.count, section)); err != nil {
				return err
			}
		}
		e.cit.multi = true
		e.resetContent()
		return nil
	}

	if !e.cit.considerPrev {
		e.cit.count++
		c := e.snapshot(rids[0], e.cit.count, section)
		if err := e.emitCitation(c); err != nil {
			return err
		}
		e.cit.prev = &c
		e.resetContent()
		return nil
	}

	// Close enough to the previous citation: hold it back. The occurrence
	// count is settled when the closing tag arrives.
	c := e.snapshot(rids[0], 0, section)
	e.cit.cur = &c
	e.cit.mode = citPending
	e.cit.pendingText.Reset()
	return nil
}

// finishPendingCitation resolves a pending citation at its closing tag.
// The content accumulated since the previous citation ends up spanning
// both markers ("3" + "-" + "7"); if it matches the range pattern every
// reference between the previous and current target is owed a citation
// row, which is recorded against the starting reference key for
// end-of-document expansion. Otherwise the held citation is emitted as a
// plain single citation.
func (e *Extractor) finishPendingCitation() error {
	text := strings.TrimSpace(e.cur.String())
	if m := abbrevRangeRe.FindStringSubmatch(text); m != nil {
		start, err1 := strconv.Atoi(m[1])
		end, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			return fmt.Errorf("parsing abbreviated range between %s and %s: %q",
				e.cit.prev.RefID, e.cit.cur.RefID, text)
		}
		held := *e.cit.cur
		held.Count = e.cit.prev.Count + (end - start)
		held.Group = e.cit.group
		e.cit.ranges[e.cit.prev.RefID] = append(e.cit.ranges[e.cit.prev.RefID], held)
		e.cit.count += end - start
		e.cit.sawRange = true
		e.cit.prev = nil
		e.cit.cur = nil
		e.cit.inCitation = false
		e.cit.considerPrev = false
		e.cit.mode = citIdle
		e.resetContent()
		return e.tags.pop("xref")
	}

	e.cit.count++
	c := *e.cit.cur
	c.Count = e.cit.count
	c.Group = e.cit.group
	if err := e.emitCitation(c); err != nil {
		return err
	}
	e.cit.prev = &c
	e.cit.cur = nil
	e.cit.inCitation = false
	e.cit.considerPrev = true
	e.cit.mode = citIdle
	e.resetContent()
	// The held marker's own text becomes the start of a possible next
	// abbreviated range.
	e.cur.WriteString(e.cit.pendingText.String())
	e.cit.pendingText.Reset()
	return e.tags.pop("xref")
}

// endCitation handles the closing tag of a citation marker.
func (e *Extractor) endCitation() error {
	if e.cit.mode == citPending {
		return e.finishPendingCitation()
	}
	if e.cit.multi {
		e.cit.multi = false
		e.cit.inCitation = false
		e.cit.considerPrev = false
		e.resetContent()
		return e.tags.pop("xref")
	}
	e.cit.inCitation = false
	// A marker without a target records nothing; only a recorded citation
	// can anchor a pending abbreviation.
	e.cit.considerPrev = e.cit.prev != nil
	return e.tags.pop("xref")
}

// checkAbbrev reports whether text of the given length must be captured
// because it may belong to an abbreviated citation: inside a marker,
// pending resolution, or trailing a just-closed citation within the
// abbreviation window.
func (e *Extractor) checkAbbrev(length int) bool {
	if e.cit.inCitation {
		return true
	}
	if e.cit.considerPrev && e.cit.prev != nil &&
		e.body.chars+length-e.cit.prev.Chars <= abbrevCharWindow {
		return true
	}
	if e.cit.mode == citPending {
		return true
	}
	e.cit.considerPrev = false
	return false
}

// expandRanges resolves the recorded abbreviation ranges positionally
// against the accumulated reference keys: every reference strictly after
// the starting key up to and including the ending key gets a citation row
// with interpolated occurrence counts.
func (e *Extractor) expandRanges() error {
	for _, startRid := range e.cit.refKeys {
		ends, ok := e.cit.ranges[startRid]
		if !ok {
			continue
		}
		delete(e.cit.ranges, startRid)
		startIdx := indexOf(e.cit.refKeys, startRid)
		for _, endCit := range ends {
			endIdx := indexOf(e.cit.refKeys, endCit.RefID)
			if endIdx <= startIdx {
				e.warnf("abbreviated range %s..%s not resolvable in reference list of %s",
					startRid, endCit.RefID, e.doc.File)
				continue
			}
			iter := endIdx - (startIdx + 1)
			for i := startIdx + 1; i <= endIdx; i++ {
				c := endCit
				c.RefID = e.cit.refKeys[i]
				c.Count = endCit.Count - iter
				if err := e.emitCitation(c); err != nil {
					return err
				}
				iter--
			}
		}
	}
	for startRid, ends := range e.cit.ranges {
		for _, endCit := range ends {
			e.warnf("abbreviated range %s..%s has no starting reference in %s",
				startRid, endCit.RefID, e.doc.File)
		}
	}
	return nil
}

// snapshot captures a citation at the current document position.
func (e *Extractor) snapshot(rid string, count int, section string) model.Citation {
	return model.Citation{
		PMCID:      e.doc.PMCID,
		RefID:      strings.TrimSpace(rid),
		Count:      count,
		Group:      e.cit.group,
		Chars:      e.body.chars,
		Words:      e.body.words,
		Sentences:  e.body.sentences,
		Paragraphs: e.body.paragraphs,
		Section:    section,
	}
}

func (e *Extractor) emitCitation(c model.Citation) error {
	if !e.shouldPersist() {
		return nil
	}
	return e.sink.Citation(c)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
