// Package extract implements the streaming content extractor. It consumes
// the tokenized article XML as start-tag/end-tag/text events and builds
// document metadata, author lists, in-text citation occurrences and
// bibliography entries, emitting finished records through a Sink.
package extract

import (
	"log"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/citepipe/pkg/citepipe/model"
	"github.com/cognicore/citepipe/pkg/citepipe/tokenize"
)

// Sink receives finished records. Implementations are expected to be
// fire-and-forget; any error is fatal to the file being parsed.
type Sink interface {
	Document(d model.Document) error
	Author(a model.Author) error
	Citation(c model.Citation) error
	Reference(r model.Reference) error
}

// region is the top-level document part currently being parsed. The
// regions are mutually exclusive; front matter additionally wraps the
// article metadata and is tracked separately.
type region int

const (
	regionNone region = iota
	regionMeta
	regionBody
	regionRefList
)

// Options configures an Extractor.
type Options struct {
	// Accepted is the allow-list of article types that are persisted and
	// indexed. Nil means model.AcceptedTypes().
	Accepted model.TypeSet

	// Warnf receives non-fatal parse diagnostics. Nil means log.Printf.
	Warnf func(format string, args ...any)
}

// Extractor is the tag-driven state machine. Create one per file with New,
// feed it StartElement/EndElement/Text events in document order and finish
// with EndDocument.
type Extractor struct {
	doc      *model.Document
	sink     Sink
	accepted model.TypeSet
	warnf    func(format string, args ...any)

	tags    tagStack
	region  region
	inFront bool

	meta metaState
	body bodyState
	cit  citState
	refs refState

	cur strings.Builder
}

// metaState is the article-metadata sub-state.
type metaState struct {
	inAbstract     bool
	inTitle        bool
	inRelated      bool
	inContribGroup bool
	inContrib      bool
	inName         bool
	inPubDate      bool
	inPMCID        bool
	inPMID         bool
	author         model.Author
	dates          []model.PubDate
	year           int
	month          int
}

// bodyState carries the running position counters.
type bodyState struct {
	secLevel    int
	secCount    map[int]int
	paragraphs  int
	sentences   int
	words       int
	chars       int
	skipElement bool
}

// citMode is the deferred-resolution automaton for abbreviated citation
// ranges: a single-target citation close to its predecessor is held
// pending until its closing tag decides range-expansion or plain emission.
type citMode int

const (
	citIdle citMode = iota
	citPending
)

type citState struct {
	mode         citMode
	inCitation   bool
	multi        bool
	considerPrev bool
	prev         *model.Citation
	cur          *model.Citation
	pendingText  strings.Builder
	count        int
	group        int
	lastCharCnt  int
	ranges       map[string][]model.Citation
	refKeys      []string
	sawRange     bool
}

// refState is the reference-list sub-state.
type refState struct {
	inItem     bool
	cur        model.Reference
	inAuthors  bool
	authorsSet bool
	authKey    strings.Builder
	titleRank  int
	inArtTitle bool
	inTitle    bool
	inTransT   bool
	inSource   bool
	idField    string
}

// Title-source precedence, higher rank wins.
const (
	rankSource = 1 + iota
	rankTransTitle
	rankTitle
	rankArticleTitle
)

// Citation clustering constants: a citation starts a new group when more
// than groupCharGap characters have passed since the last one, and a
// single citation within abbrevCharWindow characters of its predecessor
// may open an abbreviated range.
const (
	groupCharGap     = 10
	abbrevCharWindow = 11
)

// New creates an Extractor writing into doc and emitting records to sink.
func New(doc *model.Document, sink Sink, opts Options) *Extractor {
	accepted := opts.Accepted
	if accepted == nil {
		accepted = model.AcceptedTypes()
	}
	warnf := opts.Warnf
	if warnf == nil {
		warnf = log.Printf
	}
	e := &Extractor{
		doc:      doc,
		sink:     sink,
		accepted: accepted,
		warnf:    warnf,
	}
	e.meta.year = model.UnknownYear
	e.meta.month = model.UnknownMonth
	e.body.secCount = make(map[int]int)
	e.cit.ranges = make(map[string][]model.Citation)
	return e
}

// shouldPersist reports whether records for this document are emitted at
// all. Both conditions are known before any body content arrives, so
// rejected documents are parsed transiently but persist nothing.
func (e *Extractor) shouldPersist() bool {
	return e.doc.PMCID != 0 && e.accepted.Contains(e.doc.Type)
}

// StartElement handles an opening tag with its attributes.
func (e *Extractor) StartElement(name string, attrs map[string]string) error {
	switch e.region {
	case regionBody:
		return e.startInBody(name, attrs)
	case regionRefList:
		return e.startInRefList(name, attrs)
	case regionMeta:
		e.startInMeta(name, attrs)
		return nil
	default:
		return e.startOther(name, attrs)
	}
}

// EndElement handles a closing tag.
func (e *Extractor) EndElement(name string) error {
	switch e.region {
	case regionBody:
		return e.endInBody(name)
	case regionRefList:
		return e.endInRefList(name)
	case regionMeta:
		return e.endInMeta(name)
	default:
		return e.endOther(name)
	}
}

// Text handles character data. Whether it accumulates into the counters
// and the content buffer depends on the active tag context; text that may
// be the trailing piece of a just-closed citation is always captured.
func (e *Extractor) Text(s string) {
	if e.region == regionBody {
		if !e.body.skipElement {
			e.extractParsed(s)
			return
		}
		// Skip elements were excluded from sentence/word marking by the
		// tokenizer; their prose still advances the character count.
		if e.checkAbbrev(utf8.RuneCountInString(s)) {
			e.extractLiteral(s)
			return
		}
		if !e.cit.inCitation {
			e.body.chars += utf8.RuneCountInString(s)
		}
		return
	}
	if e.meta.inAbstract {
		if !e.body.skipElement {
			e.doc.Abstract += e.extractParsed(s)
		}
		return
	}
	if !e.tags.top().skip {
		e.extractLiteral(s)
		return
	}
	if e.checkAbbrev(utf8.RuneCountInString(s)) {
		e.extractLiteral(s)
		return
	}
	if !e.cit.inCitation && e.region != regionMeta && !e.inFront && e.region != regionRefList {
		e.body.chars += utf8.RuneCountInString(s)
	}
}

// EndDocument expands any recorded abbreviation ranges against the
// reference list and emits the document record.
func (e *Extractor) EndDocument() error {
	if n := e.tags.depth(); n != 0 {
		e.warnf("unbalanced markup in %s: %d unclosed elements", e.doc.File, n)
	}
	if e.cit.sawRange {
		if err := e.expandRanges(); err != nil {
			return err
		}
	}
	if !e.shouldPersist() {
		return nil
	}
	d := *e.doc
	d.Title = strings.TrimSpace(d.Title)
	return e.sink.Document(d)
}

// extractParsed strips marker tokens from tokenized text, advances the
// word/sentence/character counters and accumulates the remaining content.
func (e *Extractor) extractParsed(s string) string {
	stripped, words, sents := tokenize.StripMarkers(s)
	e.body.words += words
	e.body.sentences += sents
	if e.countsChars() {
		e.body.chars += utf8.RuneCountInString(stripped)
	}
	e.cur.WriteString(stripped)
	if e.cit.mode == citPending {
		e.cit.pendingText.WriteString(stripped)
	}
	return stripped
}

// extractLiteral accumulates raw text without marker processing.
func (e *Extractor) extractLiteral(s string) {
	e.cur.WriteString(s)
	if e.cit.mode == citPending {
		e.cit.pendingText.WriteString(s)
	}
	if !e.cit.inCitation && !e.inFront && e.region != regionRefList {
		e.body.chars += utf8.RuneCountInString(s)
	}
}

func (e *Extractor) countsChars() bool {
	return !e.cit.inCitation && e.region != regionMeta && !e.inFront && e.region != regionRefList
}

func (e *Extractor) resetContent() {
	e.cur.Reset()
}

// sectionPath joins the per-depth section counters into the dotted path
// active at the current position, e.g. "3.1".
func (e *Extractor) sectionPath() string {
	var b strings.Builder
	for i := 1; i <= e.body.secLevel; i++ {
		if b.Len() != 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(e.body.secCount[i]))
	}
	return b.String()
}

func (e *Extractor) openSection() {
	e.body.secLevel++
	e.body.secCount[e.body.secLevel]++
}

// closeSection discards the counter one level deeper so counts restart
// under sibling sections.
func (e *Extractor) closeSection() {
	delete(e.body.secCount, e.body.secLevel+1)
	e.body.secLevel--
}

func (e *Extractor) resetBodyCounters() {
	e.body.secLevel = 0
	e.body.secCount = make(map[int]int)
	e.body.paragraphs = 0
	e.body.sentences = 0
	e.body.words = 0
	e.body.chars = 0
	e.cit.count = 0
	e.cit.group = 0
	e.cit.lastCharCnt = 0
}
