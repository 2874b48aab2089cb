// Package model defines the record types produced by the import pipeline.
package model

import (
	"sort"
	"time"
)

// Sentinel values for unknown publication dates.
const (
	UnknownYear  = 5555
	UnknownMonth = 99
)

// Document is one imported article. PMCID is the primary external id;
// zero means absent, and documents without a PMCID are never persisted.
type Document struct {
	PMCID    int
	PMID     int
	Title    string
	Type     string
	Year     int
	Month    int
	Abstract string
	File     string
}

// NewDocument returns a Document with unknown-date sentinels set.
func NewDocument(file string) *Document {
	return &Document{Year: UnknownYear, Month: UnknownMonth, File: file}
}

// Author is one contributor of a document. LastName is required for the
// record to be kept.
type Author struct {
	PMCID     int
	LastName  string
	FirstName string
}

// Citation is one in-text citation occurrence. Count is the 1-based
// running occurrence number within the document; Group clusters citations
// that appear within a short character distance of each other. The
// cumulative counters snapshot the document position at occurrence time,
// and Section is the dotted section path (e.g. "2.1").
type Citation struct {
	PMCID      int
	RefID      string
	Count      int
	Group      int
	Chars      int
	Words      int
	Sentences  int
	Paragraphs int
	Section    string
}

// Reference is one bibliography entry. AuthorsKey and TitleKey are
// synthetic fallback identifiers derived from normalized text, used
// downstream when no external id is present.
type Reference struct {
	PMCID      int
	RefID      string
	PMID       int
	RefPMCID   int
	MedlineID  string
	DOI        string
	AuthorsKey string
	TitleKey   string
}

// PubDate is one publication date candidate collected from article
// metadata. The earliest of all candidates becomes the document date.
type PubDate struct {
	Year  int
	Month int
}

// SortPubDates orders dates ascending by year, then month. Unknown
// sentinel values sort last.
func SortPubDates(dates []PubDate) {
	sort.Slice(dates, func(i, j int) bool {
		if dates[i].Year != dates[j].Year {
			return dates[i].Year < dates[j].Year
		}
		return dates[i].Month < dates[j].Month
	})
}

// TypeSet is a set of accepted article type attributes.
type TypeSet map[string]struct{}

// NewTypeSet builds a TypeSet from the given type names.
func NewTypeSet(types ...string) TypeSet {
	s := make(TypeSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports whether t is in the set.
func (s TypeSet) Contains(t string) bool {
	_, ok := s[t]
	return ok
}

// AcceptedTypes returns the default allow-list of article types that are
// persisted and indexed.
func AcceptedTypes() TypeSet {
	return NewTypeSet(
		"research-article",
		"review-article",
		"case-report",
		"other",
		"brief-report",
		"report",
	)
}

// ImportRun is the audit record for one batch import.
type ImportRun struct {
	ID       string
	Root     string
	Started  time.Time
	Finished time.Time
	Files    int
	Failed   int
}
