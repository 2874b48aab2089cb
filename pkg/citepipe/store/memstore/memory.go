package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/citepipe/pkg/citepipe/model"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu        sync.RWMutex
	docs      map[int]model.Document
	authors   map[int][]model.Author
	citations map[int][]model.Citation
	refs      map[int][]model.Reference
	runs      []model.ImportRun
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		docs:      make(map[int]model.Document),
		authors:   make(map[int][]model.Author),
		citations: make(map[int][]model.Citation),
		refs:      make(map[int][]model.Reference),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// UpsertDocument inserts or replaces a document, keyed by PMC id.
func (s *Store) UpsertDocument(ctx context.Context, d model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.PMCID] = d
	return nil
}

// GetDocument returns a document by PMC id.
func (s *Store) GetDocument(ctx context.Context, pmcid int) (model.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[pmcid]
	return d, ok, nil
}

// CountDocuments returns the number of stored documents.
func (s *Store) CountDocuments(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

// InsertAuthor appends an author in document order.
func (s *Store) InsertAuthor(ctx context.Context, a model.Author) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authors[a.PMCID] = append(s.authors[a.PMCID], a)
	return nil
}

// GetAuthors returns the authors of a document in insertion order.
func (s *Store) GetAuthors(ctx context.Context, pmcid int) ([]model.Author, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Author(nil), s.authors[pmcid]...), nil
}

// InsertCitation appends a citation occurrence.
func (s *Store) InsertCitation(ctx context.Context, c model.Citation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.citations[c.PMCID] = append(s.citations[c.PMCID], c)
	return nil
}

// GetCitations returns all citation occurrences of a document ordered by
// occurrence count.
func (s *Store) GetCitations(ctx context.Context, pmcid int) ([]model.Citation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cits := append([]model.Citation(nil), s.citations[pmcid]...)
	sort.SliceStable(cits, func(i, j int) bool { return cits[i].Count < cits[j].Count })
	return cits, nil
}

// InsertReference inserts or replaces a bibliography entry.
func (s *Store) InsertReference(ctx context.Context, r model.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := s.refs[r.PMCID]
	for i := range refs {
		if refs[i].RefID == r.RefID {
			refs[i] = r
			return nil
		}
	}
	s.refs[r.PMCID] = append(refs, r)
	return nil
}

// GetReferences returns the bibliography of a document in list order.
func (s *Store) GetReferences(ctx context.Context, pmcid int) ([]model.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Reference(nil), s.refs[pmcid]...), nil
}

// DeleteDocumentData removes a document and all its dependent records.
func (s *Store) DeleteDocumentData(ctx context.Context, pmcid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, pmcid)
	delete(s.authors, pmcid)
	delete(s.citations, pmcid)
	delete(s.refs, pmcid)
	return nil
}

// RecordImportRun stores the summary of a finished import.
func (s *Store) RecordImportRun(ctx context.Context, run model.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = run
			return nil
		}
	}
	s.runs = append(s.runs, run)
	return nil
}

// GetImportRuns returns the most recent import runs, newest first.
func (s *Store) GetImportRuns(ctx context.Context, limit int) ([]model.ImportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	runs := append([]model.ImportRun(nil), s.runs...)
	sort.Slice(runs, func(i, j int) bool { return runs[i].Started.After(runs[j].Started) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
