// Package citepipe is the import pipeline facade. It turns a directory of
// PubMed Central article XML files into document, author, citation and
// reference records in a Store, plus an optional full-text index and
// plain-text rendering of each article body.
package citepipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/pgzip"
	"github.com/oklog/ulid/v2"

	"github.com/cognicore/citepipe/pkg/citepipe/config"
	"github.com/cognicore/citepipe/pkg/citepipe/extract"
	"github.com/cognicore/citepipe/pkg/citepipe/index"
	"github.com/cognicore/citepipe/pkg/citepipe/internalerr"
	"github.com/cognicore/citepipe/pkg/citepipe/model"
	"github.com/cognicore/citepipe/pkg/citepipe/store"
	"github.com/cognicore/citepipe/pkg/citepipe/store/sqlite"
	"github.com/cognicore/citepipe/pkg/citepipe/tokenize"
)

// bodyTagRe locates the body element delimiters. A file must contain
// exactly one body.
var bodyTagRe = regexp.MustCompile(`(?s)</?body[^>]*>`)

// plainBreakRe and plainStripRe turn marked-up body XML into the
// plain-text rendering: section and paragraph boundaries become line
// breaks, all remaining markup and character references are dropped.
var (
	plainBreakRe = regexp.MustCompile(`</?(?:sec|p)(?:\s[^>]*)?>`)
	plainStripRe = regexp.MustCompile(`(?s)<[^>]*>|&#\w{1,6};`)
)

// Importer is the main import facade
type Importer struct {
	cfg      config.Config
	newStore func(ctx context.Context) (store.Store, error)
	indexer  index.Indexer
	tok      *tokenize.Tokenizer
	accepted model.TypeSet
	logf     func(format string, args ...any)
}

// Options configures an Importer instance
type Options struct {
	Config config.Config

	// NewStore opens a store connection. Each worker opens its own. Nil
	// means SQLite at Config.DB.
	NewStore func(ctx context.Context) (store.Store, error)

	// Indexer receives accepted documents for full-text search. Nil
	// disables indexing.
	Indexer index.Indexer

	// Tokenizer marks word and sentence boundaries in article bodies.
	// Nil means the English Punkt-based default.
	Tokenizer *tokenize.Tokenizer

	// Logf receives progress and warning lines. Nil means log.Printf.
	Logf func(format string, args ...any)
}

// New creates an Importer with the given dependencies
func New(opts Options) (*Importer, error) {
	imp := &Importer{
		cfg:      opts.Config,
		newStore: opts.NewStore,
		indexer:  opts.Indexer,
		tok:      opts.Tokenizer,
		accepted: opts.Config.Accepted(),
		logf:     opts.Logf,
	}
	if imp.newStore == nil {
		imp.newStore = func(ctx context.Context) (store.Store, error) {
			return sqlite.Open(ctx, imp.cfg.DB)
		}
	}
	if imp.tok == nil {
		detect, err := tokenize.NewEnglishDetector()
		if err != nil {
			return nil, fmt.Errorf("loading sentence detector: %w", err)
		}
		imp.tok = tokenize.New(detect)
	}
	if imp.logf == nil {
		imp.logf = log.Printf
	}
	if imp.cfg.Workers <= 0 {
		imp.cfg.Workers = 1
	}
	if imp.cfg.CommitEvery <= 0 {
		imp.cfg.CommitEvery = 500
	}
	return imp, nil
}

// Run imports every article file under the configured XML directory and
// records a summary row when done. Files that fail to parse are logged
// and counted; they never abort the batch.
func (imp *Importer) Run(ctx context.Context) (model.ImportRun, error) {
	files, err := imp.collectFiles()
	if err != nil {
		return model.ImportRun{}, err
	}

	run := model.ImportRun{
		ID:      ulid.Make().String(),
		Root:    imp.cfg.XMLDir,
		Started: time.Now(),
		Files:   len(files),
	}
	imp.logf("importing %d files from %s", len(files), imp.cfg.XMLDir)

	jobs := make(chan string)
	var (
		wg        sync.WaitGroup
		failed    int64
		processed int64
	)

	for i := 0; i < imp.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := imp.newStore(ctx)
			if err != nil {
				imp.logf("opening store: %v", err)
				for range jobs {
					atomic.AddInt64(&failed, 1)
				}
				return
			}
			defer st.Close()

			for path := range jobs {
				if err := imp.ProcessFile(ctx, st, path); err != nil {
					if errors.Is(err, internalerr.ErrNoBody) {
						imp.logf("skipping %s: %v", path, err)
					} else {
						imp.logf("importing %s: %v", path, err)
						atomic.AddInt64(&failed, 1)
					}
				}
				n := atomic.AddInt64(&processed, 1)
				if imp.indexer != nil && n%int64(imp.cfg.CommitEvery) == 0 {
					if err := imp.indexer.Commit(ctx); err != nil {
						imp.logf("committing index: %v", err)
					}
				}
			}
		}()
	}

	for _, f := range files {
		select {
		case jobs <- f:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return run, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if imp.indexer != nil {
		if err := imp.indexer.Commit(ctx); err != nil {
			return run, fmt.Errorf("committing index: %w", err)
		}
	}

	run.Finished = time.Now()
	run.Failed = int(failed)

	st, err := imp.newStore(ctx)
	if err != nil {
		return run, err
	}
	defer st.Close()
	if err := st.RecordImportRun(ctx, run); err != nil {
		return run, err
	}
	imp.logf("import %s done: %d files, %d failed", run.ID, run.Files, run.Failed)
	return run, nil
}

// collectFiles walks the XML directory for article files, plain or
// gzip-compressed.
func (imp *Importer) collectFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(imp.cfg.XMLDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".nxml") || strings.HasSuffix(path, ".nxml.gz") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// ProcessFile imports a single article file into st: tokenize the body,
// write the plain-text rendering, extract records and index the result.
// Any previously imported data for the same document is replaced. A panic
// while handling the file is returned as that file's error, so one broken
// file cannot take down a batch.
func (imp *Importer) ProcessFile(ctx context.Context, st store.Store, path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processing %s: panic: %v", path, r)
		}
	}()

	raw, err := imp.readFile(path)
	if err != nil {
		return err
	}

	pre, openTag, body, closeTag, post, err := splitBody(raw)
	if err != nil {
		return fmt.Errorf("%w: %s", err, path)
	}

	rel := path
	if r, rerr := filepath.Rel(imp.cfg.XMLDir, path); rerr == nil {
		rel = r
	}

	plain := renderPlainText(body)
	if imp.cfg.TxtDir != "" {
		if err := imp.writePlainText(rel, plain); err != nil {
			return err
		}
	}

	marked := imp.tok.MarkUp(body)
	doc := model.NewDocument(rel)

	sink := &storeSink{ctx: ctx, st: st, file: rel}
	ex := extract.New(doc, sink, extract.Options{
		Accepted: imp.accepted,
		Warnf:    imp.logf,
	})
	if err := ex.Consume(strings.NewReader(pre + openTag + marked + closeTag + post)); err != nil {
		return err
	}
	if !sink.flushed {
		return nil
	}

	if imp.indexer != nil {
		if err := imp.indexer.Add(ctx, index.SearchDoc{
			PMCID:    doc.PMCID,
			File:     rel,
			Title:    strings.TrimSpace(doc.Title),
			Abstract: doc.Abstract,
			Body:     plain,
		}); err != nil {
			return fmt.Errorf("indexing %s: %w", rel, err)
		}
	}
	return nil
}

// readFile loads an article file, transparently decompressing .gz.
func (imp *Importer) readFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("decompressing %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// splitBody cuts the document at its body element delimiters, keeping the
// delimiter bytes so the document can be reassembled unchanged.
func splitBody(xml string) (pre, openTag, body, closeTag, post string, err error) {
	locs := bodyTagRe.FindAllStringIndex(xml, -1)
	if len(locs) != 2 {
		return "", "", "", "", "", internalerr.ErrNoBody
	}
	pre = xml[:locs[0][0]]
	openTag = xml[locs[0][0]:locs[0][1]]
	body = xml[locs[0][1]:locs[1][0]]
	closeTag = xml[locs[1][0]:locs[1][1]]
	post = xml[locs[1][1]:]
	return pre, openTag, body, closeTag, post, nil
}

// renderPlainText strips body XML down to readable text with line breaks
// at section and paragraph boundaries.
func renderPlainText(body string) string {
	out := plainBreakRe.ReplaceAllString(body, "\n")
	out = plainStripRe.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// writePlainText stores the rendering under the text directory, mirroring
// the article file's relative path.
func (imp *Importer) writePlainText(rel, plain string) error {
	name := strings.TrimSuffix(rel, ".gz")
	name = strings.TrimSuffix(name, ".nxml") + ".txt"
	path := filepath.Join(imp.cfg.TxtDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(plain), 0o644)
}

// storeSink adapts a Store to the extractor's Sink. Dependent records are
// buffered until the document record arrives, then written after it so
// referential integrity holds; a document that is never emitted persists
// nothing.
type storeSink struct {
	ctx     context.Context
	st      store.Store
	file    string
	flushed bool

	authors   []model.Author
	citations []model.Citation
	refs      []model.Reference
}

func (s *storeSink) Author(a model.Author) error {
	s.authors = append(s.authors, a)
	return nil
}

func (s *storeSink) Citation(c model.Citation) error {
	s.citations = append(s.citations, c)
	return nil
}

func (s *storeSink) Reference(r model.Reference) error {
	s.refs = append(s.refs, r)
	return nil
}

func (s *storeSink) Document(d model.Document) error {
	if err := s.st.DeleteDocumentData(s.ctx, d.PMCID); err != nil {
		return fmt.Errorf("clearing document %d from %s: %w", d.PMCID, s.file, err)
	}
	if err := s.st.UpsertDocument(s.ctx, d); err != nil {
		return fmt.Errorf("storing document %d from %s: %w", d.PMCID, s.file, err)
	}
	for _, a := range s.authors {
		if err := s.st.InsertAuthor(s.ctx, a); err != nil {
			return fmt.Errorf("storing author of %d from %s: %w", d.PMCID, s.file, err)
		}
	}
	for _, c := range s.citations {
		if err := s.st.InsertCitation(s.ctx, c); err != nil {
			return fmt.Errorf("storing citation %s of %d from %s: %w", c.RefID, d.PMCID, s.file, err)
		}
	}
	for _, r := range s.refs {
		if err := s.st.InsertReference(s.ctx, r); err != nil {
			return fmt.Errorf("storing reference %s of %d from %s: %w", r.RefID, d.PMCID, s.file, err)
		}
	}
	s.flushed = true
	return nil
}
