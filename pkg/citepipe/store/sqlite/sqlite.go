package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/citepipe/pkg/citepipe/model"
	"github.com/cognicore/citepipe/pkg/citepipe/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode enabled and creates the
// schema if needed. Multiple import workers may each hold their own
// connection to the same path.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=10000"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS documents (
	pmcid INTEGER PRIMARY KEY,
	pmid INTEGER,
	title TEXT,
	type TEXT,
	year INTEGER,
	month INTEGER,
	abstract TEXT,
	file TEXT
);

CREATE TABLE IF NOT EXISTS authors (
	pmcid INTEGER NOT NULL,
	last_name TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	FOREIGN KEY(pmcid) REFERENCES documents(pmcid) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_authors_pmcid ON authors(pmcid);

CREATE TABLE IF NOT EXISTS citations (
	pmcid INTEGER NOT NULL,
	ref_id TEXT NOT NULL,
	cnt INTEGER NOT NULL,
	grp INTEGER NOT NULL,
	chars INTEGER NOT NULL,
	words INTEGER NOT NULL,
	sentences INTEGER NOT NULL,
	paragraphs INTEGER NOT NULL,
	section TEXT,
	FOREIGN KEY(pmcid) REFERENCES documents(pmcid) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_citations_pmcid ON citations(pmcid);

CREATE TABLE IF NOT EXISTS refs (
	pmcid INTEGER NOT NULL,
	ref_id TEXT NOT NULL,
	pmid INTEGER,
	ref_pmcid INTEGER,
	medline_id TEXT,
	doi TEXT,
	authors_key TEXT,
	title_key TEXT,
	PRIMARY KEY(pmcid, ref_id),
	FOREIGN KEY(pmcid) REFERENCES documents(pmcid) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS import_runs (
	id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	started TEXT NOT NULL,
	finished TEXT NOT NULL,
	files INTEGER NOT NULL,
	failed INTEGER NOT NULL
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertDocument inserts or replaces a document row. Authors, citations
// and references are keyed on pmcid and cascade on delete.
func (s *sqliteStore) UpsertDocument(ctx context.Context, d model.Document) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO documents (pmcid, pmid, title, type, year, month, abstract, file)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(pmcid) DO UPDATE SET
	pmid=excluded.pmid,
	title=excluded.title,
	type=excluded.type,
	year=excluded.year,
	month=excluded.month,
	abstract=excluded.abstract,
	file=excluded.file;
`, d.PMCID, nullInt(d.PMID), d.Title, d.Type, d.Year, d.Month, d.Abstract, d.File)
	return err
}

// GetDocument retrieves a document by its PMC id
func (s *sqliteStore) GetDocument(ctx context.Context, pmcid int) (model.Document, bool, error) {
	var (
		d    model.Document
		pmid sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT pmcid, pmid, title, type, year, month, abstract, file
FROM documents
WHERE pmcid = ?;
`, pmcid).Scan(&d.PMCID, &pmid, &d.Title, &d.Type, &d.Year, &d.Month, &d.Abstract, &d.File)
	if err == sql.ErrNoRows {
		return model.Document{}, false, nil
	}
	if err != nil {
		return model.Document{}, false, err
	}
	d.PMID = int(pmid.Int64)
	return d, true, nil
}

// CountDocuments returns the number of stored documents
func (s *sqliteStore) CountDocuments(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total)
	return total, err
}

// InsertAuthor appends an author row in document order
func (s *sqliteStore) InsertAuthor(ctx context.Context, a model.Author) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO authors (pmcid, last_name, first_name) VALUES (?, ?, ?);
`, a.PMCID, a.LastName, a.FirstName)
	return err
}

// GetAuthors retrieves the authors of a document in insertion order
func (s *sqliteStore) GetAuthors(ctx context.Context, pmcid int) ([]model.Author, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT pmcid, last_name, first_name FROM authors WHERE pmcid = ? ORDER BY rowid;
`, pmcid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var authors []model.Author
	for rows.Next() {
		var a model.Author
		if err := rows.Scan(&a.PMCID, &a.LastName, &a.FirstName); err != nil {
			return nil, err
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// InsertCitation appends a citation occurrence row
func (s *sqliteStore) InsertCitation(ctx context.Context, c model.Citation) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO citations (pmcid, ref_id, cnt, grp, chars, words, sentences, paragraphs, section)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`, c.PMCID, c.RefID, c.Count, c.Group, c.Chars, c.Words, c.Sentences, c.Paragraphs, c.Section)
	return err
}

// GetCitations retrieves all citation occurrences of a document ordered
// by occurrence count
func (s *sqliteStore) GetCitations(ctx context.Context, pmcid int) ([]model.Citation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT pmcid, ref_id, cnt, grp, chars, words, sentences, paragraphs, section
FROM citations
WHERE pmcid = ?
ORDER BY cnt;
`, pmcid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cits []model.Citation
	for rows.Next() {
		var c model.Citation
		if err := rows.Scan(&c.PMCID, &c.RefID, &c.Count, &c.Group, &c.Chars,
			&c.Words, &c.Sentences, &c.Paragraphs, &c.Section); err != nil {
			return nil, err
		}
		cits = append(cits, c)
	}
	return cits, rows.Err()
}

// InsertReference inserts or replaces a bibliography entry
func (s *sqliteStore) InsertReference(ctx context.Context, r model.Reference) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO refs (pmcid, ref_id, pmid, ref_pmcid, medline_id, doi, authors_key, title_key)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(pmcid, ref_id) DO UPDATE SET
	pmid=excluded.pmid,
	ref_pmcid=excluded.ref_pmcid,
	medline_id=excluded.medline_id,
	doi=excluded.doi,
	authors_key=excluded.authors_key,
	title_key=excluded.title_key;
`, r.PMCID, r.RefID, nullInt(r.PMID), nullInt(r.RefPMCID),
		nullString(r.MedlineID), nullString(r.DOI),
		nullString(r.AuthorsKey), nullString(r.TitleKey))
	return err
}

// GetReferences retrieves the bibliography of a document in list order
func (s *sqliteStore) GetReferences(ctx context.Context, pmcid int) ([]model.Reference, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT pmcid, ref_id, pmid, ref_pmcid, medline_id, doi, authors_key, title_key
FROM refs
WHERE pmcid = ?
ORDER BY rowid;
`, pmcid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []model.Reference
	for rows.Next() {
		var (
			r                  model.Reference
			pmid, refPMCID     sql.NullInt64
			medline, doi       sql.NullString
			authorsK, titleKey sql.NullString
		)
		if err := rows.Scan(&r.PMCID, &r.RefID, &pmid, &refPMCID,
			&medline, &doi, &authorsK, &titleKey); err != nil {
			return nil, err
		}
		r.PMID = int(pmid.Int64)
		r.RefPMCID = int(refPMCID.Int64)
		r.MedlineID = medline.String
		r.DOI = doi.String
		r.AuthorsKey = authorsK.String
		r.TitleKey = titleKey.String
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// DeleteDocumentData removes a document and its dependent rows so a file
// can be re-imported cleanly.
func (s *sqliteStore) DeleteDocumentData(ctx context.Context, pmcid int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM authors WHERE pmcid = ?`,
		`DELETE FROM citations WHERE pmcid = ?`,
		`DELETE FROM refs WHERE pmcid = ?`,
		`DELETE FROM documents WHERE pmcid = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, pmcid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecordImportRun stores the summary of a finished import
func (s *sqliteStore) RecordImportRun(ctx context.Context, run model.ImportRun) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO import_runs (id, root, started, finished, files, failed)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	finished=excluded.finished,
	files=excluded.files,
	failed=excluded.failed;
`, run.ID, run.Root,
		run.Started.UTC().Format(time.RFC3339),
		run.Finished.UTC().Format(time.RFC3339),
		run.Files, run.Failed)
	return err
}

// GetImportRuns retrieves the most recent import runs, newest first
func (s *sqliteStore) GetImportRuns(ctx context.Context, limit int) ([]model.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, root, started, finished, files, failed
FROM import_runs
ORDER BY started DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var (
			run               model.ImportRun
			started, finished string
		)
		if err := rows.Scan(&run.ID, &run.Root, &started, &finished, &run.Files, &run.Failed); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(time.RFC3339, started); perr == nil {
			run.Started = t
		}
		if t, perr := time.Parse(time.RFC3339, finished); perr == nil {
			run.Finished = t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
