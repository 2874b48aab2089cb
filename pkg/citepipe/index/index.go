// Package index maintains the full-text search index over imported
// articles, backed by an SQLite FTS5 table.
package index

import (
	"context"
	"database/sql"
	"sync"

	_ "modernc.org/sqlite"
)

// SearchDoc is one article as it enters the full-text index.
type SearchDoc struct {
	PMCID    int
	File     string
	Title    string
	Abstract string
	Body     string
}

// Hit is one full-text search result.
type Hit struct {
	PMCID int
	Title string
}

// Indexer adds documents to the search index. Add buffers; Commit flushes
// the buffered documents in one transaction. Close flushes anything still
// buffered before releasing the index.
type Indexer interface {
	Add(ctx context.Context, d SearchDoc) error
	Commit(ctx context.Context) error
	Close() error
}

// sqliteIndexer implements Indexer on an FTS5 virtual table.
type sqliteIndexer struct {
	mu      sync.Mutex
	db      *sql.DB
	pending []SearchDoc
}

// Open opens (or creates) the full-text index at path.
func Open(ctx context.Context, path string) (Indexer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
CREATE VIRTUAL TABLE IF NOT EXISTS article_fts USING fts5(
	pmcid UNINDEXED,
	file UNINDEXED,
	title,
	abstract,
	body
);
`); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteIndexer{db: db}, nil
}

// Add buffers a document for the next Commit.
func (x *sqliteIndexer) Add(ctx context.Context, d SearchDoc) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.pending = append(x.pending, d)
	return nil
}

// Commit writes all buffered documents in a single transaction. A
// document already present under the same pmcid is replaced.
func (x *sqliteIndexer) Commit(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.pending) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	del, err := tx.PrepareContext(ctx, `DELETE FROM article_fts WHERE pmcid = ?`)
	if err != nil {
		return err
	}
	defer del.Close()
	ins, err := tx.PrepareContext(ctx, `
INSERT INTO article_fts (pmcid, file, title, abstract, body) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer ins.Close()

	for _, d := range x.pending {
		if _, err := del.ExecContext(ctx, d.PMCID); err != nil {
			return err
		}
		if _, err := ins.ExecContext(ctx, d.PMCID, d.File, d.Title, d.Abstract, d.Body); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	x.pending = x.pending[:0]
	return nil
}

// Close commits any buffered documents and closes the database.
func (x *sqliteIndexer) Close() error {
	err := x.Commit(context.Background())
	if cerr := x.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// Search runs an FTS5 match query against an index previously written by
// an Indexer from this package.
func Search(ctx context.Context, db *sql.DB, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `
SELECT pmcid, title FROM article_fts WHERE article_fts MATCH ? ORDER BY rank LIMIT ?;
`, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.PMCID, &h.Title); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
