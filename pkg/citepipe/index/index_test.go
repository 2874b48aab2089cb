package index

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func TestIndexAddCommitSearch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fts.db")

	idx, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	docs := []SearchDoc{
		{PMCID: 1, File: "a.nxml", Title: "Mitochondrial function", Body: "Cells need energy."},
		{PMCID: 2, File: "b.nxml", Title: "Viral replication", Body: "Viruses replicate fast."},
	}
	for _, d := range docs {
		if err := idx.Add(ctx, d); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := idx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	hits, err := Search(ctx, db, "mitochondrial", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].PMCID != 1 {
		t.Errorf("hits = %+v, want document 1", hits)
	}

	hits, err = Search(ctx, db, "replicate", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].PMCID != 2 {
		t.Errorf("hits = %+v, want document 2", hits)
	}
}

func TestIndexReplacesOnSamePMCID(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fts.db")

	idx, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	if err := idx.Add(ctx, SearchDoc{PMCID: 1, Title: "old title"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := idx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := idx.Add(ctx, SearchDoc{PMCID: 1, Title: "new title"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := idx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM article_fts`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestCloseFlushesPending(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fts.db")

	idx, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Add(ctx, SearchDoc{PMCID: 1, Title: "kept on close"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM article_fts`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want the uncommitted document flushed", n)
	}
}

func TestCommitWithNothingPending(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(ctx, filepath.Join(t.TempDir(), "fts.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	if err := idx.Commit(ctx); err != nil {
		t.Errorf("empty commit: %v", err)
	}
}
