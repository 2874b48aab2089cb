package store

import (
	"context"

	"github.com/cognicore/citepipe/pkg/citepipe/model"
)

// Store is the main interface for persisting imported article data
type Store interface {
	Close() error

	// Documents
	UpsertDocument(ctx context.Context, d model.Document) error
	GetDocument(ctx context.Context, pmcid int) (model.Document, bool, error)
	CountDocuments(ctx context.Context) (int64, error)

	// Authors
	InsertAuthor(ctx context.Context, a model.Author) error
	GetAuthors(ctx context.Context, pmcid int) ([]model.Author, error)

	// Citations
	InsertCitation(ctx context.Context, c model.Citation) error
	GetCitations(ctx context.Context, pmcid int) ([]model.Citation, error)

	// References
	InsertReference(ctx context.Context, r model.Reference) error
	GetReferences(ctx context.Context, pmcid int) ([]model.Reference, error)

	// Per-document cleanup before re-import
	DeleteDocumentData(ctx context.Context, pmcid int) error

	// Import runs
	RecordImportRun(ctx context.Context, run model.ImportRun) error
	GetImportRuns(ctx context.Context, limit int) ([]model.ImportRun, error)
}
