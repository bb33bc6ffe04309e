package driving

import (
	"context"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

// IngestService adds uploads to the shared vector index.
type IngestService interface {
	// Upload extracts, chunks and indexes a document.
	Upload(ctx context.Context, filename string, data []byte) (*IngestResult, error)

	// UploadFile reads a file from disk and uploads it.
	UploadFile(ctx context.Context, path string) (*IngestResult, error)

	// ExtractText returns the extracted text of an upload without indexing it.
	ExtractText(ctx context.Context, filename string, data []byte) (string, error)

	// ClearIndex deletes the index and the record of ingested documents.
	ClearIndex(ctx context.Context) error

	// Documents lists ingested documents.
	Documents(ctx context.Context) ([]domain.IngestedDocument, error)

	// IndexStats describes the index. Returns domain.ErrNoIndex when absent.
	IndexStats(ctx context.Context) (*domain.IndexStats, error)

	// Supports reports whether a file with this name can be uploaded.
	Supports(filename string) bool
}

// IngestResult describes a completed upload.
type IngestResult struct {
	DocumentID string
	Filename   string
	Title      string
	Characters int
	Chunks     int
}
