package driven

import (
	"context"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

// VectorIndex is the on-disk similarity index shared by all sessions.
// The directory at Path either does not exist ("no index") or holds a
// complete snapshot.
type VectorIndex interface {
	// Add embeds the chunks and persists them into the snapshot, creating it
	// when absent. Returns the number of entries added.
	Add(ctx context.Context, chunks []domain.Chunk) (int, error)

	// Search returns the chunks most similar to the query.
	// Returns domain.ErrNoIndex when no index exists.
	Search(ctx context.Context, query string, opts domain.RetrievalOptions) ([]domain.RetrievedChunk, error)

	// Clear removes the snapshot. Clearing an absent index is not an error.
	Clear(ctx context.Context) error

	// Exists reports whether a snapshot is present.
	Exists() bool

	// Stats describes the snapshot. Returns domain.ErrNoIndex when absent.
	Stats(ctx context.Context) (*domain.IndexStats, error)

	// Path returns the index directory.
	Path() string
}
