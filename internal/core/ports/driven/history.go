package driven

import (
	"context"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

// HistoryStore persists the ordered turns of each session.
// Turns of different sessions never interleave.
type HistoryStore interface {
	// Append adds a turn at the end of the session's history.
	Append(ctx context.Context, sessionID string, role domain.Role, content string) error

	// Load returns the session's turns in append order.
	// An unknown session has an empty history.
	Load(ctx context.Context, sessionID string) ([]domain.Turn, error)

	// Delete removes all turns of the session.
	Delete(ctx context.Context, sessionID string) error
}

// SessionStore persists the session registry.
type SessionStore interface {
	// Save creates or updates a session.
	Save(ctx context.Context, session *domain.Session) error

	// Get retrieves a session by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// List returns all sessions, most recently updated first.
	List(ctx context.Context) ([]domain.Session, error)

	// Delete removes a session.
	Delete(ctx context.Context, id string) error
}

// DocumentRegistry records uploads that have been added to the index.
type DocumentRegistry interface {
	// Record stores an ingested document.
	Record(ctx context.Context, doc *domain.IngestedDocument) error

	// List returns ingested documents, oldest first.
	List(ctx context.Context) ([]domain.IngestedDocument, error)

	// Clear removes every record.
	Clear(ctx context.Context) error
}
