package driving

import (
	"context"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

// Export formats supported by SessionService.Export.
const (
	ExportJSON = "json"
	ExportYAML = "yaml"
)

// SessionService manages the session registry.
type SessionService interface {
	// Create starts a new, untitled session.
	Create(ctx context.Context) (*domain.Session, error)

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// List returns all sessions, most recent first.
	List(ctx context.Context) ([]domain.Session, error)

	// Delete removes a session and its history.
	Delete(ctx context.Context, id string) error

	// History returns the session's turns in order.
	History(ctx context.Context, id string) ([]domain.Turn, error)

	// Export renders the session and its history as json or yaml.
	Export(ctx context.Context, id, format string) ([]byte, error)
}
