package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
)

// Ensure DocumentRegistry implements the interface.
var _ driven.DocumentRegistry = (*DocumentRegistry)(nil)

// DocumentRegistry is an in-memory implementation of driven.DocumentRegistry.
type DocumentRegistry struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]domain.IngestedDocument
}

// NewDocumentRegistry creates a new in-memory document registry.
func NewDocumentRegistry() *DocumentRegistry {
	return &DocumentRegistry{
		docs: make(map[string]domain.IngestedDocument),
	}
}

// Record stores or updates an ingested document.
func (r *DocumentRegistry) Record(_ context.Context, doc *domain.IngestedDocument) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		r.order = append(r.order, doc.ID)
	}
	r.docs[doc.ID] = *doc
	return nil
}

// List returns ingested documents in recording order.
func (r *DocumentRegistry) List(_ context.Context) ([]domain.IngestedDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.IngestedDocument, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.docs[id])
	}
	return result, nil
}

// Clear removes every record.
func (r *DocumentRegistry) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.docs = make(map[string]domain.IngestedDocument)
	return nil
}
