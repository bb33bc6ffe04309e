package driven

import (
	"context"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

// Normaliser transforms an upload into plain text.
// Each normaliser handles specific formats (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// SupportedExtensions returns the filename extensions (with dot) it handles.
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers return 50-89, fallbacks 1-9.
	Priority() int

	// Normalise extracts the text of a raw document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the normalised document with Content field populated.
	Document domain.Document
}

// NormaliserRegistry selects the appropriate normaliser for an upload.
type NormaliserRegistry interface {
	// Normalise transforms a raw document using the best matching normaliser.
	// Unknown formats fail with domain.ErrUnsupportedFormat.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// Supports reports whether a file with this name can be normalised.
	Supports(filename string) bool

	// SupportedExtensions returns all filename extensions that can be normalised.
	SupportedExtensions() []string
}
