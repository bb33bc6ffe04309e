package normalisers

import (
	"github.com/custodia-labs/ragchat/internal/normalisers/docx"
	"github.com/custodia-labs/ragchat/internal/normalisers/html"
	"github.com/custodia-labs/ragchat/internal/normalisers/markdown"
	"github.com/custodia-labs/ragchat/internal/normalisers/pdf"
	"github.com/custodia-labs/ragchat/internal/normalisers/plaintext"
)

// RegisterDefaults registers the built-in normalisers.
func RegisterDefaults(r *Registry) {
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(plaintext.New())
}

// NewDefaultRegistry returns a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
