package normalisers

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
	"github.com/custodia-labs/ragchat/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// unsupportedOffice lists formats that are recognised but deliberately not
// extracted, so users get a precise error instead of a sniffing guess.
var unsupportedOffice = map[string]string{
	".doc":  "legacy Word",
	".ppt":  "PowerPoint",
	".pptx": "PowerPoint",
	".xls":  "Excel",
	".xlsx": "Excel",
}

// Registry selects a normaliser by filename extension, then by declared
// or sniffed MIME type. Among candidates the highest priority wins.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, n)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// Normalise transforms a raw document using the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	n, err := r.selectFor(raw)
	if err != nil {
		return nil, err
	}
	logger.Debug("normalising %s (%d bytes) with %T", raw.Filename, len(raw.Content), n)
	return n.Normalise(ctx, raw)
}

// Supports reports whether a file with this name can be normalised.
func (r *Registry) Supports(filename string) bool {
	ext := (&domain.RawDocument{Filename: filename}).Extension()
	return r.byExtension(ext) != nil
}

// SupportedExtensions returns all filename extensions that can be normalised.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var exts []string
	for _, n := range r.normalisers {
		for _, ext := range n.SupportedExtensions() {
			if _, ok := seen[ext]; !ok {
				seen[ext] = struct{}{}
				exts = append(exts, ext)
			}
		}
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) selectFor(raw *domain.RawDocument) (driven.Normaliser, error) {
	ext := raw.Extension()
	if kind, ok := unsupportedOffice[ext]; ok {
		return nil, fmt.Errorf("%w: %w: %s files (%s) are not supported", domain.ErrDocumentParse, domain.ErrUnsupportedFormat, kind, ext)
	}
	if n := r.byExtension(ext); n != nil {
		return n, nil
	}

	mimeType := baseMIME(raw.MIMEType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = baseMIME(http.DetectContentType(raw.Content))
	}
	if n := r.byMIME(mimeType); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %w: %s (%s)", domain.ErrDocumentParse, domain.ErrUnsupportedFormat, raw.Filename, mimeType)
}

func (r *Registry) byExtension(ext string) driven.Normaliser {
	if ext == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.normalisers {
		for _, e := range n.SupportedExtensions() {
			if e == ext {
				return n
			}
		}
	}
	return nil
}

func (r *Registry) byMIME(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.normalisers {
		for _, m := range n.SupportedMIMETypes() {
			if m == mimeType {
				return n
			}
		}
	}
	return nil
}

// baseMIME strips parameters such as "; charset=utf-8".
func baseMIME(v string) string {
	if v == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(v); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(strings.SplitN(v, ";", 2)[0]))
}
