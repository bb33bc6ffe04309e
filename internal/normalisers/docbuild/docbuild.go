// Package docbuild holds helpers shared by the format normalisers:
// assembling the normalised Document and deriving fallback titles.
package docbuild

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
)

// Result builds the normalisation result for raw with the extracted
// title and content. format is recorded in the metadata.
func Result(raw *domain.RawDocument, title, content, format string) *driven.NormaliseResult {
	if title == "" {
		title = TitleFromFilename(raw.Filename)
	}
	meta := CopyMetadata(raw.Metadata)
	if meta == nil {
		meta = make(map[string]any)
	}
	meta[domain.MetaMIMEType] = raw.MIMEType
	meta[domain.MetaFormat] = format
	meta[domain.MetaFilename] = raw.Filename

	return &driven.NormaliseResult{
		Document: domain.Document{
			ID:        uuid.New().String(),
			Filename:  filepath.Base(raw.Filename),
			Title:     title,
			Content:   content,
			Metadata:  meta,
			CreatedAt: time.Now(),
		},
	}
}

// TitleFromFilename turns "/path/to/my_report-v2.pdf" into "my report v2".
func TitleFromFilename(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.NewReplacer("_", " ", "-", " ").Replace(base)
}

// FirstLineTitle returns the first non-empty line shorter than maxLen,
// or "" when none qualifies.
func FirstLineTitle(content string, maxLen int) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.ContainsRune(line, 0) {
			continue
		}
		if len(line) < maxLen {
			return line
		}
	}
	return ""
}

// CopyMetadata creates a shallow copy of metadata.
func CopyMetadata(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
