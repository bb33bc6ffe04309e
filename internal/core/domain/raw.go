package domain

import (
	"path/filepath"
	"strings"
)

// RawDocument represents the opaque bytes of an upload.
// It is the input to normalisation.
type RawDocument struct {
	// Filename is the uploaded file's name, used for format dispatch.
	Filename string

	// MIMEType is the declared content type (e.g., "application/pdf").
	// Empty when the uploader did not declare one.
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains uploader-specific key-value pairs.
	Metadata map[string]any
}

// Extension returns the lower-cased filename extension including the dot.
func (r *RawDocument) Extension() string {
	return strings.ToLower(filepath.Ext(r.Filename))
}
