package domain

import "time"

// Document represents the extracted text of an upload.
// It is the canonical representation after normalisation.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the name of the uploaded file.
	Filename string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	// This is the complete document text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was extracted.
	CreatedAt time.Time
}

// Chunk represents a retrievable unit within a document.
// Chunks are immutable once created.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Start is the offset of the chunk in the document, in characters.
	Start int

	// Metadata contains chunk-specific key-value pairs.
	// "source" holds the originating filename.
	Metadata map[string]any
}

// Source returns the originating filename recorded in the chunk metadata.
func (c Chunk) Source() string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[MetaSource].(string)
	return s
}

// Metadata keys shared by normalisers, the chunker and the vector index.
const (
	MetaSource   = "source"
	MetaStart    = "start"
	MetaMIMEType = "mime_type"
	MetaFormat   = "format"
	MetaFilename = "filename"
)

// RetrievedChunk is a chunk returned by a similarity search.
type RetrievedChunk struct {
	// ChunkID identifies the indexed chunk.
	ChunkID string

	// Content is the chunk text.
	Content string

	// Metadata is the chunk metadata stored alongside the vector.
	Metadata map[string]any

	// Score is the cosine similarity to the query.
	Score float64
}

// Source returns the originating filename of the retrieved chunk.
func (r RetrievedChunk) Source() string {
	if r.Metadata == nil {
		return ""
	}
	s, _ := r.Metadata[MetaSource].(string)
	return s
}

// IngestedDocument is the registry record of an upload added to the index.
type IngestedDocument struct {
	ID         string
	Filename   string
	Title      string
	Characters int
	ChunkCount int
	CreatedAt  time.Time
}
