// Package chunker provides a boundary-aware, overlapping text chunking processor.
//
// Chunks are exact substrings of the document. Each chunk holds at most
// chunkSize characters and every chunk after the first starts exactly
// overlap characters before the end of the previous one, so removing the
// leading overlap from each subsequent chunk and concatenating yields the
// original text.
package chunker

import (
	"context"
	"strconv"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragchat/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// chunkNamespace scopes deterministic chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ragchat:chunk"))

// Processor splits document content into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the maximum chunk length in characters.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the number of characters shared by consecutive chunks.
func (p *Processor) Overlap() int { return p.overlap }

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	text := []rune(doc.Content)
	if len(text) == 0 {
		return nil, nil
	}

	spans := p.Split(text)
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, domain.Chunk{
			ID:         chunkID(doc.ID, i),
			DocumentID: doc.ID,
			Content:    string(text[s.Start:s.End]),
			Position:   i,
			Start:      s.Start,
			Metadata: map[string]any{
				domain.MetaSource: doc.Filename,
				domain.MetaStart:  s.Start,
			},
		})
	}
	return chunks, nil
}

// Span is a half-open range of rune offsets.
type Span struct {
	Start int
	End   int
}

// Split computes chunk spans over text.
func (p *Processor) Split(text []rune) []Span {
	n := len(text)
	if n == 0 {
		return nil
	}

	// Lower bound on chunk length keeps chunks from collapsing onto an
	// early boundary and guarantees the next start moves forward.
	minLen := p.chunkSize / 2
	if minLen < p.overlap+1 {
		minLen = p.overlap + 1
	}

	var spans []Span
	start := 0
	for {
		if n-start <= p.chunkSize {
			spans = append(spans, Span{Start: start, End: n})
			return spans
		}
		end := boundary(text, start+minLen, start+p.chunkSize)
		spans = append(spans, Span{Start: start, End: end})
		start = end - p.overlap
	}
}

// boundary picks the chunk end in [lo, hi], preferring a paragraph break,
// then a sentence end, then whitespace, then a hard cut at hi.
func boundary(text []rune, lo, hi int) int {
	for _, match := range []func([]rune, int) bool{paragraphEnd, sentenceEnd, wordEnd} {
		for e := hi; e >= lo; e-- {
			if match(text, e) {
				return e
			}
		}
	}
	return hi
}

func paragraphEnd(text []rune, e int) bool {
	return e >= 2 && text[e-1] == '\n' && text[e-2] == '\n'
}

func sentenceEnd(text []rune, e int) bool {
	if e < 1 {
		return false
	}
	if text[e-1] == '\n' {
		return true
	}
	if e < 2 || !unicode.IsSpace(text[e-1]) {
		return false
	}
	switch text[e-2] {
	case '.', '!', '?':
		return true
	}
	return false
}

func wordEnd(text []rune, e int) bool {
	return e >= 1 && unicode.IsSpace(text[e-1])
}

func chunkID(docID string, position int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(docID+":"+strconv.Itoa(position))).String()
}
