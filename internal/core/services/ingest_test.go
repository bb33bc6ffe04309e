package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
	"github.com/custodia-labs/ragchat/internal/normalisers"
	"github.com/custodia-labs/ragchat/internal/normalisers/pdf"
	"github.com/custodia-labs/ragchat/internal/normalisers/plaintext"
	"github.com/custodia-labs/ragchat/internal/postprocessors"
	"github.com/custodia-labs/ragchat/internal/postprocessors/chunker"
)

func newTestRegistry(runner pdf.CommandRunner) *normalisers.Registry {
	r := normalisers.NewRegistry()
	r.Register(pdf.NewWithRunner(runner))
	r.Register(plaintext.New())
	return r
}

func newTestPipeline() *postprocessors.Pipeline {
	return postprocessors.NewPipeline(chunker.New(chunker.WithChunkSize(1000), chunker.WithOverlap(100)))
}

// threePages returns pdftotext-style output whose joined text is 2500
// characters: three 832-character pages separated by blank lines.
func threePages() string {
	return strings.Repeat("a", 832) + "\f" + strings.Repeat("b", 832) + "\f" + strings.Repeat("c", 832) + "\f"
}

func TestIngestService_Upload_IndexesChunks(t *testing.T) {
	index := &mockVectorIndex{}
	docs := memory.NewDocumentRegistry()
	svc := NewIngestService(newTestRegistry(&fakePDFRunner{out: []byte(threePages())}), newTestPipeline(), index, docs)

	result, err := svc.Upload(context.Background(), "report.pdf", []byte("%PDF-1.4 test"))

	require.NoError(t, err)
	assert.Equal(t, "report.pdf", result.Filename)
	assert.Equal(t, 2500, result.Characters)
	assert.Equal(t, 3, result.Chunks)
	assert.NotEmpty(t, result.DocumentID)
	require.Len(t, index.added, 3)
	for _, c := range index.added {
		assert.Equal(t, result.DocumentID, c.DocumentID)
		assert.Equal(t, "report.pdf", c.Source())
		assert.LessOrEqual(t, len([]rune(c.Content)), 1000)
	}

	recorded, err := docs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, result.DocumentID, recorded[0].ID)
	assert.Equal(t, 3, recorded[0].ChunkCount)
	assert.Equal(t, 2500, recorded[0].Characters)
}

func TestIngestService_Upload_EmptyTextIndexesNothing(t *testing.T) {
	index := &mockVectorIndex{}
	docs := memory.NewDocumentRegistry()
	svc := NewIngestService(newTestRegistry(&fakePDFRunner{out: []byte("\f  \f")}), newTestPipeline(), index, docs)

	result, err := svc.Upload(context.Background(), "scan.pdf", []byte("%PDF-1.4"))

	require.NoError(t, err)
	assert.Equal(t, 0, result.Chunks)
	assert.Empty(t, index.added)
	recorded, err := docs.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recorded)
}

func TestIngestService_Upload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		runner   *fakePDFRunner
		index    driven.VectorIndex
		wantErr  []error
	}{
		{
			name:     "unsupported format",
			filename: "slides.pptx",
			data:     []byte("PK"),
			runner:   &fakePDFRunner{},
			index:    &mockVectorIndex{},
			wantErr:  []error{domain.ErrDocumentParse, domain.ErrUnsupportedFormat},
		},
		{
			name:     "not a pdf",
			filename: "fake.pdf",
			data:     []byte("hello"),
			runner:   &fakePDFRunner{},
			index:    &mockVectorIndex{},
			wantErr:  []error{domain.ErrDocumentParse},
		},
		{
			name:     "extractor failure",
			filename: "broken.pdf",
			data:     []byte("%PDF-1.4"),
			runner:   &fakePDFRunner{err: errors.New("syntax error")},
			index:    &mockVectorIndex{},
			wantErr:  []error{domain.ErrDocumentParse},
		},
		{
			name:     "embedding failure",
			filename: "notes.txt",
			data:     []byte("some notes"),
			runner:   &fakePDFRunner{},
			index:    &mockVectorIndex{addErr: domain.ErrEmbeddingService},
			wantErr:  []error{domain.ErrEmbeddingService},
		},
		{
			name:     "no embedding service",
			filename: "notes.txt",
			data:     []byte("some notes"),
			runner:   &fakePDFRunner{},
			index:    nil,
			wantErr:  []error{domain.ErrEmbeddingUnavailable},
		},
		{
			name:     "missing filename",
			filename: " ",
			data:     []byte("x"),
			runner:   &fakePDFRunner{},
			index:    &mockVectorIndex{},
			wantErr:  []error{domain.ErrInvalidInput},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := memory.NewDocumentRegistry()
			svc := NewIngestService(newTestRegistry(tt.runner), newTestPipeline(), tt.index, docs)

			result, err := svc.Upload(context.Background(), tt.filename, tt.data)

			require.Error(t, err)
			assert.Nil(t, result)
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
			recorded, _ := docs.List(context.Background())
			assert.Empty(t, recorded)
		})
	}
}

func TestIngestService_UploadFile(t *testing.T) {
	index := &mockVectorIndex{}
	svc := NewIngestService(newTestRegistry(&fakePDFRunner{}), newTestPipeline(), index, memory.NewDocumentRegistry())
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Remember the milk."), 0o600))

	result, err := svc.UploadFile(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "notes.txt", result.Filename)
	assert.Equal(t, 1, result.Chunks)

	_, err = svc.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIngestService_ExtractText(t *testing.T) {
	index := &mockVectorIndex{}
	svc := NewIngestService(newTestRegistry(&fakePDFRunner{out: []byte("Page one\fPage two")}), newTestPipeline(), index, nil)

	text, err := svc.ExtractText(context.Background(), "doc.pdf", []byte("%PDF-1.7"))

	require.NoError(t, err)
	assert.Equal(t, "Page one\n\nPage two", text)
	assert.Empty(t, index.added, "extraction alone never touches the index")
}

func TestIngestService_ClearIndex(t *testing.T) {
	ctx := context.Background()
	index := &mockVectorIndex{}
	docs := memory.NewDocumentRegistry()
	svc := NewIngestService(newTestRegistry(&fakePDFRunner{}), newTestPipeline(), index, docs)
	_, err := svc.Upload(ctx, "a.txt", []byte("alpha"))
	require.NoError(t, err)

	require.NoError(t, svc.ClearIndex(ctx))

	assert.True(t, index.cleared)
	listed, err := svc.Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestIngestService_ClearIndexError(t *testing.T) {
	index := &mockVectorIndex{clearErr: errors.New("permission denied")}
	svc := NewIngestService(newTestRegistry(&fakePDFRunner{}), newTestPipeline(), index, memory.NewDocumentRegistry())

	err := svc.ClearIndex(context.Background())

	assert.ErrorContains(t, err, "permission denied")
}

func TestIngestService_IndexStats(t *testing.T) {
	ctx := context.Background()

	_, err := NewIngestService(newTestRegistry(&fakePDFRunner{}), newTestPipeline(), nil, nil).IndexStats(ctx)
	assert.ErrorIs(t, err, domain.ErrNoIndex)

	index := &mockVectorIndex{stats: &domain.IndexStats{Entries: 7, Dimensions: 26}}
	stats, err := NewIngestService(newTestRegistry(&fakePDFRunner{}), newTestPipeline(), index, nil).IndexStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Entries)
}

func TestIngestService_Supports(t *testing.T) {
	svc := NewIngestService(newTestRegistry(&fakePDFRunner{}), newTestPipeline(), nil, nil)

	assert.True(t, svc.Supports("paper.PDF"))
	assert.True(t, svc.Supports("notes.txt"))
	assert.False(t, svc.Supports("deck.pptx"))
}
