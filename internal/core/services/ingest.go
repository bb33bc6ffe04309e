package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
	"github.com/custodia-labs/ragchat/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs the write path: extract, chunk, index, record.
type IngestService struct {
	normalisers driven.NormaliserRegistry
	pipeline    driven.PostProcessorPipeline
	index       driven.VectorIndex
	registry    driven.DocumentRegistry
}

// NewIngestService creates an ingest service.
// The index parameter is optional (can be nil) when no embedding service is
// configured; uploads then fail with domain.ErrEmbeddingUnavailable.
func NewIngestService(
	normalisers driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	index driven.VectorIndex,
	registry driven.DocumentRegistry,
) *IngestService {
	return &IngestService{
		normalisers: normalisers,
		pipeline:    pipeline,
		index:       index,
		registry:    registry,
	}
}

// Upload extracts, chunks and indexes a document. An upload without any
// extractable text succeeds with zero chunks and leaves the index untouched.
func (s *IngestService) Upload(ctx context.Context, filename string, data []byte) (*driving.IngestResult, error) {
	logger.Section("Upload")
	start := time.Now()

	doc, err := s.extract(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	result := &driving.IngestResult{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Title:      doc.Title,
		Characters: utf8.RuneCountInString(doc.Content),
	}
	logger.Debug("Extracted %d characters from %s", result.Characters, doc.Filename)

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.Filename, err)
	}
	if len(chunks) == 0 {
		logger.Warn("No text extracted from %s, nothing indexed", doc.Filename)
		return result, nil
	}
	logger.Debug("Split %s into %d chunks", doc.Filename, len(chunks))

	if s.index == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	added, err := s.index.Add(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", doc.Filename, err)
	}
	result.Chunks = added

	if s.registry != nil {
		rec := &domain.IngestedDocument{
			ID:         doc.ID,
			Filename:   doc.Filename,
			Title:      doc.Title,
			Characters: result.Characters,
			ChunkCount: added,
			CreatedAt:  doc.CreatedAt,
		}
		if err := s.registry.Record(ctx, rec); err != nil {
			return nil, fmt.Errorf("record %s: %w", doc.Filename, err)
		}
	}

	logger.Elapsed("Upload "+doc.Filename, start)
	return result, nil
}

// UploadFile reads a file from disk and uploads it.
func (s *IngestService) UploadFile(ctx context.Context, path string) (*driving.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s.Upload(ctx, path, data)
}

// ExtractText returns the extracted text of an upload without indexing it.
func (s *IngestService) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	doc, err := s.extract(ctx, filename, data)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// ClearIndex deletes the index and the record of ingested documents.
func (s *IngestService) ClearIndex(ctx context.Context) error {
	if s.index != nil {
		if err := s.index.Clear(ctx); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
	}
	if s.registry != nil {
		if err := s.registry.Clear(ctx); err != nil {
			return fmt.Errorf("clear document registry: %w", err)
		}
	}
	logger.Info("Vector index cleared")
	return nil
}

// Documents lists ingested documents, oldest first.
func (s *IngestService) Documents(ctx context.Context) ([]domain.IngestedDocument, error) {
	if s.registry == nil {
		return []domain.IngestedDocument{}, nil
	}
	return s.registry.List(ctx)
}

// IndexStats describes the index.
func (s *IngestService) IndexStats(ctx context.Context) (*domain.IndexStats, error) {
	if s.index == nil {
		return nil, domain.ErrNoIndex
	}
	return s.index.Stats(ctx)
}

// Supports reports whether a file with this name can be uploaded.
func (s *IngestService) Supports(filename string) bool {
	return s.normalisers.Supports(filename)
}

func (s *IngestService) extract(ctx context.Context, filename string, data []byte) (*domain.Document, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	res, err := s.normalisers.Normalise(ctx, &domain.RawDocument{Filename: filename, Content: data})
	if err != nil {
		return nil, err
	}
	return &res.Document, nil
}
