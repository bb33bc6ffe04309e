package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Ingestion Errors.

	// ErrDocumentParse indicates an upload could not be turned into text.
	ErrDocumentParse = errors.New("document parse error")

	// ErrUnsupportedFormat indicates no normaliser handles the upload.
	// It is always reported together with ErrDocumentParse.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// External Service Errors.

	// ErrEmbeddingService indicates the embedding service failed or was unreachable.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrModelService indicates the language model failed or was unreachable.
	ErrModelService = errors.New("model service error")

	// ErrServiceTimeout indicates a bounded call to an external service expired.
	// It is joined with ErrEmbeddingService or ErrModelService.
	ErrServiceTimeout = errors.New("service timeout")

	// Vector Index Errors.

	// ErrNoIndex indicates no vector index exists yet.
	// Callers treat this as "no context", never as an empty result set.
	ErrNoIndex = errors.New("no vector index")

	// ErrIndexLoad indicates an existing index snapshot could not be read.
	ErrIndexLoad = errors.New("vector index load error")

	// ErrIndexDimension indicates embeddings do not match the index dimension.
	ErrIndexDimension = errors.New("embedding dimension mismatch")

	// Streaming Errors.

	// ErrStreamInterrupted indicates the consumer stopped reading a response.
	ErrStreamInterrupted = errors.New("stream interrupted")
)
