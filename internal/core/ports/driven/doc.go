// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - Normaliser / NormaliserRegistry: Turns uploaded bytes into text
//   - PostProcessor / PostProcessorPipeline: Splits text into chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: On-disk similarity index shared by all sessions
//   - LLMService: Streams model responses
//   - HistoryStore / SessionStore: Conversation persistence
//   - DocumentRegistry: Record of ingested uploads
//   - ConfigStore / PromptStore: Configuration and prompt templates
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
