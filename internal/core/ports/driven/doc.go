// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser: Extracts text from one file format
//   - NormaliserRegistry: Selects a normaliser by file extension
//   - PostProcessor, PostProcessorPipeline: Chunking and chunk filters
//   - EmbeddingService: Converts text to fixed-width vectors
//   - CorpusStore: The on-disk source of truth for ingestible files
//   - RetrievalCache: Query result memoization
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VectorIndex: The durable index. Without it, search uses the in-process
//     index only and every write fails with ErrVectorIndexUnavailable.
//   - LLMService: Query refinement. Without it, queries are embedded as typed.
//   - SyncRunStore: Run history. Without it, runs are not recorded.
//   - PromptStore: Prompt templates. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
