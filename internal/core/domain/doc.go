// Package domain defines the core business entities for nephra.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawDocument: Bytes and filename handed to the loader
//   - Document: Extracted text tagged with its source and content type
//   - Chunk: A bounded slice of a document, the unit of embedding and retrieval
//   - IndexStats: Diagnostic counters reported by a vector index
//   - SyncRequest, SyncProgress, SyncResult, SyncRun: Sync orchestration values
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
