package domain

import "time"

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of chunks (topK).
	Limit int

	// SkipCache bypasses the retrieval cache for this call.
	SkipCache bool
}

// IndexStats is a read-only diagnostic snapshot of a vector index.
type IndexStats struct {
	// IndexIdentifier names the index (Pinecone index, Qdrant collection, "memory").
	IndexIdentifier string

	// Provider is the backend kind.
	Provider string

	// TotalRecords is the number of stored vectors.
	TotalRecords int64

	// Dimension is the configured vector width.
	Dimension int

	// Namespaces maps namespace name to its record count.
	Namespaces map[string]int64
}

// AttemptOutcome records what one retrieval backend did for a query.
type AttemptOutcome struct {
	// Backend is the backend name.
	Backend string

	// Chunks is how many chunks the backend returned.
	Chunks int

	// Err is the failure, or nil on success.
	Err error

	// Duration is how long the attempt took.
	Duration time.Duration
}

// Succeeded reports whether the attempt returned without error.
func (o AttemptOutcome) Succeeded() bool {
	return o.Err == nil
}
