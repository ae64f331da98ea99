package driven

import (
	"context"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// RetrievalBackend answers similarity queries.
// Both the durable index and the in-process fallback implement it.
type RetrievalBackend interface {
	// Name identifies the backend in logs and attempt outcomes.
	Name() string

	// Search returns up to k chunks nearest to the query vector, ordered
	// by descending cosine similarity. Matches below the configured
	// minimum score are omitted.
	Search(ctx context.Context, query []float32, k int) ([]domain.Chunk, error)
}

// VectorIndex is a similarity index that stores chunks with their embeddings.
type VectorIndex interface {
	RetrievalBackend

	// EnsureReady verifies the index exists and its dimension matches the
	// embedding model. The check runs at most once; later calls return the
	// memoized result. A mismatch returns *domain.DimensionMismatchError.
	EnsureReady(ctx context.Context) error

	// Add stores chunks. Every chunk must carry its Embedding.
	// Chunks whose ID already exists are overwritten.
	Add(ctx context.Context, chunks []domain.Chunk) error

	// Stats returns a diagnostic snapshot of the index.
	Stats(ctx context.Context) (*domain.IndexStats, error)

	// Close releases resources.
	Close() error
}

// ResettableIndex is a VectorIndex that can be destroyed and recreated.
type ResettableIndex interface {
	VectorIndex

	// Reset deletes all records by recreating the index at the embedding
	// dimension, then clears the memoized readiness state.
	Reset(ctx context.Context) error
}
