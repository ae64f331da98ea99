package driven

import (
	"context"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// RetrievalCache memoizes search results by normalized query.
// Implementations must be safe for concurrent use.
type RetrievalCache interface {
	// Get returns the cached chunks for key. Entries older than the
	// cache TTL are reported as absent.
	Get(ctx context.Context, key string) ([]domain.Chunk, bool)

	// Set stores chunks under key, stamped with the current time.
	Set(ctx context.Context, key string, chunks []domain.Chunk) error

	// Clear drops every entry.
	Clear(ctx context.Context) error
}
