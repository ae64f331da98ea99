package driving

import (
	"context"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// SearchService retrieves grounding context for a question.
type SearchService interface {
	// Search returns the most relevant chunks for query.
	// It never fails: an empty result means nothing relevant was found.
	Search(ctx context.Context, query string, opts domain.SearchOptions) []domain.Chunk

	// FormatContext renders chunks into one prompt context string, each
	// prefixed with its source. An empty input yields NoContextSentinel.
	FormatContext(chunks []domain.Chunk) string
}

// NoContextSentinel is the context string for an empty result set.
// Prompt assembly matches on it to produce a refusal.
const NoContextSentinel = "No relevant information found in the knowledge base."
