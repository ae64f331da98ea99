package driven

import "context"

// LLMService provides the language model call used for query refinement.
// This is an optional service - when nil, queries are embedded unmodified.
type LLMService interface {
	// RewriteQuery corrects misspelled domain terms in a search query.
	// It returns the query unchanged when nothing needs fixing.
	RewriteQuery(ctx context.Context, query string) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
