package driven

import "github.com/custodia-labs/nephra/internal/core/domain"

// AIConfigValidator checks provider settings by contacting the
// embedding, LLM and vector index services.
type AIConfigValidator interface {
	// ValidateEmbedding pings the embedding provider.
	// Returns nil if configuration is valid.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM pings the LLM provider.
	// Returns nil if configuration is valid or refinement is not configured.
	ValidateLLM(config *domain.LLMSettings) error

	// ValidateVectorIndex checks the durable index exists at the
	// embedding model's dimension.
	ValidateVectorIndex(index *domain.VectorIndexSettings, embedding *domain.EmbeddingSettings) error
}
