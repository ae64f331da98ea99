package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// indexCheckTimeout covers index creation and the wait for it to become ready.
const indexCheckTimeout = 30 * time.Second

// ConfigValidator checks provider settings against the live services.
type ConfigValidator struct{}

// NewConfigValidator creates a validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding pings the embedding provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(config)
}

// ValidateLLM pings the refinement LLM.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	return ValidateLLMConfig(config)
}

// ValidateVectorIndex opens the durable index at the embedding model's
// dimension and runs its readiness check. A missing index is created.
// The "none" provider and an unconfigured embedder are not errors.
func (v *ConfigValidator) ValidateVectorIndex(index *domain.VectorIndexSettings, embedding *domain.EmbeddingSettings) error {
	if index == nil || index.Provider == domain.VectorProviderNone {
		return nil
	}
	if embedding == nil || !embedding.IsConfigured() {
		return nil
	}

	embedder, err := CreateEmbeddingService(embedding)
	if err != nil {
		return err
	}
	dim := embedder.Dimensions()
	_ = embedder.Close()

	ix, err := CreateVectorIndex(index, dim, 0)
	if err != nil || ix == nil {
		return err
	}
	defer ix.Close()

	ctx, cancel := context.WithTimeout(context.Background(), indexCheckTimeout)
	defer cancel()
	return ix.EnsureReady(ctx)
}
