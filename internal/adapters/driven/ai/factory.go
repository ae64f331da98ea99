// Package ai provides factory functions for creating AI and vector index
// adapters from settings.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaiembed "github.com/custodia-labs/nephra/internal/adapters/driven/embedding/openai"
	openaillm "github.com/custodia-labs/nephra/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/nephra/internal/adapters/driven/vector/pinecone"
	"github.com/custodia-labs/nephra/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// ollamaAPIPath is appended to Ollama base URLs to reach its OpenAI-compatible API.
const ollamaAPIPath = "/v1"

// ProviderConfigError reports a missing or invalid provider setting.
type ProviderConfigError struct {
	Provider string
	Field    string
}

func (e *ProviderConfigError) Error() string {
	return fmt.Sprintf("%s: %s is required. Run 'nephra settings set %s <value>'",
		e.Provider, e.Field, e.Field)
}

// InitResult contains the result of service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorIndex      driven.ResettableIndex
	PromptStore      driven.PromptStore // User-customisable prompt templates.
	Warnings         []string           // Non-fatal issues, such as refinement being disabled.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'nephra settings show' to check", domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// ValidateEmbeddingConfig creates an embedding service and pings it.
// Unconfigured settings are not an error.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig creates an LLM service and pings it.
// Unconfigured settings are not an error.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the embedding service for the configured provider.
// Returns an error when the provider is not configured, since retrieval
// cannot run without embeddings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.Provider.IsValid() {
		return nil, &ProviderConfigError{Provider: "embedding", Field: "embedding.provider"}
	}

	cfg := openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
		MaxRetries: settings.MaxRetries,

		RequestsPerSecond: settings.RequestsPerSecond,
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		cfg.AllowEmptyKey = true
		cfg.BaseURL = ollamaBaseURL(settings.BaseURL)
		if cfg.Model == "" {
			cfg.Model = domain.DefaultEmbeddingModels()[domain.AIProviderOllama]
		}
	case domain.AIProviderOpenAI:
		if settings.APIKey == "" {
			return nil, &ProviderConfigError{Provider: "openai", Field: "embedding.api_key"}
		}
	}

	svc, err := openaiembed.NewEmbeddingService(cfg)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// CreateLLMService creates the refinement LLM for the configured provider.
// Returns nil when refinement is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	cfg := openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	}
	if settings.Provider == domain.AIProviderOllama {
		cfg.AllowEmptyKey = true
		cfg.BaseURL = ollamaBaseURL(settings.BaseURL)
	}
	svc, err := openaillm.NewLLMService(cfg)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// CreateVectorIndex creates the durable index for the configured provider.
// dimension is the embedding model's output width. Returns nil for the
// "none" provider.
func CreateVectorIndex(settings *domain.VectorIndexSettings, dimension int, minScore float64) (driven.ResettableIndex, error) {
	if settings == nil {
		return nil, &ProviderConfigError{Provider: "vector_index", Field: "vector_index.provider"}
	}

	switch settings.Provider {
	case domain.VectorProviderNone:
		return nil, nil

	case domain.VectorProviderPinecone:
		p := settings.Pinecone
		if strings.TrimSpace(p.APIKey) == "" {
			return nil, &ProviderConfigError{Provider: "pinecone", Field: "vector_index.pinecone.api_key"}
		}
		if strings.TrimSpace(p.Index) == "" {
			return nil, &ProviderConfigError{Provider: "pinecone", Field: "vector_index.pinecone.index"}
		}
		client, err := pinecone.NewClient(pinecone.ClientConfig{
			APIKey:     p.APIKey,
			APIVersion: p.APIVersion,
			BaseURL:    p.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		ix, err := pinecone.NewIndex(client, pinecone.Config{
			Index:     p.Index,
			Namespace: p.Namespace,
			Cloud:     p.Cloud,
			Region:    p.Region,
			Dimension: dimension,
			MinScore:  minScore,
		})
		if err != nil {
			return nil, err
		}
		return ix, nil

	case domain.VectorProviderQdrant:
		q := settings.Qdrant
		if strings.TrimSpace(q.Collection) == "" {
			return nil, &ProviderConfigError{Provider: "qdrant", Field: "vector_index.qdrant.collection"}
		}
		ix, err := qdrant.NewIndex(qdrant.Config{
			URL:        q.URL,
			APIKey:     q.APIKey,
			Collection: q.Collection,
			Dimension:  dimension,
			MinScore:   minScore,
		})
		if err != nil {
			return nil, err
		}
		return ix, nil

	default:
		return nil, &ProviderConfigError{Provider: string(settings.Provider), Field: "vector_index.provider"}
	}
}

// ollamaBaseURL points a bare Ollama URL at its OpenAI-compatible API.
func ollamaBaseURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return openaiembed.DefaultOllamaBaseURL
	}
	if strings.HasSuffix(base, ollamaAPIPath) {
		return base
	}
	return base + ollamaAPIPath
}
