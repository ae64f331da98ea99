package driving

import "github.com/custodia-labs/nephra/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Set persists a single configuration key.
	Set(key, value string) error

	// Effective returns the flattened settings with secrets redacted.
	Effective() (map[string]string, error)

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Validate checks the current settings for missing or invalid fields.
	Validate() error

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error

	// ValidateVectorIndexConfig checks the durable index is reachable and
	// matches the embedding dimension.
	ValidateVectorIndexConfig() error
}
