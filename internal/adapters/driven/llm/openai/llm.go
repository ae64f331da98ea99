// Package openai provides the query-refinement LLM adapter for OpenAI and
// OpenAI-compatible chat endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// Ensure LLMService implements the interfaces.
var (
	_ driven.LLMService       = (*LLMService)(nil)
	_ driven.PromptStoreAware = (*LLMService)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 30 * time.Second
)

// defaultRefinePrompt is used when no PromptStore is configured.
const defaultRefinePrompt = `Fix any misspelled medical terms in this search query about kidney health.
Return ONLY the corrected query. If nothing needs fixing, return it unchanged.

Query: %s`

// LLMConfig holds configuration for the LLM service.
type LLMConfig struct {
	// APIKey is the API key. Required unless AllowEmptyKey is set.
	APIKey string

	// AllowEmptyKey permits keyless local endpoints (Ollama).
	AllowEmptyKey bool

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the HTTP client timeout (default: 30s). The per-call
	// refinement bound is applied by the caller's context.
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// LLMService rewrites queries through the chat completions API.
type LLMService struct {
	client      *openai.Client
	model       string
	promptStore driven.PromptStore
}

// NewLLMService creates a new LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" && !cfg.AllowEmptyKey {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &LLMService{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// RewriteQuery corrects misspelled domain terms in query.
func (s *LLMService) RewriteQuery(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf(s.loadPrompt(), query)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   100,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("%w: rewrite query: %w", domain.ErrLLMUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no response choices returned")
	}

	rewritten := strings.TrimSpace(resp.Choices[0].Message.Content)
	rewritten = strings.Trim(rewritten, "\"'`")
	if rewritten == "" {
		return query, nil
	}
	return rewritten, nil
}

// loadPrompt loads the refine prompt from the store, falling back to the
// built-in template.
func (s *LLMService) loadPrompt() string {
	if s.promptStore == nil {
		return defaultRefinePrompt
	}
	prompt, err := s.promptStore.Load(driven.PromptQueryRefine)
	if err != nil || strings.Count(prompt, "%s") != 1 {
		return defaultRefinePrompt
	}
	return prompt
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *LLMService) SetPromptStore(store driven.PromptStore) {
	s.promptStore = store
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by listing models.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
