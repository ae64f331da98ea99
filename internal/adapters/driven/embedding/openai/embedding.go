// Package openai provides an embedding service adapter for OpenAI and
// OpenAI-compatible endpoints such as Ollama's /v1 API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultOllamaBaseURL = "http://localhost:11434/v1"
	DefaultModel         = "text-embedding-3-small"
	DefaultTimeout       = 60 * time.Second
	DefaultDimensions    = 1536
	DefaultRetryBackoff  = 500 * time.Millisecond
)

const providerName = "openai"

// Config holds configuration for the embedding service.
type Config struct {
	// APIKey is the API key. Required unless AllowEmptyKey is set.
	APIKey string

	// AllowEmptyKey permits keyless local endpoints (Ollama).
	AllowEmptyKey bool

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions is the vector width the model produces. When zero the
	// width is looked up from the known model table.
	Dimensions int

	// MaxRetries is the number of extra attempts on 429 and 5xx responses.
	MaxRetries int

	// RetryBackoff is the wait before the first retry; it doubles per attempt
	// (default: 500ms).
	RetryBackoff time.Duration

	// RequestsPerSecond caps outgoing requests. Zero means unlimited.
	RequestsPerSecond float64

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// EmbeddingService generates embeddings through the OpenAI embeddings API.
type EmbeddingService struct {
	client     *openai.Client
	model      string
	dimensions int
	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
	// sendDimensions is true for models that accept a dimensions parameter.
	sendDimensions bool
}

// NewEmbeddingService creates a new embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" && !cfg.AllowEmptyKey {
		return nil, errors.New("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	dimensions := cfg.Dimensions
	known, isKnown := domain.EmbeddingDimensions()[cfg.Model]
	if dimensions == 0 {
		dimensions = known
	}
	if dimensions == 0 {
		dimensions = DefaultDimensions
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &EmbeddingService{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: dimensions,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		limiter:    rate.NewLimiter(limit, 1),
		sleep:      sleepContext,
		// Only text-embedding-3-* honours a reduced width, and only when it
		// differs from the model's native one.
		sendDimensions: isKnown && dimensions != known && isMatryoshka(cfg.Model),
	}, nil
}

func isMatryoshka(model string) bool {
	return model == string(openai.SmallEmbedding3) || model == string(openai.LargeEmbedding3)
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, errors.New("openai: no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: texts,
	}
	if s.sendDimensions {
		req.Dimensions = s.dimensions
	}

	var (
		resp openai.EmbeddingResponse
		err  error
	)
	for attempt := 0; ; attempt++ {
		if werr := s.limiter.Wait(ctx); werr != nil {
			return nil, werr
		}
		resp, err = s.client.CreateEmbeddings(ctx, req)
		if err == nil || !retryable(err) || attempt >= s.maxRetries || ctx.Err() != nil {
			break
		}
		if serr := s.sleep(ctx, s.backoff<<attempt); serr != nil {
			return nil, serr
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.EmbeddingRequestError{Provider: providerName, StatusCode: statusCode(err), Cause: err}
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// Order by index; the API does not promise input order.
	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", data.Index)
		}
		vec := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float32(v)
		}
		embeddings[data.Index] = vec
	}

	return embeddings, nil
}

// retryable reports whether a failed request may succeed on retry.
func retryable(err error) bool {
	code := statusCode(err)
	return code == http.StatusTooManyRequests || code >= 500
}

// statusCode extracts the HTTP status of a failed request, or 0.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by listing models.
// This checks the API key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
