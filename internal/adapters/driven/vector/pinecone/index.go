package pinecone

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/nephra/internal/adapters/driven/vector"
	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.ResettableIndex = (*Index)(nil)

// maxUpsertVectors bounds a single upsert request.
const maxUpsertVectors = 100

// Defaults for index lifecycle polling.
const (
	DefaultCloud        = "aws"
	DefaultRegion       = "us-east-1"
	DefaultPollInterval = 2 * time.Second
	DefaultPollAttempts = 60
)

// Config configures the index adapter.
type Config struct {
	// Index is the index name (required).
	Index string
	// Namespace scopes records inside the index.
	Namespace string
	// Cloud and Region place a newly created serverless index.
	Cloud  string
	Region string
	// Dimension is the embedding model's output width (required).
	Dimension int
	// MinScore drops matches below this cosine similarity.
	MinScore float64
	// PollInterval and PollAttempts bound waits on index lifecycle changes.
	PollInterval time.Duration
	PollAttempts int
}

// Option configures an Index.
type Option func(*Index)

// WithSleep replaces the wait used between lifecycle polls.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(ix *Index) {
		ix.sleep = sleep
	}
}

// Index is a Pinecone-backed driven.ResettableIndex.
type Index struct {
	client *Client
	cfg    Config
	sleep  func(ctx context.Context, d time.Duration) error

	ready vector.Readiness
	// resetMu serialises Reset against itself.
	resetMu sync.Mutex

	mu   sync.RWMutex
	host string
}

// NewIndex creates the adapter. No network call is made until first use.
func NewIndex(client *Client, cfg Config, opts ...Option) (*Index, error) {
	if client == nil {
		return nil, vector.OpErr(provider, "configure", vector.OperationErrorValidation, "client required", nil)
	}
	if strings.TrimSpace(cfg.Index) == "" {
		return nil, vector.OpErr(provider, "configure", vector.OperationErrorValidation, "index name required", nil)
	}
	if cfg.Dimension <= 0 {
		return nil, vector.OpErr(provider, "configure", vector.OperationErrorValidation, "embedding dimension required", nil)
	}
	if cfg.Cloud == "" {
		cfg.Cloud = DefaultCloud
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultPollAttempts
	}

	ix := &Index{client: client, cfg: cfg, sleep: sleepContext}
	for _, opt := range opts {
		opt(ix)
	}
	return ix, nil
}

// Name identifies the backend.
func (ix *Index) Name() string {
	return provider
}

// EnsureReady checks the index exists at the embedding dimension,
// creating it when missing. The result is memoized.
func (ix *Index) EnsureReady(ctx context.Context) error {
	return ix.ready.Check(ctx, ix.probe)
}

func (ix *Index) probe(ctx context.Context) error {
	desc, err := ix.client.DescribeIndex(ctx, ix.cfg.Index)
	if vector.IsNotFound(err) {
		logger.Info("pinecone index %q not found, creating at dimension %d", ix.cfg.Index, ix.cfg.Dimension)
		desc, err = ix.create(ctx)
	}
	if err != nil {
		return err
	}

	if desc.Dimension != ix.cfg.Dimension {
		return &domain.DimensionMismatchError{
			Index:          ix.cfg.Index,
			IndexDimension: desc.Dimension,
			ModelDimension: ix.cfg.Dimension,
		}
	}

	if !desc.Status.Ready {
		if desc, err = ix.waitReady(ctx); err != nil {
			return err
		}
	}

	ix.mu.Lock()
	ix.host = desc.Host
	ix.mu.Unlock()
	return nil
}

func (ix *Index) create(ctx context.Context) (*IndexDescription, error) {
	_, err := ix.client.CreateIndex(ctx, CreateIndexRequest{
		Name:      ix.cfg.Index,
		Dimension: ix.cfg.Dimension,
		Metric:    "cosine",
		Spec: IndexSpec{Serverless: ServerlessSpec{
			Cloud:  ix.cfg.Cloud,
			Region: ix.cfg.Region,
		}},
	})
	if err != nil {
		return nil, err
	}
	return ix.waitReady(ctx)
}

// waitReady polls describe_index until the index reports ready.
func (ix *Index) waitReady(ctx context.Context) (*IndexDescription, error) {
	for range ix.cfg.PollAttempts {
		desc, err := ix.client.DescribeIndex(ctx, ix.cfg.Index)
		if err != nil && !vector.IsNotFound(err) {
			return nil, err
		}
		if err == nil && desc.Status.Ready && desc.Host != "" {
			return desc, nil
		}
		if err := ix.sleep(ctx, ix.cfg.PollInterval); err != nil {
			return nil, err
		}
	}
	return nil, vector.OpErr(provider, "wait_ready", vector.OperationErrorRequestFailed,
		fmt.Sprintf("index %q not ready after %d polls", ix.cfg.Index, ix.cfg.PollAttempts), nil)
}

// waitDeleted polls describe_index until the index is gone.
func (ix *Index) waitDeleted(ctx context.Context) error {
	for range ix.cfg.PollAttempts {
		_, err := ix.client.DescribeIndex(ctx, ix.cfg.Index)
		if vector.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := ix.sleep(ctx, ix.cfg.PollInterval); err != nil {
			return err
		}
	}
	return vector.OpErr(provider, "wait_deleted", vector.OperationErrorRequestFailed,
		fmt.Sprintf("index %q still present after %d polls", ix.cfg.Index, ix.cfg.PollAttempts), nil)
}

// readyHost returns the data-plane host once the index is ready. Reads pass
// wait=false so a slow create or wait does not hold up the search fallback.
func (ix *Index) readyHost(ctx context.Context, wait bool) (string, error) {
	check := ix.ready.Check
	if !wait {
		check = ix.ready.TryCheck
	}
	if err := check(ctx, ix.probe); err != nil {
		return "", &domain.BackendUnavailableError{Backend: provider, Cause: err}
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.host, nil
}

// Search returns up to k chunks nearest to query with score >= MinScore.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]domain.Chunk, error) {
	host, err := ix.readyHost(ctx, false)
	if err != nil {
		return nil, err
	}

	resp, err := ix.client.Query(ctx, host, QueryRequest{
		Namespace:       ix.cfg.Namespace,
		Vector:          query,
		TopK:            k,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, &domain.BackendUnavailableError{Backend: provider, Cause: err}
	}

	chunks := make([]domain.Chunk, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		chunks = append(chunks, domain.ChunkFromMetadata(m.ID, m.Score, m.Metadata))
	}
	return vector.FilterByScore(chunks, ix.cfg.MinScore), nil
}

// Add upserts chunks in requests of at most maxUpsertVectors.
func (ix *Index) Add(ctx context.Context, chunks []domain.Chunk) error {
	const op = "upsert"
	if len(chunks) == 0 {
		return nil
	}

	vectors := make([]Vector, 0, len(chunks))
	for _, c := range chunks {
		if c.ID == "" {
			return vector.OpErr(provider, op, vector.OperationErrorValidation, "chunk id is required", domain.ErrInvalidInput)
		}
		if len(c.Embedding) != ix.cfg.Dimension {
			return vector.OpErr(provider, op, vector.OperationErrorValidation,
				fmt.Sprintf("chunk %q has %d values, index expects %d", c.ID, len(c.Embedding), ix.cfg.Dimension),
				domain.ErrInvalidInput)
		}
		vectors = append(vectors, Vector{ID: c.ID, Values: c.Embedding, Metadata: c.IndexMetadata()})
	}

	host, err := ix.readyHost(ctx, true)
	if err != nil {
		return err
	}

	for start := 0; start < len(vectors); start += maxUpsertVectors {
		end := min(start+maxUpsertVectors, len(vectors))
		_, err := ix.client.Upsert(ctx, host, UpsertRequest{
			Vectors:   vectors[start:end],
			Namespace: ix.cfg.Namespace,
		})
		if err != nil {
			return &domain.BackendUnavailableError{Backend: provider, Cause: err}
		}
	}
	return nil
}

// Stats returns record counts from describe_index_stats.
func (ix *Index) Stats(ctx context.Context) (*domain.IndexStats, error) {
	host, err := ix.readyHost(ctx, true)
	if err != nil {
		return nil, err
	}

	raw, err := ix.client.DescribeIndexStats(ctx, host)
	if err != nil {
		return nil, &domain.BackendUnavailableError{Backend: provider, Cause: err}
	}

	stats := &domain.IndexStats{
		IndexIdentifier: ix.cfg.Index,
		Provider:        provider,
		TotalRecords:    raw.TotalVectorCount,
		Dimension:       raw.Dimension,
		Namespaces:      make(map[string]int64, len(raw.Namespaces)),
	}
	for name, ns := range raw.Namespaces {
		stats.Namespaces[name] = ns.VectorCount
	}
	return stats, nil
}

// Reset deletes the index, waits for the deletion to propagate, recreates
// it at the embedding dimension and waits until it is ready.
func (ix *Index) Reset(ctx context.Context) error {
	ix.resetMu.Lock()
	defer ix.resetMu.Unlock()

	logger.Warn("resetting pinecone index %q", ix.cfg.Index)

	// 1. Delete; a missing index is already reset.
	if err := ix.client.DeleteIndex(ctx, ix.cfg.Index); err != nil && !vector.IsNotFound(err) {
		return fmt.Errorf("delete index: %w", err)
	}

	// 2. Wait for deletion to propagate.
	if err := ix.waitDeleted(ctx); err != nil {
		return fmt.Errorf("wait for deletion: %w", err)
	}

	// 3. Recreate and re-check readiness.
	ix.ready.Reset()
	if _, err := ix.create(ctx); err != nil {
		return fmt.Errorf("recreate index: %w", err)
	}
	if err := ix.EnsureReady(ctx); err != nil {
		return fmt.Errorf("verify index: %w", err)
	}
	return nil
}

// Close releases resources.
func (ix *Index) Close() error {
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
