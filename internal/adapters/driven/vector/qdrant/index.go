package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/nephra/internal/adapters/driven/vector"
	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.ResettableIndex = (*Index)(nil)

const (
	// DefaultURL is a local Qdrant instance.
	DefaultURL = "http://localhost:6333"
	// DefaultTimeout bounds each REST call.
	DefaultTimeout = 15 * time.Second

	maxUpsertPoints = 100

	// payloadChunkID keeps the original chunk id, since point ids must be UUIDs.
	payloadChunkID = "chunkId"
)

// pointNamespace derives deterministic point UUIDs from chunk ids.
var pointNamespace = uuid.MustParse("6f3b8f0e-4a8e-4e56-9a53-2f1c6f0d9b21")

// Config configures the Qdrant index.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	MinScore   float64
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Index is a Qdrant-backed driven.ResettableIndex.
type Index struct {
	cfg     Config
	baseURL string
	http    *http.Client

	ready   vector.Readiness
	resetMu sync.Mutex
}

// NewIndex creates the adapter. No request is made until first use.
func NewIndex(cfg Config) (*Index, error) {
	if strings.TrimSpace(cfg.Collection) == "" {
		return nil, vector.OpErr(provider, "configure", vector.OperationErrorValidation, "collection required", nil)
	}
	if cfg.Dimension <= 0 {
		return nil, vector.OpErr(provider, "configure", vector.OperationErrorValidation, "embedding dimension required", nil)
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Index{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    httpClient,
	}, nil
}

// Name identifies the backend.
func (ix *Index) Name() string {
	return provider
}

// EnsureReady checks the collection exists with the embedding width,
// creating it when missing. The result is memoized.
func (ix *Index) EnsureReady(ctx context.Context) error {
	return ix.ready.Check(ctx, ix.probe)
}

func (ix *Index) probe(ctx context.Context) error {
	info, err := ix.describe(ctx)
	if vector.IsNotFound(err) {
		logger.Info("qdrant collection %q not found, creating at dimension %d", ix.cfg.Collection, ix.cfg.Dimension)
		return ix.create(ctx)
	}
	if err != nil {
		return err
	}

	if size := info.Config.Params.Vectors.Size; size != ix.cfg.Dimension {
		return &domain.DimensionMismatchError{
			Index:          ix.cfg.Collection,
			IndexDimension: size,
			ModelDimension: ix.cfg.Dimension,
		}
	}
	return nil
}

func (ix *Index) describe(ctx context.Context) (*collectionInfo, error) {
	var info collectionInfo
	if err := ix.doJSON(ctx, "get_collection", http.MethodGet, ix.collectionPath(""), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (ix *Index) create(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     ix.cfg.Dimension,
			"distance": "Cosine",
		},
	}
	return ix.doJSON(ctx, "create_collection", http.MethodPut, ix.collectionPath(""), body, nil)
}

func (ix *Index) unavailable(err error) error {
	return &domain.BackendUnavailableError{Backend: provider, Cause: err}
}

// Search returns up to k chunks nearest to query with score >= MinScore.
func (ix *Index) Search(ctx context.Context, query []float32, k int) ([]domain.Chunk, error) {
	if err := ix.ready.TryCheck(ctx, ix.probe); err != nil {
		return nil, ix.unavailable(err)
	}
	if k <= 0 {
		k = 10
	}

	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
		"with_vector":  false,
	}
	var items []searchItem
	if err := ix.doJSON(ctx, "search", http.MethodPost, ix.collectionPath("/points/search"), req, &items); err != nil {
		return nil, ix.unavailable(err)
	}

	chunks := make([]domain.Chunk, 0, len(items))
	for _, item := range items {
		id, _ := item.Payload[payloadChunkID].(string)
		if id == "" {
			id = strings.Trim(string(item.ID), `"`)
		}
		chunks = append(chunks, domain.ChunkFromMetadata(id, item.Score, item.Payload))
	}
	return vector.FilterByScore(chunks, ix.cfg.MinScore), nil
}

// Add upserts chunks in requests of at most maxUpsertPoints and waits for
// each write to be applied.
func (ix *Index) Add(ctx context.Context, chunks []domain.Chunk) error {
	const op = "upsert"
	if len(chunks) == 0 {
		return nil
	}

	points := make([]map[string]any, 0, len(chunks))
	for _, c := range chunks {
		if c.ID == "" {
			return vector.OpErr(provider, op, vector.OperationErrorValidation, "chunk id is required", domain.ErrInvalidInput)
		}
		if len(c.Embedding) != ix.cfg.Dimension {
			return vector.OpErr(provider, op, vector.OperationErrorValidation,
				fmt.Sprintf("chunk %q has %d values, collection expects %d", c.ID, len(c.Embedding), ix.cfg.Dimension),
				domain.ErrInvalidInput)
		}
		payload := c.IndexMetadata()
		payload[payloadChunkID] = c.ID
		points = append(points, map[string]any{
			"id":      PointID(c.ID),
			"vector":  c.Embedding,
			"payload": payload,
		})
	}

	if err := ix.EnsureReady(ctx); err != nil {
		return ix.unavailable(err)
	}

	for start := 0; start < len(points); start += maxUpsertPoints {
		end := min(start+maxUpsertPoints, len(points))
		req := map[string]any{"points": points[start:end]}
		if err := ix.doJSON(ctx, op, http.MethodPut, ix.collectionPath("/points?wait=true"), req, nil); err != nil {
			return ix.unavailable(err)
		}
	}
	return nil
}

// Stats reports the collection's point count and vector width.
func (ix *Index) Stats(ctx context.Context) (*domain.IndexStats, error) {
	if err := ix.EnsureReady(ctx); err != nil {
		return nil, ix.unavailable(err)
	}
	info, err := ix.describe(ctx)
	if err != nil {
		return nil, ix.unavailable(err)
	}
	return &domain.IndexStats{
		IndexIdentifier: ix.cfg.Collection,
		Provider:        provider,
		TotalRecords:    info.PointsCount,
		Dimension:       info.Config.Params.Vectors.Size,
		Namespaces:      map[string]int64{"": info.PointsCount},
	}, nil
}

// Reset drops and recreates the collection at the embedding dimension.
func (ix *Index) Reset(ctx context.Context) error {
	ix.resetMu.Lock()
	defer ix.resetMu.Unlock()

	logger.Warn("resetting qdrant collection %q", ix.cfg.Collection)

	err := ix.doJSON(ctx, "delete_collection", http.MethodDelete, ix.collectionPath(""), nil, nil)
	if err != nil && !vector.IsNotFound(err) {
		return fmt.Errorf("delete collection: %w", err)
	}

	ix.ready.Reset()
	if err := ix.create(ctx); err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	if err := ix.EnsureReady(ctx); err != nil {
		return fmt.Errorf("verify collection: %w", err)
	}
	return nil
}

// Close releases resources.
func (ix *Index) Close() error {
	return nil
}

// PointID maps a chunk id to its deterministic Qdrant point UUID.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}
