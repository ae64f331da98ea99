package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
	"github.com/custodia-labs/nephra/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// errNoIndex is returned by durable operations when no provider is configured.
var errNoIndex = fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, domain.ErrIndexNotConfigured)

// IngestService extracts, chunks and indexes documents.
type IngestService struct {
	registry driven.NormaliserRegistry
	pipeline driven.PostProcessorPipeline
	embedder driven.EmbeddingService
	index    driven.ResettableIndex
	cache    driven.RetrievalCache
}

// NewIngestService creates a new ingest service.
// The embedder and index are optional; without them only extraction works.
func NewIngestService(
	registry driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	index driven.ResettableIndex,
) *IngestService {
	return &IngestService{
		registry: registry,
		pipeline: pipeline,
		embedder: embedder,
		index:    index,
	}
}

// SetCache sets the retrieval cache that is cleared after index mutations.
func (s *IngestService) SetCache(cache driven.RetrievalCache) {
	s.cache = cache
}

// IngestFile extracts and chunks a file.
func (s *IngestService) IngestFile(ctx context.Context, content []byte, filename string) ([]domain.Chunk, error) {
	raw := &domain.RawDocument{URI: filename, Content: content}

	result, err := s.registry.Normalise(ctx, raw)
	if errors.Is(err, domain.ErrUnsupportedFormat) {
		logger.Debug("Skipping %s: %v", filename, err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	chunks, err := s.pipeline.Process(ctx, &result.Document)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", filename, err)
	}
	logger.Debug("Ingested %s: %d chunks", filename, len(chunks))
	return chunks, nil
}

// IngestText chunks pasted text under label.
func (s *IngestService) IngestText(ctx context.Context, text, label string) ([]domain.Chunk, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("%w: source label is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", domain.ErrInvalidInput)
	}

	doc := &domain.Document{
		ID:          uuid.New().String(),
		Source:      label,
		ContentType: domain.ContentManual,
		Content:     text,
		Metadata:    map[string]any{"title": label},
		CreatedAt:   time.Now(),
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", label, err)
	}
	return chunks, nil
}

// AddToIndex embeds chunks and writes them to the durable index.
func (s *IngestService) AddToIndex(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if s.index == nil {
		return errNoIndex
	}
	if s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	// 1. Readiness (memoized by the index)
	if err := s.index.EnsureReady(ctx); err != nil {
		return fmt.Errorf("ensure index ready: %w", err)
	}

	// 2. Embed
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	// 3. Write
	embedded := make([]domain.Chunk, len(chunks))
	for i := range chunks {
		embedded[i] = chunks[i]
		embedded[i].Embedding = vectors[i]
	}
	if err := s.index.Add(ctx, embedded); err != nil {
		return fmt.Errorf("add to index: %w", err)
	}

	// 4. Cached results may now be stale
	s.clearCache(ctx)
	return nil
}

// IndexStats returns the durable index counters.
func (s *IngestService) IndexStats(ctx context.Context) (*domain.IndexStats, error) {
	if s.index == nil {
		return nil, errNoIndex
	}
	stats, err := s.index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	return stats, nil
}

// ResetIndex destroys and recreates the durable index and clears the cache.
func (s *IngestService) ResetIndex(ctx context.Context) error {
	if s.index == nil {
		return errNoIndex
	}
	logger.Warn("Resetting index %s: every record will be deleted", s.index.Name())
	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	s.clearCache(ctx)
	return nil
}

func (s *IngestService) clearCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(ctx); err != nil {
		logger.Warn("Clear retrieval cache: %v", err)
	}
}
