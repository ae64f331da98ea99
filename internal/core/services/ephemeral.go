package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/logger"
)

// Ensure EphemeralBackend implements the interface.
var _ driven.RetrievalBackend = (*EphemeralBackend)(nil)

// ephemeralEmbedBatch caps the texts sent in one embedding request.
const ephemeralEmbedBatch = 100

// fileIngester extracts and chunks one file.
type fileIngester interface {
	IngestFile(ctx context.Context, content []byte, filename string) ([]domain.Chunk, error)
}

// EphemeralBackend is the in-process fallback index. It is built from
// every corpus file on first use and never refreshed afterwards, so files
// added later are invisible to it until the process restarts.
type EphemeralBackend struct {
	corpus   driven.CorpusStore
	ingest   fileIngester
	embedder driven.EmbeddingService
	store    driven.VectorIndex
	workers  int

	mu    sync.Mutex
	built bool
}

// NewEphemeralBackend creates a lazily built fallback over store.
// store is typically an empty in-memory index.
func NewEphemeralBackend(
	corpus driven.CorpusStore,
	ingest fileIngester,
	embedder driven.EmbeddingService,
	store driven.VectorIndex,
) *EphemeralBackend {
	return &EphemeralBackend{
		corpus:   corpus,
		ingest:   ingest,
		embedder: embedder,
		store:    store,
		workers:  min(runtime.NumCPU(), 4),
	}
}

// Name returns "ephemeral".
func (e *EphemeralBackend) Name() string {
	return "ephemeral"
}

// Built reports whether the store has been populated.
func (e *EphemeralBackend) Built() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.built
}

// Search builds the store on first call, then queries it.
func (e *EphemeralBackend) Search(ctx context.Context, query []float32, k int) ([]domain.Chunk, error) {
	if err := e.ensureBuilt(ctx); err != nil {
		return nil, err
	}
	return e.store.Search(ctx, query, k)
}

// ensureBuilt populates the store once. A failed build is retried on the next call.
func (e *EphemeralBackend) ensureBuilt(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.built {
		return nil
	}
	if e.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	logger.Section("Ephemeral Index Build")
	if err := e.build(ctx); err != nil {
		if r, ok := e.store.(driven.ResettableIndex); ok {
			if rerr := r.Reset(ctx); rerr != nil {
				logger.Warn("Discard partial ephemeral index: %v", rerr)
			}
		}
		return fmt.Errorf("build ephemeral index: %w", err)
	}
	e.built = true
	return nil
}

func (e *EphemeralBackend) build(ctx context.Context) error {
	// 1. List corpus
	files, err := e.corpus.List(ctx)
	if err != nil {
		return fmt.Errorf("list corpus: %w", err)
	}

	// 2. Extract in parallel, keeping corpus order
	perFile := make([][]domain.Chunk, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.workers, 1))
	for i, f := range files {
		g.Go(func() error {
			content, err := e.corpus.Read(gctx, f.Name)
			if err != nil {
				logger.Warn("Ephemeral index: skip %s: %v", f.Name, err)
				return nil
			}
			chunks, err := e.ingest.IngestFile(gctx, content, f.Name)
			if err != nil {
				logger.Warn("Ephemeral index: skip %s: %v", f.Name, err)
				return nil
			}
			perFile[i] = chunks
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var chunks []domain.Chunk
	for _, c := range perFile {
		chunks = append(chunks, c...)
	}

	// 3. Embed and store
	for start := 0; start < len(chunks); start += ephemeralEmbedBatch {
		batch := chunks[start:min(start+ephemeralEmbedBatch, len(chunks))]
		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Content
		}
		vectors, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(batch))
		}
		for i := range batch {
			batch[i].Embedding = vectors[i]
		}
		if err := e.store.Add(ctx, batch); err != nil {
			return fmt.Errorf("store chunks: %w", err)
		}
	}

	logger.Info("Ephemeral index built: %d chunks from %d files", len(chunks), len(files))
	return nil
}
