// Package memory provides an in-process vector index using brute-force
// cosine similarity. It backs the ephemeral fallback and tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/nephra/internal/adapters/driven/vector"
	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.ResettableIndex = (*Index)(nil)

// Index stores chunks in memory. Adding a chunk with an existing ID
// replaces it. Safe for concurrent use.
type Index struct {
	name      string
	dimension int
	minScore  float64

	mu     sync.RWMutex
	order  []string
	chunks map[string]domain.Chunk
}

// Option configures an Index.
type Option func(*Index)

// WithName overrides the backend name reported by Name.
func WithName(name string) Option {
	return func(ix *Index) {
		ix.name = name
	}
}

// WithMinScore drops matches scoring below min.
func WithMinScore(min float64) Option {
	return func(ix *Index) {
		ix.minScore = min
	}
}

// New creates an index for vectors of the given width. A dimension of
// zero adopts the width of the first chunk added.
func New(dimension int, opts ...Option) *Index {
	ix := &Index{
		name:      "memory",
		dimension: dimension,
		chunks:    make(map[string]domain.Chunk),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Name identifies the backend.
func (ix *Index) Name() string {
	return ix.name
}

// EnsureReady always succeeds.
func (ix *Index) EnsureReady(context.Context) error {
	return nil
}

// Add upserts chunks. Every chunk needs an ID and an embedding of the
// index width; on error nothing is written.
func (ix *Index) Add(_ context.Context, chunks []domain.Chunk) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dimension
	for _, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("%w: chunk id is required", domain.ErrInvalidInput)
		}
		if dim == 0 {
			dim = len(c.Embedding)
		}
		if len(c.Embedding) == 0 || len(c.Embedding) != dim {
			return fmt.Errorf("%w: chunk %q has %d values, index expects %d",
				domain.ErrInvalidInput, c.ID, len(c.Embedding), dim)
		}
	}
	ix.dimension = dim

	for _, c := range chunks {
		if _, ok := ix.chunks[c.ID]; !ok {
			ix.order = append(ix.order, c.ID)
		}
		c.Score = 0
		ix.chunks[c.ID] = c
	}
	return nil
}

// Search returns up to k chunks by descending cosine similarity. Ties
// keep insertion order.
func (ix *Index) Search(_ context.Context, query []float32, k int) ([]domain.Chunk, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.order) == 0 || k <= 0 {
		return nil, nil
	}
	if ix.dimension != 0 && len(query) != ix.dimension {
		return nil, &domain.DimensionMismatchError{
			Index:          ix.name,
			IndexDimension: ix.dimension,
			ModelDimension: len(query),
		}
	}

	results := make([]domain.Chunk, 0, len(ix.order))
	for _, id := range ix.order {
		c := ix.chunks[id]
		c.Score = Cosine(query, c.Embedding)
		results = append(results, c)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	results = vector.FilterByScore(results, ix.minScore)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Stats reports the record count.
func (ix *Index) Stats(context.Context) (*domain.IndexStats, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := int64(len(ix.order))
	return &domain.IndexStats{
		IndexIdentifier: ix.name,
		Provider:        ix.name,
		TotalRecords:    n,
		Dimension:       ix.dimension,
		Namespaces:      map[string]int64{"": n},
	}, nil
}

// Len returns the number of stored chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.order)
}

// Reset removes every chunk.
func (ix *Index) Reset(context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.order = nil
	ix.chunks = make(map[string]domain.Chunk)
	return nil
}

// Close releases resources.
func (ix *Index) Close() error {
	return nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the widths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
