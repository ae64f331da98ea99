package services

import (
	"context"
	"time"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/logger"
)

// FallbackStrategy tries retrieval backends in order and returns the
// result of the first one that answers without error.
type FallbackStrategy struct {
	backends []driven.RetrievalBackend
	now      func() time.Time
}

// NewFallbackStrategy creates a strategy over backends in priority order.
// Nil backends are skipped, so an unconfigured durable index can be passed as is.
func NewFallbackStrategy(backends ...driven.RetrievalBackend) *FallbackStrategy {
	kept := make([]driven.RetrievalBackend, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			kept = append(kept, b)
		}
	}
	return &FallbackStrategy{backends: kept, now: time.Now}
}

// Backends returns the names of the backends in attempt order.
func (f *FallbackStrategy) Backends() []string {
	names := make([]string, len(f.backends))
	for i, b := range f.backends {
		names[i] = b.Name()
	}
	return names
}

// Search runs query against each backend until one succeeds.
// The outcomes record every attempt made. When all fail the chunks are nil.
func (f *FallbackStrategy) Search(ctx context.Context, query []float32, k int) ([]domain.Chunk, []domain.AttemptOutcome) {
	outcomes := make([]domain.AttemptOutcome, 0, len(f.backends))

	for _, backend := range f.backends {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, domain.AttemptOutcome{Backend: backend.Name(), Err: err})
			break
		}

		start := f.now()
		chunks, err := backend.Search(ctx, query, k)
		outcome := domain.AttemptOutcome{
			Backend:  backend.Name(),
			Chunks:   len(chunks),
			Err:      err,
			Duration: f.now().Sub(start),
		}
		outcomes = append(outcomes, outcome)

		if outcome.Succeeded() {
			logger.Debug("Backend %s returned %d chunks in %s", backend.Name(), len(chunks), outcome.Duration)
			return chunks, outcomes
		}
		logger.Warn("Backend %s failed, trying next: %v", backend.Name(), err)
	}

	return nil, outcomes
}
