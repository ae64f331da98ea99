package vector

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// ErrCheckInProgress is returned by TryCheck while another caller probes.
var ErrCheckInProgress = errors.New("readiness check in progress")

// Readiness memoizes an index readiness check.
//
// Success and dimension mismatches are remembered until Reset. Transient
// failures (network, quota) are not, so the next call checks again.
// Concurrent callers share one probe; the lock is never held while it runs.
type Readiness struct {
	mu       sync.Mutex
	done     bool
	result   error
	gen      uint64
	inflight *readinessCall
}

type readinessCall struct {
	wait chan struct{}
	err  error
}

// Check runs probe unless a result is memoized. If a probe is already
// running it waits for that result or for ctx, whichever comes first.
func (r *Readiness) Check(ctx context.Context, probe func(context.Context) error) error {
	return r.check(ctx, probe, true)
}

// TryCheck is Check for latency-sensitive reads: it returns
// ErrCheckInProgress instead of waiting on another caller's probe.
func (r *Readiness) TryCheck(ctx context.Context, probe func(context.Context) error) error {
	return r.check(ctx, probe, false)
}

func (r *Readiness) check(ctx context.Context, probe func(context.Context) error, wait bool) error {
	r.mu.Lock()
	if r.done {
		defer r.mu.Unlock()
		return r.result
	}
	if c := r.inflight; c != nil {
		r.mu.Unlock()
		if !wait {
			return ErrCheckInProgress
		}
		select {
		case <-c.wait:
			return c.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c := &readinessCall{wait: make(chan struct{})}
	r.inflight = c
	gen := r.gen
	r.mu.Unlock()

	err := probe(ctx)

	r.mu.Lock()
	var mismatch *domain.DimensionMismatchError
	if gen == r.gen && (err == nil || errors.As(err, &mismatch)) {
		r.done = true
		r.result = err
	}
	if r.inflight == c {
		r.inflight = nil
	}
	r.mu.Unlock()

	c.err = err
	close(c.wait)
	return err
}

// Reset forgets the memoized result. A probe still running when Reset is
// called does not memoize its outcome.
func (r *Readiness) Reset() {
	r.mu.Lock()
	r.done = false
	r.result = nil
	r.gen++
	r.inflight = nil
	r.mu.Unlock()
}

// FilterByScore drops chunks scoring below minScore, keeping order.
func FilterByScore(chunks []domain.Chunk, minScore float64) []domain.Chunk {
	out := chunks[:0]
	for _, c := range chunks {
		if c.Score >= minScore {
			out = append(out, c)
		}
	}
	return out
}
