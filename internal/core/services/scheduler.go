package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
	"github.com/custodia-labs/nephra/internal/logger"
)

// Scheduler runs a full corpus sync at a fixed interval.
// It is a pure core service with no external control API.
type Scheduler struct {
	interval time.Duration
	syncOrch driving.SyncOrchestrator
	tick     func(d time.Duration) (<-chan time.Time, func())

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewScheduler creates a scheduler. A non-positive interval makes Start a no-op.
func NewScheduler(interval time.Duration, syncOrch driving.SyncOrchestrator) *Scheduler {
	return &Scheduler{
		interval: interval,
		syncOrch: syncOrch,
		tick: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Start runs the loop until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 || s.syncOrch == nil {
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	logger.Info("Background sync every %s", s.interval)
	ticks, stopTicker := s.tick(s.interval)
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			s.markStopped()
			return nil
		case <-stop:
			return nil
		case <-ticks:
			s.runOnce(ctx)
		}
	}
}

// Stop ends a running loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

func (s *Scheduler) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// runOnce performs one full sync. A run already in progress is not an error.
func (s *Scheduler) runOnce(ctx context.Context) {
	result, err := s.syncOrch.Sync(ctx, domain.SyncRequest{}, nil)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		logger.Debug("Background sync skipped: a sync is already running")
	case err != nil:
		logger.Warn("Background sync failed: %v", err)
	default:
		logger.Info("Background sync indexed %d chunks from %d files", result.TotalChunks, result.FileCount)
	}
}
