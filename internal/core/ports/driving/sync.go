package driving

import (
	"context"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// SyncOrchestrator reconciles the corpus directory with the durable index.
type SyncOrchestrator interface {
	// Sync loads every corpus file (or req.File), chunks it and uploads the
	// chunks in batches. Progress reports are sent on progress, which may
	// be nil. Sync never closes progress.
	Sync(ctx context.Context, req domain.SyncRequest, progress chan<- domain.SyncProgress) (*domain.SyncResult, error)

	// Status returns the live state of the current run.
	Status() domain.SyncStatus

	// History returns recent runs, newest first.
	History(ctx context.Context, limit int) ([]domain.SyncRun, error)
}
