package driving

import (
	"context"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// IngestService turns documents into chunks and writes them to the durable index.
type IngestService interface {
	// IngestFile extracts and chunks a file without indexing it.
	// Unsupported extensions yield no chunks and no error.
	IngestFile(ctx context.Context, content []byte, filename string) ([]domain.Chunk, error)

	// IngestText chunks pasted text under a caller-supplied source label.
	IngestText(ctx context.Context, text, label string) ([]domain.Chunk, error)

	// AddToIndex embeds chunks and appends them to the durable index.
	// Failures are returned, never absorbed.
	AddToIndex(ctx context.Context, chunks []domain.Chunk) error

	// IndexStats returns diagnostic counters from the durable index.
	IndexStats(ctx context.Context) (*domain.IndexStats, error)

	// ResetIndex destroys and recreates the durable index.
	ResetIndex(ctx context.Context) error
}
