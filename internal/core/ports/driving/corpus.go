package driving

import (
	"context"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// CorpusService manages files in the corpus directory.
type CorpusService interface {
	// List returns ingestible corpus files.
	List(ctx context.Context) ([]driven.CorpusFile, error)

	// Upload saves a file into the corpus and syncs it into the durable index.
	Upload(ctx context.Context, name string, content []byte, progress chan<- domain.SyncProgress) (*domain.SyncResult, error)

	// Delete removes a file from the corpus. Indexed chunks are kept.
	Delete(ctx context.Context, name string) error
}
