package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
	"github.com/custodia-labs/nephra/internal/logger"
)

// Ensure CorpusService implements the interface.
var _ driving.CorpusService = (*CorpusService)(nil)

// CorpusService manages corpus files and syncs uploads into the index.
type CorpusService struct {
	corpus driven.CorpusStore
	sync   driving.SyncOrchestrator
}

// NewCorpusService creates a new corpus service.
func NewCorpusService(corpus driven.CorpusStore, sync driving.SyncOrchestrator) *CorpusService {
	return &CorpusService{corpus: corpus, sync: sync}
}

// List returns the ingestible corpus files.
func (s *CorpusService) List(ctx context.Context) ([]driven.CorpusFile, error) {
	files, err := s.corpus.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}
	return files, nil
}

// Upload stores a file and syncs it with the interactive batch size.
// The file is kept even when indexing fails, so a later sync can retry it.
func (s *CorpusService) Upload(
	ctx context.Context, name string, content []byte, progress chan<- domain.SyncProgress,
) (*domain.SyncResult, error) {
	if err := s.corpus.Save(ctx, name, content); err != nil {
		return nil, fmt.Errorf("save %s: %w", name, err)
	}
	logger.Info("Stored %s (%d bytes) in %s", name, len(content), s.corpus.Root())

	result, err := s.sync.Sync(ctx, domain.SyncRequest{File: name, Interactive: true}, progress)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", name, err)
	}
	return result, nil
}

// Delete removes a file from the corpus.
func (s *CorpusService) Delete(ctx context.Context, name string) error {
	if err := s.corpus.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	logger.Info("Removed %s from the corpus; its indexed chunks are kept", name)
	return nil
}
