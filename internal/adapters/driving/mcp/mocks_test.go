package mcp

import (
	"context"
	"strings"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	chunks    []domain.Chunk
	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) []domain.Chunk {
	m.lastQuery = query
	m.lastOpts = opts
	return m.chunks
}

func (m *mockSearchService) FormatContext(chunks []domain.Chunk) string {
	if len(chunks) == 0 {
		return driving.NoContextSentinel
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = "[Source: " + c.Source + "]\n" + c.Content
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	stats *domain.IndexStats
	err   error
}

func (m *mockIngestService) IngestFile(context.Context, []byte, string) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockIngestService) IngestText(context.Context, string, string) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockIngestService) AddToIndex(context.Context, []domain.Chunk) error {
	return m.err
}

func (m *mockIngestService) IndexStats(context.Context) (*domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockIngestService) ResetIndex(context.Context) error {
	return m.err
}

// mockCorpusService is a mock implementation of driving.CorpusService.
type mockCorpusService struct {
	files []driven.CorpusFile
	err   error
}

func (m *mockCorpusService) List(context.Context) ([]driven.CorpusFile, error) {
	return m.files, m.err
}

func (m *mockCorpusService) Upload(
	context.Context, string, []byte, chan<- domain.SyncProgress,
) (*domain.SyncResult, error) {
	return nil, m.err
}

func (m *mockCorpusService) Delete(context.Context, string) error {
	return m.err
}

// mockSyncOrchestrator is a mock implementation of driving.SyncOrchestrator.
type mockSyncOrchestrator struct {
	runs      []domain.SyncRun
	err       error
	lastLimit int
}

func (m *mockSyncOrchestrator) Sync(
	context.Context, domain.SyncRequest, chan<- domain.SyncProgress,
) (*domain.SyncResult, error) {
	return nil, m.err
}

func (m *mockSyncOrchestrator) Status() domain.SyncStatus {
	return domain.SyncStatus{}
}

func (m *mockSyncOrchestrator) History(_ context.Context, limit int) ([]domain.SyncRun, error) {
	m.lastLimit = limit
	return m.runs, m.err
}
