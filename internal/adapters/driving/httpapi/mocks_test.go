package httpapi

import (
	"context"
	"sync"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
)

type mockSearch struct {
	chunks   []domain.Chunk
	lastOpts domain.SearchOptions
}

func (m *mockSearch) Search(_ context.Context, _ string, opts domain.SearchOptions) []domain.Chunk {
	m.lastOpts = opts
	return m.chunks
}

func (m *mockSearch) FormatContext(chunks []domain.Chunk) string {
	if len(chunks) == 0 {
		return driving.NoContextSentinel
	}
	return "[Source: " + chunks[0].Source + "]\n" + chunks[0].Content
}

type mockIngest struct {
	stats    *domain.IndexStats
	err      error
	addErr   error
	added    int
	resets   int
	textSeen string
}

func (m *mockIngest) IngestFile(context.Context, []byte, string) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockIngest) IngestText(_ context.Context, text, label string) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.textSeen = text
	return []domain.Chunk{{ID: "t1", Source: label, Content: text}}, nil
}

func (m *mockIngest) AddToIndex(_ context.Context, chunks []domain.Chunk) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.added += len(chunks)
	return nil
}

func (m *mockIngest) IndexStats(context.Context) (*domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockIngest) ResetIndex(context.Context) error {
	m.resets++
	return m.err
}

// mockSync replays events on the progress channel, then returns result/err.
type mockSync struct {
	mu      sync.Mutex
	events  []domain.SyncProgress
	result  *domain.SyncResult
	err     error
	running bool
	lastReq domain.SyncRequest
	runs    []domain.SyncRun
}

func (m *mockSync) Sync(_ context.Context, req domain.SyncRequest, progress chan<- domain.SyncProgress) (*domain.SyncResult, error) {
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	for _, e := range m.events {
		progress <- e
	}
	return m.result, m.err
}

func (m *mockSync) Status() domain.SyncStatus {
	return domain.SyncStatus{Running: m.running}
}

func (m *mockSync) History(context.Context, int) ([]domain.SyncRun, error) {
	return m.runs, m.err
}

type mockCorpus struct {
	files     []driven.CorpusFile
	err       error
	uploaded  map[string][]byte
	deleted   []string
	uploadRes *domain.SyncResult
}

func (m *mockCorpus) List(context.Context) ([]driven.CorpusFile, error) {
	return m.files, m.err
}

func (m *mockCorpus) Upload(_ context.Context, name string, content []byte, _ chan<- domain.SyncProgress) (*domain.SyncResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.uploaded == nil {
		m.uploaded = make(map[string][]byte)
	}
	m.uploaded[name] = content
	return m.uploadRes, nil
}

func (m *mockCorpus) Delete(_ context.Context, name string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, name)
	return nil
}
