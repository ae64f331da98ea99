package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
	"github.com/custodia-labs/nephra/internal/preprocess/pdfsections"
)

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
	return "[Source: " + chunks[0].Source + "]\n" + chunks[0].Content
}

type mockIngestService struct {
	chunks    []domain.Chunk
	err       error
	added     []domain.Chunk
	stats     *domain.IndexStats
	resets    int
	lastName  string
	lastLabel string
	lastText  string
}

func (m *mockIngestService) IngestFile(_ context.Context, _ []byte, filename string) ([]domain.Chunk, error) {
	m.lastName = filename
	return m.chunks, m.err
}

func (m *mockIngestService) IngestText(_ context.Context, text, label string) ([]domain.Chunk, error) {
	m.lastText = text
	m.lastLabel = label
	return m.chunks, m.err
}

func (m *mockIngestService) AddToIndex(_ context.Context, chunks []domain.Chunk) error {
	m.added = append(m.added, chunks...)
	return m.err
}

func (m *mockIngestService) IndexStats(context.Context) (*domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockIngestService) ResetIndex(context.Context) error {
	m.resets++
	return m.err
}

type mockSyncOrchestrator struct {
	events  []domain.SyncProgress
	result  *domain.SyncResult
	err     error
	lastReq domain.SyncRequest
	runs    []domain.SyncRun
}

func (m *mockSyncOrchestrator) Sync(_ context.Context, req domain.SyncRequest, progress chan<- domain.SyncProgress) (*domain.SyncResult, error) {
	m.lastReq = req
	for _, e := range m.events {
		progress <- e
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockSyncOrchestrator) Status() domain.SyncStatus { return domain.SyncStatus{} }

func (m *mockSyncOrchestrator) History(context.Context, int) ([]domain.SyncRun, error) {
	return m.runs, m.err
}

type mockCorpusService struct {
	files    []driven.CorpusFile
	err      error
	uploaded map[string][]byte
	deleted  []string
	result   *domain.SyncResult
}

func (m *mockCorpusService) List(context.Context) ([]driven.CorpusFile, error) {
	return m.files, m.err
}

func (m *mockCorpusService) Upload(_ context.Context, name string, content []byte, _ chan<- domain.SyncProgress) (*domain.SyncResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.uploaded == nil {
		m.uploaded = make(map[string][]byte)
	}
	m.uploaded[name] = content
	if m.result == nil {
		return &domain.SyncResult{}, nil
	}
	return m.result, nil
}

func (m *mockCorpusService) Delete(_ context.Context, name string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, name)
	return nil
}

type mockSettingsService struct {
	settings    domain.AppSettings
	effective   map[string]string
	set         map[string]string
	setErr      error
	validateErr error
	embedErr    error
	llmErr      error
	indexErr    error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Effective() (map[string]string, error) { return m.effective, nil }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.embedErr }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.llmErr }

func (m *mockSettingsService) ValidateVectorIndexConfig() error { return m.indexErr }

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	search   *mockSearchService
	ingest   *mockIngestService
	sync     *mockSyncOrchestrator
	corpus   *mockCorpusService
	settings *mockSettingsService
}

// setupTestServices installs fresh mocks and resets flag variables.
// The returned function restores the previous state.
func setupTestServices() func() {
	_, cleanup := setupTestServicesWithMocks()
	return cleanup
}

func setupTestServicesWithMocks() (*testServices, func()) {
	old := Services{
		Search:         searchService,
		Ingest:         ingestService,
		Sync:           syncOrchestrator,
		Corpus:         corpusService,
		Settings:       settingsService,
		BackgroundSync: backgroundSync,
		Runtime:        runtimeCfg,
	}

	ts := &testServices{
		search: &mockSearchService{chunks: []domain.Chunk{
			{ID: "c1", Source: "ckd-basics.md", Content: "Chronic kidney disease is staged by eGFR.", Score: 0.82},
		}},
		ingest: &mockIngestService{},
		sync: &mockSyncOrchestrator{result: &domain.SyncResult{
			TotalChunks: 10, FileCount: 2, Batches: 3, Duration: 1500 * time.Millisecond,
		}},
		corpus:   &mockCorpusService{},
		settings: &mockSettingsService{settings: domain.DefaultAppSettings()},
	}
	Configure(Services{
		Search:   ts.search,
		Ingest:   ts.ingest,
		Sync:     ts.sync,
		Corpus:   ts.corpus,
		Settings: ts.settings,
	})
	resetFlags()

	return ts, func() {
		Configure(old)
		resetFlags()
		rootCmd.SetArgs(nil)
	}
}

func resetFlags() {
	searchLimit, searchJSON, searchSkipCache = 0, false, false
	ingestIndex, ingestLabel = false, "pasted text"
	syncBatchSize, syncHistorySize = 0, 10
	indexResetYes = false
	filesAddName = ""
	mcpAddr = ""
	serveAddr, serveWatch, serveJSONLogs, serveNoMCP = "", false, true, false
	preprocessOut = "."
	preprocessMinLength, preprocessMaxLength = pdfsections.DefaultMinLength, pdfsections.DefaultMaxLength
	verbose = false
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
