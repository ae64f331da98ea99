package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// --- Mock implementations ---

// wordEmbedder implements driven.EmbeddingService with a bag-of-words
// model: every distinct word gets its own axis, so cosine similarity is
// the normalised count of shared words.
type wordEmbedder struct {
	dims     int
	embedErr error

	mu         sync.Mutex
	vocab      map[string]int
	embedCalls int
	batchCalls int
}

func newWordEmbedder() *wordEmbedder {
	return &wordEmbedder{dims: 512, vocab: make(map[string]int)}
}

func (m *wordEmbedder) vector(text string) []float32 {
	v := make([]float32, m.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		if len(w) > 3 {
			w = strings.TrimSuffix(w, "s")
		}
		idx, ok := m.vocab[w]
		if !ok {
			idx = len(m.vocab) % m.dims
			m.vocab[w] = idx
		}
		v[idx]++
	}
	return v
}

func (m *wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *wordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *wordEmbedder) Dimensions() int   { return m.dims }
func (m *wordEmbedder) ModelName() string { return "bag-of-words" }

func (m *wordEmbedder) Ping(_ context.Context) error {
	return nil
}

func (m *wordEmbedder) Close() error {
	return nil
}

// mockBackend implements driven.RetrievalBackend for testing.
type mockBackend struct {
	name   string
	chunks []domain.Chunk
	err    error

	mu    sync.Mutex
	calls int
}

func (m *mockBackend) Name() string {
	return m.name
}

func (m *mockBackend) Search(_ context.Context, _ []float32, k int) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if k < len(m.chunks) {
		return append([]domain.Chunk(nil), m.chunks[:k]...), nil
	}
	return append([]domain.Chunk(nil), m.chunks...), nil
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockIndex implements driven.ResettableIndex for testing.
// addErrs is consumed one error per Add call; a nil entry succeeds.
type mockIndex struct {
	mockBackend
	readyErr error
	addErrs  []error
	stats    *domain.IndexStats
	statsErr error
	resetErr error

	added  [][]domain.Chunk
	resets int
}

func (m *mockIndex) EnsureReady(_ context.Context) error {
	return m.readyErr
}

func (m *mockIndex) Add(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.addErrs) > 0 {
		err := m.addErrs[0]
		m.addErrs = m.addErrs[1:]
		if err != nil {
			return err
		}
	}
	m.added = append(m.added, chunks)
	return nil
}

func (m *mockIndex) Stats(_ context.Context) (*domain.IndexStats, error) {
	return m.stats, m.statsErr
}

func (m *mockIndex) Reset(_ context.Context) error {
	m.resets++
	return m.resetErr
}

func (m *mockIndex) Close() error {
	return nil
}

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	rewrite string
	err     error
	delay   time.Duration
	calls   int
}

func (m *mockLLM) RewriteQuery(ctx context.Context, query string) (string, error) {
	m.calls++
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	if m.rewrite == "" {
		return query, nil
	}
	return m.rewrite, nil
}

func (m *mockLLM) ModelName() string { return "mock-llm" }

func (m *mockLLM) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLM) Close() error {
	return nil
}

// mockIngest implements driving.IngestService for sync testing.
// Files map to a chunk count; addErrs is consumed one per AddToIndex call.
type mockIngest struct {
	fileChunks map[string]int
	fileErrs   map[string]error
	addErrs    []error
	// onAdd runs on every AddToIndex call, e.g. to advance a fake clock.
	onAdd func()

	mu      sync.Mutex
	batches [][]domain.Chunk
	calls   int
}

func (m *mockIngest) IngestFile(_ context.Context, _ []byte, filename string) ([]domain.Chunk, error) {
	if err := m.fileErrs[filename]; err != nil {
		return nil, err
	}
	n := m.fileChunks[filename]
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:       fmt.Sprintf("%s-%d", filename, i),
			Content:  fmt.Sprintf("chunk %d of %s", i, filename),
			Source:   filename,
			Position: i,
		}
	}
	return chunks, nil
}

func (m *mockIngest) IngestText(_ context.Context, _, _ string) ([]domain.Chunk, error) {
	return nil, nil
}

func (m *mockIngest) AddToIndex(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.onAdd != nil {
		m.onAdd()
	}
	if len(m.addErrs) > 0 {
		err := m.addErrs[0]
		m.addErrs = m.addErrs[1:]
		if err != nil {
			return err
		}
	}
	m.batches = append(m.batches, chunks)
	return nil
}

func (m *mockIngest) IndexStats(_ context.Context) (*domain.IndexStats, error) {
	return nil, nil
}

func (m *mockIngest) ResetIndex(_ context.Context) error {
	return nil
}

// mockCorpus implements driven.CorpusStore over an in-memory file map.
type mockCorpus struct {
	mu      sync.Mutex
	files   map[string][]byte
	order   []string
	listErr error
	saveErr error
	reads   int
}

func newMockCorpus(names ...string) *mockCorpus {
	c := &mockCorpus{files: make(map[string][]byte)}
	for _, n := range names {
		c.files[n] = []byte("content of " + n)
		c.order = append(c.order, n)
	}
	return c
}

func (m *mockCorpus) Root() string { return "/corpus" }

func (m *mockCorpus) List(_ context.Context) ([]driven.CorpusFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	files := make([]driven.CorpusFile, 0, len(m.order))
	for _, n := range m.order {
		files = append(files, driven.CorpusFile{Name: n, Size: int64(len(m.files[n]))})
	}
	return files, nil
}

func (m *mockCorpus) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	content, ok := m.files[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return content, nil
}

func (m *mockCorpus) Save(_ context.Context, name string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.files[name]; !ok {
		m.order = append(m.order, name)
	}
	m.files[name] = content
	return nil
}

func (m *mockCorpus) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; !ok {
		return domain.ErrNotFound
	}
	delete(m.files, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// fakeClock is a manual clock whose sleep advances time and records the delay.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// cosine is used by tests to reason about wordEmbedder scores.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
