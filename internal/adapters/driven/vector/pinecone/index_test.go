package pinecone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nephra/internal/adapters/driven/vector"
	"github.com/custodia-labs/nephra/internal/core/domain"
)

// fakePinecone serves both planes from one httptest server.
type fakePinecone struct {
	t   *testing.T
	srv *httptest.Server

	mu         sync.Mutex
	exists     bool
	dimension  int
	notReady   int // describe calls that report not ready
	lingering  int // describe calls that still see a deleted index
	vectors    map[string]Vector
	upserts    int
	creates    int
	deletes    int
	describes  int
	queryScore []float64
	failQuery  bool
}

func newFake(t *testing.T) *fakePinecone {
	t.Helper()
	f := &fakePinecone{t: t, vectors: map[string]Vector{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePinecone) handle(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, "test-key", r.Header.Get("Api-Key"))
	assert.NotEmpty(f.t, r.Header.Get("X-Pinecone-Api-Version"))

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/indexes/kidney":
		f.describes++
		if f.lingering > 0 {
			f.lingering--
			f.writeDescription(w, false)
			return
		}
		if !f.exists {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		ready := f.notReady == 0
		if !ready {
			f.notReady--
		}
		f.writeDescription(w, ready)

	case r.Method == http.MethodPost && r.URL.Path == "/indexes":
		f.creates++
		var req CreateIndexRequest
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(f.t, "cosine", req.Metric)
		assert.Equal(f.t, "aws", req.Spec.Serverless.Cloud)
		assert.Equal(f.t, "us-east-1", req.Spec.Serverless.Region)
		f.exists = true
		f.dimension = req.Dimension
		f.vectors = map[string]Vector{}
		w.WriteHeader(http.StatusCreated)
		f.writeDescription(w, false)

	case r.Method == http.MethodDelete && r.URL.Path == "/indexes/kidney":
		f.deletes++
		if !f.exists {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		f.exists = false
		f.vectors = map[string]Vector{}
		w.WriteHeader(http.StatusAccepted)

	case r.Method == http.MethodPost && r.URL.Path == "/vectors/upsert":
		f.upserts++
		var req UpsertRequest
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(f.t, len(req.Vectors), maxUpsertVectors)
		for _, v := range req.Vectors {
			f.vectors[v.ID] = v
		}
		_ = json.NewEncoder(w).Encode(UpsertResponse{UpsertedCount: int64(len(req.Vectors))})

	case r.Method == http.MethodPost && r.URL.Path == "/query":
		if f.failQuery {
			http.Error(w, "boom", http.StatusServiceUnavailable)
			return
		}
		var req QueryRequest
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(f.t, req.IncludeMetadata)
		ids := make([]string, 0, len(f.vectors))
		for id := range f.vectors {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		var resp QueryResponse
		for i, id := range ids {
			if i >= req.TopK || i >= len(f.queryScore) {
				break
			}
			resp.Matches = append(resp.Matches, QueryMatch{ID: id, Score: f.queryScore[i], Metadata: f.vectors[id].Metadata})
		}
		_ = json.NewEncoder(w).Encode(resp)

	case r.Method == http.MethodPost && r.URL.Path == "/describe_index_stats":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dimension":        f.dimension,
			"totalVectorCount": len(f.vectors),
			"namespaces":       map[string]any{"": map[string]any{"vectorCount": len(f.vectors)}},
		})

	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusTeapot)
	}
}

func (f *fakePinecone) writeDescription(w http.ResponseWriter, ready bool) {
	desc := map[string]any{
		"name":      "kidney",
		"host":      f.srv.URL,
		"dimension": f.dimension,
		"metric":    "cosine",
		"status":    map[string]any{"ready": ready, "state": map[bool]string{true: "Ready", false: "Initializing"}[ready]},
	}
	_ = json.NewEncoder(w).Encode(desc)
}

func newTestIndex(t *testing.T, f *fakePinecone, dim int) *Index {
	t.Helper()
	client, err := NewClient(ClientConfig{APIKey: "test-key", BaseURL: f.srv.URL})
	require.NoError(t, err)
	ix, err := NewIndex(client, Config{Index: "kidney", Dimension: dim, MinScore: 0.3, PollAttempts: 5},
		WithSleep(func(context.Context, time.Duration) error { return nil }))
	require.NoError(t, err)
	return ix
}

func chunk(id string, vec ...float32) domain.Chunk {
	return domain.Chunk{
		ID:          id,
		DocumentID:  "doc-1",
		Content:     "content of " + id,
		Source:      "ckd.txt",
		ContentType: domain.ContentPlainText,
		Position:    1,
		Embedding:   vec,
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	var opErr *vector.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, vector.OperationErrorValidation, opErr.Code)
}

func TestNewIndex_Validation(t *testing.T) {
	client, err := NewClient(ClientConfig{APIKey: "k"})
	require.NoError(t, err)

	_, err = NewIndex(client, Config{Dimension: 3})
	assert.Error(t, err)
	_, err = NewIndex(client, Config{Index: "kidney"})
	assert.Error(t, err)
	_, err = NewIndex(nil, Config{Index: "kidney", Dimension: 3})
	assert.Error(t, err)
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "https://idx.svc.pinecone.io/query", dataURL("idx.svc.pinecone.io", "/query"))
	assert.Equal(t, "http://127.0.0.1:9/query", dataURL("http://127.0.0.1:9/", "/query"))
}

func TestEnsureReady_CreatesMissingIndex(t *testing.T) {
	f := newFake(t)
	f.notReady = 2
	ix := newTestIndex(t, f, 3)

	require.NoError(t, ix.EnsureReady(context.Background()))
	assert.Equal(t, 1, f.creates)
	assert.Equal(t, 3, f.dimension)

	// Memoized: no further describe calls.
	calls := f.describes
	require.NoError(t, ix.EnsureReady(context.Background()))
	assert.Equal(t, calls, f.describes)
}

func TestEnsureReady_DimensionMismatchIsMemoized(t *testing.T) {
	f := newFake(t)
	f.exists = true
	f.dimension = 1536
	ix := newTestIndex(t, f, 768)

	err := ix.EnsureReady(context.Background())
	var mismatch *domain.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1536, mismatch.IndexDimension)
	assert.Equal(t, 768, mismatch.ModelDimension)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)

	calls := f.describes
	require.Error(t, ix.EnsureReady(context.Background()))
	assert.Equal(t, calls, f.describes)
	assert.Zero(t, f.creates)
}

func TestEnsureReady_TransientErrorNotMemoized(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name": "kidney", "host": "h", "dimension": 3,
			"status": map[string]any{"ready": true},
		})
	}))
	defer srv.Close()

	client, err := NewClient(ClientConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	ix, err := NewIndex(client, Config{Index: "kidney", Dimension: 3})
	require.NoError(t, err)

	require.Error(t, ix.EnsureReady(context.Background()))
	require.NoError(t, ix.EnsureReady(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestAddAndSearch(t *testing.T) {
	f := newFake(t)
	f.queryScore = []float64{0.9, 0.5, 0.1}
	ix := newTestIndex(t, f, 2)
	ctx := context.Background()

	require.NoError(t, ix.Add(ctx, []domain.Chunk{
		chunk("a", 1, 0), chunk("b", 0, 1), chunk("c", 1, 1),
	}))

	got, err := ix.Search(ctx, []float32{1, 0}, 4)
	require.NoError(t, err)
	require.Len(t, got, 2, "score 0.1 is below the minimum")
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "content of a", got[0].Content)
	assert.Equal(t, "ckd.txt", got[0].Source)
	assert.Equal(t, domain.ContentPlainText, got[0].ContentType)
	assert.Equal(t, 1, got[0].Position)
	assert.InDelta(t, 0.9, got[0].Score, 1e-9)
}

func TestAdd_SplitsLargeBatches(t *testing.T) {
	f := newFake(t)
	ix := newTestIndex(t, f, 1)

	chunks := make([]domain.Chunk, 0, 250)
	for i := range 250 {
		chunks = append(chunks, chunk(fmt.Sprintf("c%03d", i), float32(i)))
	}
	require.NoError(t, ix.Add(context.Background(), chunks))
	assert.Equal(t, 3, f.upserts)
	assert.Len(t, f.vectors, 250)
}

func TestAdd_RejectsWrongDimension(t *testing.T) {
	f := newFake(t)
	ix := newTestIndex(t, f, 3)

	err := ix.Add(context.Background(), []domain.Chunk{chunk("a", 1, 2)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, f.upserts)
}

func TestAdd_EmptyIsNoop(t *testing.T) {
	f := newFake(t)
	ix := newTestIndex(t, f, 3)
	require.NoError(t, ix.Add(context.Background(), nil))
	assert.Zero(t, f.describes)
}

func TestSearch_BackendFailure(t *testing.T) {
	f := newFake(t)
	f.failQuery = true
	ix := newTestIndex(t, f, 2)

	_, err := ix.Search(context.Background(), []float32{1, 0}, 4)
	var unavailable *domain.BackendUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "pinecone", unavailable.Backend)
	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestStats(t *testing.T) {
	f := newFake(t)
	ix := newTestIndex(t, f, 2)
	ctx := context.Background()
	require.NoError(t, ix.Add(ctx, []domain.Chunk{chunk("a", 1, 0), chunk("b", 0, 1)}))

	stats, err := ix.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kidney", stats.IndexIdentifier)
	assert.Equal(t, "pinecone", stats.Provider)
	assert.Equal(t, int64(2), stats.TotalRecords)
	assert.Equal(t, 2, stats.Dimension)
	assert.Equal(t, int64(2), stats.Namespaces[""])
}

func TestReset_RecreatesAtModelDimension(t *testing.T) {
	f := newFake(t)
	f.exists = true
	f.dimension = 1536
	f.vectors["old"] = Vector{ID: "old"}
	ix := newTestIndex(t, f, 768)
	ctx := context.Background()

	require.Error(t, ix.EnsureReady(ctx))

	f.mu.Lock()
	f.lingering = 1
	f.mu.Unlock()

	require.NoError(t, ix.Reset(ctx))
	assert.Equal(t, 1, f.deletes)
	assert.Equal(t, 1, f.creates)
	assert.Equal(t, 768, f.dimension)
	assert.Empty(t, f.vectors)
	require.NoError(t, ix.EnsureReady(ctx))
}

func TestReset_MissingIndex(t *testing.T) {
	f := newFake(t)
	ix := newTestIndex(t, f, 4)
	require.NoError(t, ix.Reset(context.Background()))
	assert.Equal(t, 1, f.creates)
}

func TestReset_SleepCancelled(t *testing.T) {
	f := newFake(t)
	f.exists = true
	f.dimension = 4
	f.lingering = 100

	client, err := NewClient(ClientConfig{APIKey: "test-key", BaseURL: f.srv.URL})
	require.NoError(t, err)
	stop := errors.New("stop")
	ix, err := NewIndex(client, Config{Index: "kidney", Dimension: 4},
		WithSleep(func(context.Context, time.Duration) error { return stop }))
	require.NoError(t, err)

	err = ix.Reset(context.Background())
	assert.ErrorIs(t, err, stop)
	assert.Zero(t, f.creates)
}
