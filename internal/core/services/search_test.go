package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memcache "github.com/custodia-labs/nephra/internal/adapters/driven/cache/memory"
	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
)

func chunk(id, source, content string) domain.Chunk {
	return domain.Chunk{ID: id, Source: source, Content: content}
}

func chunkIDs(chunks []domain.Chunk) []string {
	ids := make([]string, len(chunks))
	for i := range chunks {
		ids[i] = chunks[i].ID
	}
	return ids
}

func TestNewSearchService_Defaults(t *testing.T) {
	s := NewSearchService(newWordEmbedder(), nil, nil, SearchConfig{PriorityTerms: []string{" Dialysis ", ""}})

	assert.Equal(t, defaultTopK, s.topK)
	assert.Equal(t, defaultRefineTimeout, s.refineTTL)
	assert.Equal(t, []string{"dialysis"}, s.terms)
	assert.NotNil(t, s.backends)
}

func TestSearchService_EmptyQuery(t *testing.T) {
	backend := &mockBackend{name: "durable", chunks: []domain.Chunk{chunk("a", "s", "x")}}
	s := NewSearchService(newWordEmbedder(), NewFallbackStrategy(backend), nil, SearchConfig{})

	got := s.Search(context.Background(), "   ", domain.SearchOptions{})

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, backend.callCount())
}

func TestSearchService_LimitDefaultsToTopK(t *testing.T) {
	backend := &mockBackend{name: "durable", chunks: []domain.Chunk{
		chunk("a", "s", "1"), chunk("b", "s", "2"), chunk("c", "s", "3"),
	}}
	s := NewSearchService(newWordEmbedder(), NewFallbackStrategy(backend), nil, SearchConfig{TopK: 2})

	assert.Len(t, s.Search(context.Background(), "q", domain.SearchOptions{}), 2)
	assert.Len(t, s.Search(context.Background(), "q", domain.SearchOptions{Limit: 3}), 3)
}

func TestSearchService_CacheIdempotence(t *testing.T) {
	backend := &mockBackend{name: "durable", chunks: []domain.Chunk{
		chunk("a", "s", "creatinine levels"), chunk("b", "s", "potassium limits"),
	}}
	cache := memcache.New(time.Hour)
	s := NewSearchService(newWordEmbedder(), NewFallbackStrategy(backend), cache, SearchConfig{})

	first := s.Search(context.Background(), "Potassium?", domain.SearchOptions{})
	second := s.Search(context.Background(), "  potassium?  ", domain.SearchOptions{})

	assert.Equal(t, first, second)
	assert.Equal(t, 1, backend.callCount(), "second call must be served from the cache")
}

func TestSearchService_CacheExpiry(t *testing.T) {
	clock := newFakeClock()
	backend := &mockBackend{name: "durable", chunks: []domain.Chunk{chunk("a", "s", "x")}}
	cache := memcache.New(time.Hour, memcache.WithClock(clock.Now))
	s := NewSearchService(newWordEmbedder(), NewFallbackStrategy(backend), cache, SearchConfig{})

	s.Search(context.Background(), "q", domain.SearchOptions{})
	clock.Advance(59 * time.Minute)
	s.Search(context.Background(), "q", domain.SearchOptions{})
	assert.Equal(t, 1, backend.callCount())

	clock.Advance(2 * time.Minute)
	s.Search(context.Background(), "q", domain.SearchOptions{})
	assert.Equal(t, 2, backend.callCount(), "expired entry must trigger a backend call")
}

func TestSearchService_SkipCache(t *testing.T) {
	backend := &mockBackend{name: "durable", chunks: []domain.Chunk{chunk("a", "s", "x")}}
	s := NewSearchService(newWordEmbedder(), NewFallbackStrategy(backend), memcache.New(time.Hour), SearchConfig{})

	s.Search(context.Background(), "q", domain.SearchOptions{})
	s.Search(context.Background(), "q", domain.SearchOptions{SkipCache: true})

	assert.Equal(t, 2, backend.callCount())
}

func TestSearchService_CacheKeyedByLimit(t *testing.T) {
	backend := &mockBackend{name: "durable", chunks: []domain.Chunk{
		chunk("a", "s", "1"), chunk("b", "s", "2"), chunk("c", "s", "3"),
	}}
	s := NewSearchService(newWordEmbedder(), NewFallbackStrategy(backend), memcache.New(time.Hour), SearchConfig{})

	assert.Len(t, s.Search(context.Background(), "q", domain.SearchOptions{Limit: 1}), 1)
	assert.Len(t, s.Search(context.Background(), "q", domain.SearchOptions{Limit: 3}), 3)
	assert.Equal(t, 2, backend.callCount())
}

func TestSearchService_KeywordBoost(t *testing.T) {
	// B is ranked first but lacks the term; A (rank 3) contains it.
	results := []domain.Chunk{
		chunk("B", "s", "Kidneys regulate fluid balance."),
		chunk("C", "s", "Blood pressure control matters."),
		chunk("A", "s", "Dialysis removes waste when kidneys fail."),
		chunk("D", "s", "Hemodialysis sessions last four hours."),
		chunk("E", "s", "Exercise helps overall health."),
	}
	backend := &mockBackend{name: "durable", chunks: results}
	s := NewSearchService(newWordEmbedder(), NewFallbackStrategy(backend), nil, SearchConfig{
		TopK:          5,
		PriorityTerms: []string{"dialysis"},
	})

	got := s.Search(context.Background(), "How often is dialysis needed?", domain.SearchOptions{})

	assert.Equal(t, []string{"A", "D", "B", "C", "E"}, chunkIDs(got))
}

func TestSearchService_NoBoostWithoutPriorityTermInQuery(t *testing.T) {
	results := []domain.Chunk{
		chunk("B", "s", "Kidneys regulate fluid balance."),
		chunk("A", "s", "Dialysis removes waste."),
	}
	backend := &mockBackend{name: "durable", chunks: results}
	s := NewSearchService(newWordEmbedder(), NewFallbackStrategy(backend), nil, SearchConfig{
		PriorityTerms: []string{"dialysis"},
	})

	got := s.Search(context.Background(), "what do kidneys do", domain.SearchOptions{})

	assert.Equal(t, []string{"B", "A"}, chunkIDs(got))
}

func TestSearchService_FallbackOnBackendFailure(t *testing.T) {
	durable := &mockBackend{name: "pinecone", err: &domain.BackendUnavailableError{Backend: "pinecone", Cause: errors.New("timeout")}}
	ephemeral := &mockBackend{name: "ephemeral", chunks: []domain.Chunk{chunk("e1", "guide.md", "eat less salt")}}
	cache := memcache.New(time.Hour)
	s := NewSearchService(newWordEmbedder(), NewFallbackStrategy(durable, ephemeral), cache, SearchConfig{})

	got := s.Search(context.Background(), "salt", domain.SearchOptions{})

	assert.Equal(t, []string{"e1"}, chunkIDs(got))
	assert.Equal(t, 1, durable.callCount())
	assert.Equal(t, 1, ephemeral.callCount())
}

func TestSearchService_AllBackendsFail(t *testing.T) {
	durable := &mockBackend{name: "pinecone", err: errors.New("down")}
	ephemeral := &mockBackend{name: "ephemeral", err: errors.New("no embedder")}
	cache := memcache.New(time.Hour)
	s := NewSearchService(newWordEmbedder(), NewFallbackStrategy(durable, ephemeral), cache, SearchConfig{})

	got := s.Search(context.Background(), "salt", domain.SearchOptions{})

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, cache.Len(), "failures must not be cached")
}

func TestSearchService_EmbeddingFailure(t *testing.T) {
	embedder := newWordEmbedder()
	embedder.embedErr = errors.New("quota exceeded")
	backend := &mockBackend{name: "durable", chunks: []domain.Chunk{chunk("a", "s", "x")}}
	s := NewSearchService(embedder, NewFallbackStrategy(backend), nil, SearchConfig{})

	got := s.Search(context.Background(), "q", domain.SearchOptions{})

	assert.Empty(t, got)
	assert.Zero(t, backend.callCount())
}

func TestSearchService_NilEmbedder(t *testing.T) {
	backend := &mockBackend{name: "durable"}
	s := NewSearchService(nil, NewFallbackStrategy(backend), nil, SearchConfig{})

	assert.Empty(t, s.Search(context.Background(), "q", domain.SearchOptions{}))
}

func TestSearchService_Refinement(t *testing.T) {
	t.Run("uses refined query", func(t *testing.T) {
		embedder := newWordEmbedder()
		llm := &mockLLM{rewrite: "potassium"}
		s := NewSearchService(embedder, NewFallbackStrategy(&mockBackend{name: "d"}), nil, SearchConfig{Refine: true})
		s.SetLLMService(llm)

		s.Search(context.Background(), "potasium", domain.SearchOptions{})

		assert.Equal(t, 1, llm.calls)
		_, known := embedder.vocab["potassium"]
		assert.True(t, known, "refined text must be embedded")
	})

	t.Run("failure falls back to original", func(t *testing.T) {
		embedder := newWordEmbedder()
		llm := &mockLLM{err: errors.New("rate limited")}
		s := NewSearchService(embedder, NewFallbackStrategy(&mockBackend{name: "d"}), nil, SearchConfig{Refine: true})
		s.SetLLMService(llm)

		s.Search(context.Background(), "potasium", domain.SearchOptions{})

		_, known := embedder.vocab["potasium"]
		assert.True(t, known)
	})

	t.Run("timeout falls back to original", func(t *testing.T) {
		embedder := newWordEmbedder()
		llm := &mockLLM{rewrite: "potassium", delay: time.Second}
		s := NewSearchService(embedder, NewFallbackStrategy(&mockBackend{name: "d"}), nil, SearchConfig{
			Refine:        true,
			RefineTimeout: 10 * time.Millisecond,
		})
		s.SetLLMService(llm)

		start := time.Now()
		s.Search(context.Background(), "potasium", domain.SearchOptions{})

		assert.Less(t, time.Since(start), 500*time.Millisecond)
		_, refined := embedder.vocab["potassium"]
		assert.False(t, refined)
	})

	t.Run("disabled skips the LLM", func(t *testing.T) {
		llm := &mockLLM{rewrite: "potassium"}
		s := NewSearchService(newWordEmbedder(), NewFallbackStrategy(&mockBackend{name: "d"}), nil, SearchConfig{})
		s.SetLLMService(llm)

		s.Search(context.Background(), "potasium", domain.SearchOptions{})

		assert.Zero(t, llm.calls)
	})
}

func TestSearchService_FormatContext(t *testing.T) {
	s := NewSearchService(nil, nil, nil, SearchConfig{})

	t.Run("empty yields sentinel", func(t *testing.T) {
		assert.Equal(t, driving.NoContextSentinel, s.FormatContext(nil))
		assert.Equal(t, driving.NoContextSentinel, s.FormatContext([]domain.Chunk{}))
	})

	t.Run("renders sources in order", func(t *testing.T) {
		got := s.FormatContext([]domain.Chunk{
			chunk("1", "diet.md", "Limit potassium."),
			chunk("2", "ckd.pdf", "CKD has five stages."),
		})

		want := "[Source: diet.md]\nLimit potassium.\n\n---\n\n[Source: ckd.pdf]\nCKD has five stages."
		assert.Equal(t, want, got)
	})

	t.Run("deterministic", func(t *testing.T) {
		chunks := []domain.Chunk{chunk("1", "a", "x"), chunk("2", "b", "y")}
		assert.Equal(t, s.FormatContext(chunks), s.FormatContext(chunks))
		assert.Equal(t, 1, strings.Count(s.FormatContext(chunks), contextDelimiter))
	})
}

func TestFallbackStrategy(t *testing.T) {
	var nilBackend driven.RetrievalBackend

	t.Run("skips nil backends", func(t *testing.T) {
		f := NewFallbackStrategy(nilBackend, &mockBackend{name: "ephemeral"})
		assert.Equal(t, []string{"ephemeral"}, f.Backends())
	})

	t.Run("stops at first success", func(t *testing.T) {
		first := &mockBackend{name: "one", chunks: []domain.Chunk{chunk("a", "s", "x")}}
		second := &mockBackend{name: "two"}
		f := NewFallbackStrategy(first, second)

		chunks, outcomes := f.Search(context.Background(), []float32{1}, 4)

		require.Len(t, outcomes, 1)
		assert.True(t, outcomes[0].Succeeded())
		assert.Equal(t, "one", outcomes[0].Backend)
		assert.Equal(t, 1, outcomes[0].Chunks)
		assert.Len(t, chunks, 1)
		assert.Zero(t, second.callCount())
	})

	t.Run("empty success does not fall through", func(t *testing.T) {
		first := &mockBackend{name: "one"}
		second := &mockBackend{name: "two", chunks: []domain.Chunk{chunk("a", "s", "x")}}
		f := NewFallbackStrategy(first, second)

		chunks, outcomes := f.Search(context.Background(), []float32{1}, 4)

		assert.Empty(t, chunks)
		assert.Len(t, outcomes, 1)
		assert.Zero(t, second.callCount())
	})

	t.Run("records every failure", func(t *testing.T) {
		errA, errB := errors.New("a down"), errors.New("b down")
		f := NewFallbackStrategy(&mockBackend{name: "a", err: errA}, &mockBackend{name: "b", err: errB})

		chunks, outcomes := f.Search(context.Background(), []float32{1}, 4)

		assert.Nil(t, chunks)
		require.Len(t, outcomes, 2)
		assert.ErrorIs(t, outcomes[0].Err, errA)
		assert.ErrorIs(t, outcomes[1].Err, errB)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		backend := &mockBackend{name: "a"}

		_, outcomes := NewFallbackStrategy(backend).Search(ctx, []float32{1}, 4)

		require.Len(t, outcomes, 1)
		assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
		assert.Zero(t, backend.callCount())
	})
}
