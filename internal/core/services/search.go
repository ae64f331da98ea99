package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
	"github.com/custodia-labs/nephra/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

const (
	defaultTopK          = 4
	defaultRefineTimeout = 3 * time.Second

	// contextDelimiter separates chunks in a formatted context.
	contextDelimiter = "\n\n---\n\n"
)

// SearchConfig tunes retrieval.
type SearchConfig struct {
	// TopK is the result count when the caller passes no limit.
	TopK int

	// PriorityTerms is the keyword boost vocabulary.
	PriorityTerms []string

	// Refine enables LLM query refinement when an LLM service is set.
	Refine bool

	// RefineTimeout bounds the refinement call.
	RefineTimeout time.Duration
}

// SearchService retrieves grounding chunks for a question.
type SearchService struct {
	embedder  driven.EmbeddingService
	backends  *FallbackStrategy
	cache     driven.RetrievalCache
	llm       driven.LLMService
	topK      int
	terms     []string
	refine    bool
	refineTTL time.Duration
}

// NewSearchService creates a new search service.
// The cache is optional (can be nil).
func NewSearchService(
	embedder driven.EmbeddingService,
	backends *FallbackStrategy,
	cache driven.RetrievalCache,
	cfg SearchConfig,
) *SearchService {
	s := &SearchService{
		embedder:  embedder,
		backends:  backends,
		cache:     cache,
		topK:      cfg.TopK,
		refine:    cfg.Refine,
		refineTTL: cfg.RefineTimeout,
	}
	if s.backends == nil {
		s.backends = NewFallbackStrategy()
	}
	if s.topK <= 0 {
		s.topK = defaultTopK
	}
	if s.refineTTL <= 0 {
		s.refineTTL = defaultRefineTimeout
	}
	for _, term := range cfg.PriorityTerms {
		if term = strings.ToLower(strings.TrimSpace(term)); term != "" {
			s.terms = append(s.terms, term)
		}
	}
	return s
}

// SetLLMService sets the language model used for query refinement.
func (s *SearchService) SetLLMService(llm driven.LLMService) {
	s.llm = llm
}

// Search returns the most relevant chunks for query. It never fails.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) []domain.Chunk {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	// 1. Normalise
	query = strings.TrimSpace(query)
	normalised := strings.ToLower(query)
	if normalised == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.Chunk{}
	}
	k := opts.Limit
	if k <= 0 {
		k = s.topK
	}
	key := cacheKey(normalised, k)

	// 2. Cache
	if s.cache != nil && !opts.SkipCache {
		if chunks, ok := s.cache.Get(ctx, key); ok {
			logger.Debug("Cache hit for %q: %d chunks", normalised, len(chunks))
			return chunks
		}
	}

	if s.embedder == nil {
		logger.Warn("Search unavailable: %v", domain.ErrEmbeddingUnavailable)
		return []domain.Chunk{}
	}

	// 3. Refine, then embed
	text := s.refineQuery(ctx, query)
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return []domain.Chunk{}
	}

	// 4. Backends in order
	chunks, outcomes := s.backends.Search(ctx, vector, k)
	if chunks == nil && !anySucceeded(outcomes) {
		logger.Warn("All retrieval backends failed (%d attempts); returning no results", len(outcomes))
		return []domain.Chunk{}
	}
	if chunks == nil {
		chunks = []domain.Chunk{}
	}

	// 5. Keyword boost
	if s.queryHasPriorityTerm(normalised) {
		chunks = s.boost(chunks)
	}

	// 6. Store
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, chunks); err != nil {
			logger.Warn("Cache store failed: %v", err)
		}
	}

	logger.Info("Search returned %d chunks", len(chunks))
	return chunks
}

// FormatContext renders chunks in order, each prefixed with its source.
func (s *SearchService) FormatContext(chunks []domain.Chunk) string {
	if len(chunks) == 0 {
		return driving.NoContextSentinel
	}

	parts := make([]string, len(chunks))
	for i := range chunks {
		parts[i] = fmt.Sprintf("[Source: %s]\n%s", chunks[i].Source, chunks[i].Content)
	}
	return strings.Join(parts, contextDelimiter)
}

// refineQuery asks the LLM to fix misspelled terms within the timeout.
// Any failure falls back to the original query.
func (s *SearchService) refineQuery(ctx context.Context, query string) string {
	if !s.refine || s.llm == nil {
		return query
	}

	rctx, cancel := context.WithTimeout(ctx, s.refineTTL)
	defer cancel()

	refined, err := s.llm.RewriteQuery(rctx, query)
	if err != nil {
		logger.Warn("Query refinement failed: %v (using original query)", err)
		return query
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		return query
	}
	if refined != query {
		logger.Info("Refined query: %q -> %q", query, refined)
	}
	return refined
}

func (s *SearchService) queryHasPriorityTerm(normalised string) bool {
	for _, term := range s.terms {
		if strings.Contains(normalised, term) {
			return true
		}
	}
	return false
}

// boost moves chunks containing a priority term ahead of the rest,
// keeping relative order inside both groups.
func (s *SearchService) boost(chunks []domain.Chunk) []domain.Chunk {
	boosted := make([]domain.Chunk, 0, len(chunks))
	var rest []domain.Chunk
	for i := range chunks {
		if s.containsPriorityTerm(&chunks[i]) {
			boosted = append(boosted, chunks[i])
		} else {
			rest = append(rest, chunks[i])
		}
	}
	return append(boosted, rest...)
}

func (s *SearchService) containsPriorityTerm(c *domain.Chunk) bool {
	for _, term := range s.terms {
		if c.Contains(term) {
			return true
		}
	}
	return false
}

// cacheKey scopes a cached result set to its k.
func cacheKey(normalised string, k int) string {
	return fmt.Sprintf("%s|k=%d", normalised, k)
}

func anySucceeded(outcomes []domain.AttemptOutcome) bool {
	for _, o := range outcomes {
		if o.Succeeded() {
			return true
		}
	}
	return false
}
