package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
	"github.com/custodia-labs/nephra/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyCorpusDir = "corpus.dir"

	keyChunkMode      = "chunking.mode"
	keyChunkSize      = "chunking.chunk_size"
	keyChunkOverlap   = "chunking.overlap"
	keyChunkMinLength = "chunking.min_length"

	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"
	keyEmbedRetries    = "embedding.max_retries"
	keyEmbedRate       = "embedding.requests_per_second"

	keyLLMProvider = "llm.provider"
	keyLLMModel    = "llm.model"
	keyLLMBaseURL  = "llm.base_url"
	keyLLMAPIKey   = "llm.api_key"

	keyVectorProvider     = "vector_index.provider"
	keyPineconeAPIKey     = "vector_index.pinecone.api_key"
	keyPineconeIndex      = "vector_index.pinecone.index"
	keyPineconeNamespace  = "vector_index.pinecone.namespace"
	keyPineconeCloud      = "vector_index.pinecone.cloud"
	keyPineconeRegion     = "vector_index.pinecone.region"
	keyPineconeAPIVersion = "vector_index.pinecone.api_version"
	keyPineconeBaseURL    = "vector_index.pinecone.base_url"
	keyQdrantURL          = "vector_index.qdrant.url"
	keyQdrantAPIKey       = "vector_index.qdrant.api_key"
	keyQdrantCollection   = "vector_index.qdrant.collection"

	keyTopK          = "retrieval.top_k"
	keyMinScore      = "retrieval.min_score"
	keyCacheTTL      = "retrieval.cache_ttl"
	keyPriorityTerms = "retrieval.priority_terms"
	keyRefine        = "retrieval.refine"
	keyRefineTimeout = "retrieval.refine_timeout"

	keyCacheBackend = "cache.backend"
	keyRedisAddr    = "cache.redis.addr"

	keySyncBatchSize   = "sync.batch_size"
	keySyncInteractive = "sync.interactive_batch_size"
	keySyncMaxRetries  = "sync.max_retries"
	keySyncBackoff     = "sync.backoff_base"
	keySyncBatchDelay  = "sync.batch_delay"
	keySyncDedupe      = "sync.dedupe"
	keySyncInterval    = "sync.interval"

	keyServerAddr  = "server.addr"
	keyAdminSecret = "server.admin_secret"
	keyCORSOrigins = "server.cors_origins"
	keyHistoryOn   = "history.enabled"
	keyHistoryDir  = "history.dir"
)

// Directories under the config home.
const (
	corpusSubdir = "corpus"
	dataSubdir   = "data"
)

// valueKind is how a key's string form is parsed by Set.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindList
)

// settingKeys lists every key Set accepts.
var settingKeys = map[string]valueKind{
	keyCorpusDir:          kindString,
	keyChunkMode:          kindString,
	keyChunkSize:          kindInt,
	keyChunkOverlap:       kindInt,
	keyChunkMinLength:     kindInt,
	keyEmbedProvider:      kindString,
	keyEmbedModel:         kindString,
	keyEmbedBaseURL:       kindString,
	keyEmbedAPIKey:        kindString,
	keyEmbedDimensions:    kindInt,
	keyEmbedRetries:       kindInt,
	keyEmbedRate:          kindFloat,
	keyLLMProvider:        kindString,
	keyLLMModel:           kindString,
	keyLLMBaseURL:         kindString,
	keyLLMAPIKey:          kindString,
	keyVectorProvider:     kindString,
	keyPineconeAPIKey:     kindString,
	keyPineconeIndex:      kindString,
	keyPineconeNamespace:  kindString,
	keyPineconeCloud:      kindString,
	keyPineconeRegion:     kindString,
	keyPineconeAPIVersion: kindString,
	keyPineconeBaseURL:    kindString,
	keyQdrantURL:          kindString,
	keyQdrantAPIKey:       kindString,
	keyQdrantCollection:   kindString,
	keyTopK:               kindInt,
	keyMinScore:           kindFloat,
	keyCacheTTL:           kindDuration,
	keyPriorityTerms:      kindList,
	keyRefine:             kindBool,
	keyRefineTimeout:      kindDuration,
	keyCacheBackend:       kindString,
	keyRedisAddr:          kindString,
	keySyncBatchSize:      kindInt,
	keySyncInteractive:    kindInt,
	keySyncMaxRetries:     kindInt,
	keySyncBackoff:        kindDuration,
	keySyncBatchDelay:     kindDuration,
	keySyncDedupe:         kindBool,
	keySyncInterval:       kindDuration,
	keyServerAddr:         kindString,
	keyAdminSecret:        kindString,
	keyCORSOrigins:        kindList,
	keyHistoryOn:          kindBool,
	keyHistoryDir:         kindString,
}

// SettingKeys returns every settable key, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings, filling gaps with defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()
	home := s.homeDir()

	settings := &domain.AppSettings{
		Corpus: domain.CorpusSettings{
			Dir: s.getString(keyCorpusDir, filepath.Join(home, corpusSubdir)),
		},
		Chunking: s.chunking(d.Chunking),
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.getInt(keyEmbedDimensions, d.Embedding.Dimensions),
			MaxRetries:        s.getInt(keyEmbedRetries, d.Embedding.MaxRetries),
			RequestsPerSecond: s.getFloat(keyEmbedRate, d.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		VectorIndex: domain.VectorIndexSettings{
			Provider: s.getVectorProvider(d.VectorIndex.Provider),
			Pinecone: domain.PineconeSettings{
				APIKey:     s.configStore.GetString(keyPineconeAPIKey),
				Index:      s.configStore.GetString(keyPineconeIndex),
				Namespace:  s.configStore.GetString(keyPineconeNamespace),
				Cloud:      s.getString(keyPineconeCloud, d.VectorIndex.Pinecone.Cloud),
				Region:     s.getString(keyPineconeRegion, d.VectorIndex.Pinecone.Region),
				APIVersion: s.getString(keyPineconeAPIVersion, d.VectorIndex.Pinecone.APIVersion),
				BaseURL:    s.configStore.GetString(keyPineconeBaseURL),
			},
			Qdrant: domain.QdrantSettings{
				URL:        s.configStore.GetString(keyQdrantURL),
				APIKey:     s.configStore.GetString(keyQdrantAPIKey),
				Collection: s.getString(keyQdrantCollection, d.VectorIndex.Qdrant.Collection),
			},
		},
		Retrieval: domain.RetrievalSettings{
			TopK:          s.getInt(keyTopK, d.Retrieval.TopK),
			MinScore:      s.getFloat(keyMinScore, d.Retrieval.MinScore),
			CacheTTL:      s.getDuration(keyCacheTTL, d.Retrieval.CacheTTL),
			PriorityTerms: s.getStrings(keyPriorityTerms, d.Retrieval.PriorityTerms),
			Refine:        s.getBool(keyRefine, d.Retrieval.Refine),
			RefineTimeout: s.getDuration(keyRefineTimeout, d.Retrieval.RefineTimeout),
		},
		Cache: domain.CacheSettings{
			Backend:   s.getString(keyCacheBackend, d.Cache.Backend),
			RedisAddr: s.configStore.GetString(keyRedisAddr),
		},
		Sync: domain.SyncSettings{
			BatchSize:            s.getInt(keySyncBatchSize, d.Sync.BatchSize),
			InteractiveBatchSize: s.getInt(keySyncInteractive, d.Sync.InteractiveBatchSize),
			MaxRetries:           s.getInt(keySyncMaxRetries, d.Sync.MaxRetries),
			BackoffBase:          s.getDuration(keySyncBackoff, d.Sync.BackoffBase),
			BatchDelay:           s.getDuration(keySyncBatchDelay, d.Sync.BatchDelay),
			Dedupe:               s.getBool(keySyncDedupe, d.Sync.Dedupe),
			Interval:             s.getDuration(keySyncInterval, d.Sync.Interval),
		},
		Server: domain.ServerSettings{
			Addr:        s.getString(keyServerAddr, d.Server.Addr),
			AdminSecret: s.configStore.GetString(keyAdminSecret),
			CORSOrigins: s.getStrings(keyCORSOrigins, d.Server.CORSOrigins),
		},
		History: domain.HistorySettings{
			Enabled: s.getBool(keyHistoryOn, d.History.Enabled),
			Dir:     s.getString(keyHistoryDir, filepath.Join(home, dataSubdir)),
		},
	}

	// Embedding width defaults to the known width of the model.
	if settings.Embedding.Dimensions == 0 {
		settings.Embedding.Dimensions = domain.EmbeddingDimensions()[settings.Embedding.Model]
	}

	return settings, nil
}

// chunking applies the mode preset, then explicit size and overlap.
func (s *SettingsService) chunking(d domain.ChunkingSettings) domain.ChunkingSettings {
	mode := domain.ChunkingMode(s.configStore.GetString(keyChunkMode))
	if !mode.IsValid() {
		mode = d.Mode
	}
	size, overlap := mode.Preset()
	return domain.ChunkingSettings{
		Mode:      mode,
		ChunkSize: s.getInt(keyChunkSize, size),
		Overlap:   s.getInt(keyChunkOverlap, overlap),
		MinLength: s.getInt(keyChunkMinLength, d.MinLength),
	}
}

// Set parses value for key's type and persists it.
func (s *SettingsService) Set(key, value string) error {
	key = strings.TrimSpace(key)
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value = strings.TrimSpace(value)

	typed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if err := validateEnum(key, value); err != nil {
		return err
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	if logger.IsSecretKey(key) {
		logger.Info("Set %s", key)
	} else {
		logger.Info("Set %s = %s", key, value)
	}
	return nil
}

// Effective returns every setting as a string with secrets redacted.
func (s *SettingsService) Effective() (map[string]string, error) {
	st, err := s.Get()
	if err != nil {
		return nil, err
	}

	out := map[string]string{
		keyCorpusDir:          st.Corpus.Dir,
		keyChunkMode:          string(st.Chunking.Mode),
		keyChunkSize:          strconv.Itoa(st.Chunking.ChunkSize),
		keyChunkOverlap:       strconv.Itoa(st.Chunking.Overlap),
		keyChunkMinLength:     strconv.Itoa(st.Chunking.MinLength),
		keyEmbedProvider:      string(st.Embedding.Provider),
		keyEmbedModel:         st.Embedding.Model,
		keyEmbedBaseURL:       st.Embedding.BaseURL,
		keyEmbedAPIKey:        st.Embedding.APIKey,
		keyEmbedDimensions:    strconv.Itoa(st.Embedding.Dimensions),
		keyEmbedRetries:       strconv.Itoa(st.Embedding.MaxRetries),
		keyEmbedRate:          strconv.FormatFloat(st.Embedding.RequestsPerSecond, 'f', -1, 64),
		keyLLMProvider:        string(st.LLM.Provider),
		keyLLMModel:           st.LLM.Model,
		keyLLMBaseURL:         st.LLM.BaseURL,
		keyLLMAPIKey:          st.LLM.APIKey,
		keyVectorProvider:     string(st.VectorIndex.Provider),
		keyPineconeAPIKey:     st.VectorIndex.Pinecone.APIKey,
		keyPineconeIndex:      st.VectorIndex.Pinecone.Index,
		keyPineconeNamespace:  st.VectorIndex.Pinecone.Namespace,
		keyPineconeCloud:      st.VectorIndex.Pinecone.Cloud,
		keyPineconeRegion:     st.VectorIndex.Pinecone.Region,
		keyPineconeAPIVersion: st.VectorIndex.Pinecone.APIVersion,
		keyPineconeBaseURL:    st.VectorIndex.Pinecone.BaseURL,
		keyQdrantURL:          st.VectorIndex.Qdrant.URL,
		keyQdrantAPIKey:       st.VectorIndex.Qdrant.APIKey,
		keyQdrantCollection:   st.VectorIndex.Qdrant.Collection,
		keyTopK:               strconv.Itoa(st.Retrieval.TopK),
		keyMinScore:           strconv.FormatFloat(st.Retrieval.MinScore, 'f', -1, 64),
		keyCacheTTL:           st.Retrieval.CacheTTL.String(),
		keyPriorityTerms:      strings.Join(st.Retrieval.PriorityTerms, ","),
		keyRefine:             strconv.FormatBool(st.Retrieval.Refine),
		keyRefineTimeout:      st.Retrieval.RefineTimeout.String(),
		keyCacheBackend:       st.Cache.Backend,
		keyRedisAddr:          st.Cache.RedisAddr,
		keySyncBatchSize:      strconv.Itoa(st.Sync.BatchSize),
		keySyncInteractive:    strconv.Itoa(st.Sync.InteractiveBatchSize),
		keySyncMaxRetries:     strconv.Itoa(st.Sync.MaxRetries),
		keySyncBackoff:        st.Sync.BackoffBase.String(),
		keySyncBatchDelay:     st.Sync.BatchDelay.String(),
		keySyncDedupe:         strconv.FormatBool(st.Sync.Dedupe),
		keySyncInterval:       st.Sync.Interval.String(),
		keyServerAddr:         st.Server.Addr,
		keyAdminSecret:        st.Server.AdminSecret,
		keyCORSOrigins:        strings.Join(st.Server.CORSOrigins, ","),
		keyHistoryOn:          strconv.FormatBool(st.History.Enabled),
		keyHistoryDir:         st.History.Dir,
	}

	for k, v := range out {
		if v != "" && logger.IsSecretKey(k) {
			out[k] = redacted(v)
		}
	}
	return out, nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Validate checks the current settings for missing or invalid fields.
// Every problem found is reported.
func (s *SettingsService) Validate() error {
	st, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidInput}, args...)...))
	}

	if !st.Embedding.IsConfigured() {
		if st.Embedding.Provider.RequiresAPIKey() {
			add("%s is required for %s", keyEmbedAPIKey, st.Embedding.Provider)
		} else {
			add("%s is not configured", keyEmbedProvider)
		}
	}
	if st.LLM.Provider != "" && !st.LLM.IsConfigured() {
		add("%s is required for %s", keyLLMAPIKey, st.LLM.Provider)
	}

	switch st.VectorIndex.Provider {
	case domain.VectorProviderPinecone:
		if st.VectorIndex.Pinecone.APIKey == "" {
			add("%s is required", keyPineconeAPIKey)
		}
		if st.VectorIndex.Pinecone.Index == "" {
			add("%s is required", keyPineconeIndex)
		}
	case domain.VectorProviderQdrant:
		if st.VectorIndex.Qdrant.Collection == "" {
			add("%s is required", keyQdrantCollection)
		}
	}

	if st.Chunking.ChunkSize <= 0 {
		add("%s must be positive", keyChunkSize)
	}
	if st.Chunking.Overlap < 0 || st.Chunking.Overlap >= st.Chunking.ChunkSize {
		add("%s must be between 0 and %s", keyChunkOverlap, keyChunkSize)
	}
	if st.Retrieval.TopK <= 0 {
		add("%s must be positive", keyTopK)
	}
	if st.Retrieval.MinScore < -1 || st.Retrieval.MinScore > 1 {
		add("%s must be within [-1, 1]", keyMinScore)
	}
	if st.Cache.Backend == "redis" && st.Cache.RedisAddr == "" {
		add("%s is required for the redis cache", keyRedisAddr)
	}

	return errors.Join(errs...)
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// ValidateVectorIndexConfig checks the durable index against the embedding model.
func (s *SettingsService) ValidateVectorIndexConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateVectorIndex(&settings.VectorIndex, &settings.Embedding)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) homeDir() string {
	if p := s.configStore.Path(); p != "" {
		return filepath.Dir(p)
	}
	return "."
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetDuration(key)
	if val == 0 {
		if _, exists := s.configStore.Get(key); !exists {
			return defaultVal
		}
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getStrings(key string, defaultVal []string) []string {
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getVectorProvider(defaultVal domain.VectorProvider) domain.VectorProvider {
	val := domain.VectorProvider(s.configStore.GetString(keyVectorProvider))
	if val == "" || !val.IsValid() {
		return defaultVal
	}
	return val
}

func parseSetting(kind valueKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindBool:
		return strconv.ParseBool(value)
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	case kindList:
		var items []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		return items, nil
	default:
		return value, nil
	}
}

func validateEnum(key, value string) error {
	valid := true
	switch key {
	case keyEmbedProvider:
		valid = domain.AIProvider(value).IsValid()
	case keyLLMProvider:
		valid = value == "" || domain.AIProvider(value).IsValid()
	case keyVectorProvider:
		valid = domain.VectorProvider(value).IsValid()
	case keyChunkMode:
		valid = domain.ChunkingMode(value).IsValid()
	case keyCacheBackend:
		valid = value == "memory" || value == "redis"
	}
	if !valid {
		return fmt.Errorf("%w: %s: unsupported value %q", domain.ErrInvalidInput, key, value)
	}
	return nil
}

// redacted keeps the last four characters of long secrets.
func redacted(v string) string {
	if len(v) <= 8 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}
