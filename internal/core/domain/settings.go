package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is a local Ollama instance, reached through its
	// OpenAI-compatible endpoint.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// VectorProvider identifies the durable vector index backend.
type VectorProvider string

// Available vector providers.
const (
	// VectorProviderPinecone is a Pinecone serverless index.
	VectorProviderPinecone VectorProvider = "pinecone"

	// VectorProviderQdrant is a Qdrant collection.
	VectorProviderQdrant VectorProvider = "qdrant"

	// VectorProviderNone disables the durable index; search uses the
	// ephemeral index only and writes fail.
	VectorProviderNone VectorProvider = "none"
)

// IsValid returns true if the vector provider is recognised.
func (p VectorProvider) IsValid() bool {
	switch p {
	case VectorProviderPinecone, VectorProviderQdrant, VectorProviderNone:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p VectorProvider) String() string {
	return string(p)
}

// ChunkingMode selects a chunk size / overlap preset.
type ChunkingMode string

// Chunking presets.
const (
	// ChunkingStandard favours throughput: 1000 chars, 150 overlap.
	ChunkingStandard ChunkingMode = "standard"

	// ChunkingPrecise favours precision: 500 chars, 100 overlap.
	ChunkingPrecise ChunkingMode = "precise"
)

// IsValid returns true if the chunking mode is recognised.
func (m ChunkingMode) IsValid() bool {
	return m == ChunkingStandard || m == ChunkingPrecise
}

// Preset returns the chunk size and overlap for the mode.
func (m ChunkingMode) Preset() (size, overlap int) {
	if m == ChunkingPrecise {
		return 500, 100
	}
	return 1000, 150
}

// CorpusSettings locates the corpus on disk.
type CorpusSettings struct {
	// Dir is the corpus root directory.
	Dir string
}

// ChunkingSettings configures the chunker pipeline.
type ChunkingSettings struct {
	Mode      ChunkingMode
	ChunkSize int
	Overlap   int

	// MinLength drops chunks whose trimmed length is at or below it.
	MinLength int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible gateways).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's known output width.
	Dimensions int

	// MaxRetries caps client-level retries so callers fail fast under load.
	MaxRetries int

	// RequestsPerSecond caps calls to the provider. Zero means unlimited.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds query-refinement LLM configuration.
type LLMSettings struct {
	// Provider is the LLM service provider. Empty disables refinement.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// PineconeSettings configures the Pinecone backend.
type PineconeSettings struct {
	APIKey     string
	Index      string
	Namespace  string
	Cloud      string
	Region     string
	APIVersion string
	BaseURL    string
}

// QdrantSettings configures the Qdrant backend.
type QdrantSettings struct {
	URL        string
	APIKey     string
	Collection string
}

// VectorIndexSettings holds durable index configuration.
type VectorIndexSettings struct {
	Provider VectorProvider
	Pinecone PineconeSettings
	Qdrant   QdrantSettings
}

// RetrievalSettings configures search.
type RetrievalSettings struct {
	// TopK is the default number of chunks returned.
	TopK int

	// MinScore drops matches below this cosine similarity.
	MinScore float64

	// CacheTTL is how long a cached result set stays valid.
	CacheTTL time.Duration

	// PriorityTerms is the keyword-boost vocabulary.
	PriorityTerms []string

	// Refine enables LLM spelling correction before embedding.
	Refine bool

	// RefineTimeout bounds the refinement call.
	RefineTimeout time.Duration
}

// CacheSettings selects the retrieval cache backend.
type CacheSettings struct {
	// Backend is "memory" or "redis".
	Backend   string
	RedisAddr string
}

// SyncSettings configures the sync orchestrator.
type SyncSettings struct {
	BatchSize            int
	InteractiveBatchSize int
	MaxRetries           int
	BackoffBase          time.Duration
	BatchDelay           time.Duration

	// Interval schedules a background full sync while serving. Zero disables it.
	Interval time.Duration

	// Dedupe derives chunk IDs from content so re-syncs upsert.
	Dedupe bool
}

// ServerSettings configures the HTTP surface.
type ServerSettings struct {
	Addr        string
	AdminSecret string
	CORSOrigins []string
}

// HistorySettings configures sync run history persistence.
type HistorySettings struct {
	Enabled bool
	Dir     string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Corpus      CorpusSettings
	Chunking    ChunkingSettings
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorIndex VectorIndexSettings
	Retrieval   RetrievalSettings
	Cache       CacheSettings
	Sync        SyncSettings
	Server      ServerSettings
	History     HistorySettings
}

// DefaultPriorityTerms is the kidney-health vocabulary that triggers
// keyword boosting.
func DefaultPriorityTerms() []string {
	return []string{
		"dialysis", "hemodialysis", "peritoneal", "ckd", "kidney", "renal",
		"potassium", "phosphorus", "sodium", "creatinine", "egfr", "gfr",
		"albumin", "proteinuria", "transplant", "kdigo", "fluid",
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// Credentials and directories are left empty for the caller to fill.
func DefaultAppSettings() AppSettings {
	size, overlap := ChunkingStandard.Preset()
	return AppSettings{
		Chunking: ChunkingSettings{
			Mode:      ChunkingStandard,
			ChunkSize: size,
			Overlap:   overlap,
			MinLength: 10,
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOpenAI,
			Model:      "text-embedding-3-small",
			MaxRetries: 1,
		},
		LLM: LLMSettings{
			Model: "gpt-4o-mini",
		},
		VectorIndex: VectorIndexSettings{
			Provider: VectorProviderPinecone,
			Pinecone: PineconeSettings{
				Cloud:      "aws",
				Region:     "us-east-1",
				APIVersion: "2025-10",
			},
			Qdrant: QdrantSettings{
				Collection: "nephra",
			},
		},
		Retrieval: RetrievalSettings{
			TopK:          4,
			MinScore:      0.3,
			CacheTTL:      time.Hour,
			PriorityTerms: DefaultPriorityTerms(),
			RefineTimeout: 3 * time.Second,
		},
		Cache: CacheSettings{
			Backend: "memory",
		},
		Sync: SyncSettings{
			BatchSize:            100,
			InteractiveBatchSize: 5,
			MaxRetries:           3,
			BackoffBase:          2 * time.Second,
			BatchDelay:           time.Second,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
		History: HistorySettings{
			Enabled: true,
		},
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
