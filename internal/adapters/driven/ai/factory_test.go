package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nephra/internal/adapters/driven/vector/pinecone"
	"github.com/custodia-labs/nephra/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/nephra/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	result := &InitResult{}
	// Should not panic
	result.Close()
}

func TestProviderConfigError(t *testing.T) {
	err := error(&ProviderConfigError{Provider: "pinecone", Field: "vector_index.pinecone.index"})
	assert.Contains(t, err.Error(), "pinecone")
	assert.Contains(t, err.Error(), "nephra settings set vector_index.pinecone.index")

	var pce *ProviderConfigError
	assert.True(t, errors.As(err, &pce))
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.EmbeddingSettings
		wantErr   bool
		wantModel string
		wantDims  int
	}{
		{
			name:     "nil settings",
			settings: nil,
			wantErr:  true,
		},
		{
			name:     "unknown provider",
			settings: &domain.EmbeddingSettings{Provider: "anthropic", APIKey: "k"},
			wantErr:  true,
		},
		{
			name:     "openai requires a key",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantErr:  true,
		},
		{
			name:      "openai default model",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test"},
			wantModel: "text-embedding-3-small",
			wantDims:  1536,
		},
		{
			name:      "ollama needs no key",
			settings:  &domain.EmbeddingSettings{Provider: domain.AIProviderOllama},
			wantModel: "nomic-embed-text",
			wantDims:  768,
		},
		{
			name: "explicit dimensions",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI, APIKey: "sk", Model: "text-embedding-3-large", Dimensions: 1024,
			},
			wantModel: "text-embedding-3-large",
			wantDims:  1024,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
			assert.Equal(t, tt.wantModel, svc.ModelName())
			assert.Equal(t, tt.wantDims, svc.Dimensions())
			assert.NoError(t, svc.Close())
		})
	}
}

func TestCreateEmbeddingService_MissingKeyIsProviderConfigError(t *testing.T) {
	_, err := CreateEmbeddingService(&domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI})
	var pce *ProviderConfigError
	require.ErrorAs(t, err, &pce)
	assert.Equal(t, "embedding.api_key", pce.Field)
}

func TestCreateLLMService(t *testing.T) {
	svc, err := CreateLLMService(nil)
	require.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = CreateLLMService(&domain.LLMSettings{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Nil(t, svc, "empty provider disables refinement")

	svc, err = CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "gpt-4o-mini", svc.ModelName())

	svc, err = CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3"})
	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestCreateAndValidate_Unconfigured(t *testing.T) {
	emb, err := CreateAndValidateEmbeddingService(nil)
	assert.NoError(t, err)
	assert.Nil(t, emb)

	llm, err := CreateAndValidateLLMService(&domain.LLMSettings{})
	assert.NoError(t, err)
	assert.Nil(t, llm)
}

func TestCreateAndValidateEmbeddingService_Unreachable(t *testing.T) {
	_, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  "http://127.0.0.1:1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestCreateVectorIndex(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.VectorIndexSettings
		wantNil   bool
		wantField string
		check     func(t *testing.T, ix any)
	}{
		{
			name:      "nil settings",
			settings:  nil,
			wantField: "vector_index.provider",
		},
		{
			name:     "none",
			settings: &domain.VectorIndexSettings{Provider: domain.VectorProviderNone},
			wantNil:  true,
		},
		{
			name:      "unknown provider",
			settings:  &domain.VectorIndexSettings{Provider: "weaviate"},
			wantField: "vector_index.provider",
		},
		{
			name:      "pinecone missing key",
			settings:  &domain.VectorIndexSettings{Provider: domain.VectorProviderPinecone, Pinecone: domain.PineconeSettings{Index: "kidney"}},
			wantField: "vector_index.pinecone.api_key",
		},
		{
			name:      "pinecone missing index",
			settings:  &domain.VectorIndexSettings{Provider: domain.VectorProviderPinecone, Pinecone: domain.PineconeSettings{APIKey: "pk"}},
			wantField: "vector_index.pinecone.index",
		},
		{
			name: "pinecone",
			settings: &domain.VectorIndexSettings{
				Provider: domain.VectorProviderPinecone,
				Pinecone: domain.PineconeSettings{APIKey: "pk", Index: "kidney"},
			},
			check: func(t *testing.T, ix any) {
				_, ok := ix.(*pinecone.Index)
				assert.True(t, ok)
			},
		},
		{
			name:      "qdrant missing collection",
			settings:  &domain.VectorIndexSettings{Provider: domain.VectorProviderQdrant},
			wantField: "vector_index.qdrant.collection",
		},
		{
			name: "qdrant",
			settings: &domain.VectorIndexSettings{
				Provider: domain.VectorProviderQdrant,
				Qdrant:   domain.QdrantSettings{Collection: "nephra"},
			},
			check: func(t *testing.T, ix any) {
				_, ok := ix.(*qdrant.Index)
				assert.True(t, ok)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := CreateVectorIndex(tt.settings, 1536, 0.3)
			if tt.wantField != "" {
				var pce *ProviderConfigError
				require.ErrorAs(t, err, &pce)
				assert.Equal(t, tt.wantField, pce.Field)
				assert.Nil(t, ix)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, ix)
				return
			}
			require.NotNil(t, ix)
			tt.check(t, ix)
		})
	}
}

func TestOllamaBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:11434/v1", ollamaBaseURL(""))
	assert.Equal(t, "http://gpu:11434/v1", ollamaBaseURL("http://gpu:11434"))
	assert.Equal(t, "http://gpu:11434/v1", ollamaBaseURL("http://gpu:11434/v1/"))
}
