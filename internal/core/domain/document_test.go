package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContentType_IsValid tests recognised and unknown content types
func TestContentType_IsValid(t *testing.T) {
	for _, ct := range []ContentType{
		ContentPlainText, ContentMarkdown, ContentPDF, ContentWord, ContentJSON, ContentManual,
	} {
		assert.True(t, ct.IsValid(), ct.String())
	}
	assert.False(t, ContentType("").IsValid())
	assert.False(t, ContentType("html").IsValid())
}

func TestChunk_Contains(t *testing.T) {
	c := Chunk{Content: "Patients on Hemodialysis should limit potassium."}

	assert.True(t, c.Contains("hemodialysis"))
	assert.True(t, c.Contains("POTASSIUM"))
	assert.False(t, c.Contains("transplant"))
}

func TestChunk_IndexMetadataRoundTrip(t *testing.T) {
	c := Chunk{
		ID:          "c1",
		DocumentID:  "d1",
		Content:     "Limit sodium to 2g per day.",
		Source:      "diet.md",
		ContentType: ContentMarkdown,
		Position:    3,
	}

	got := ChunkFromMetadata("c1", 0.82, c.IndexMetadata())

	assert.Equal(t, c.Content, got.Content)
	assert.Equal(t, c.Source, got.Source)
	assert.Equal(t, c.ContentType, got.ContentType)
	assert.Equal(t, c.DocumentID, got.DocumentID)
	assert.Equal(t, 3, got.Position)
	assert.InDelta(t, 0.82, got.Score, 1e-9)
}

// TestChunkFromMetadata_NumericPositions covers JSON-decoded payloads
func TestChunkFromMetadata_NumericPositions(t *testing.T) {
	tests := []struct {
		name string
		pos  any
		want int
	}{
		{"int", 4, 4},
		{"int64", int64(5), 5},
		{"float64 from JSON", float64(6), 6},
		{"missing", nil, 0},
		{"wrong type", "7", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := map[string]any{MetaContent: "x"}
			if tt.pos != nil {
				meta[MetaPosition] = tt.pos
			}
			assert.Equal(t, tt.want, ChunkFromMetadata("id", 0, meta).Position)
		})
	}
}

func TestChunkFromMetadata_Empty(t *testing.T) {
	got := ChunkFromMetadata("id", 0.5, nil)
	assert.Equal(t, "id", got.ID)
	assert.Empty(t, got.Content)
	assert.Empty(t, got.Source)
}
