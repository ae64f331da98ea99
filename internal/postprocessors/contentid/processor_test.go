package contentid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

func TestID_Deterministic(t *testing.T) {
	a := ID("diet.md", 0, "Limit potassium.")
	b := ID("diet.md", 0, "Limit potassium.")
	assert.Equal(t, a, b)

	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestID_SensitiveToEveryPart(t *testing.T) {
	base := ID("diet.md", 0, "Limit potassium.")
	assert.NotEqual(t, base, ID("other.md", 0, "Limit potassium."))
	assert.NotEqual(t, base, ID("diet.md", 1, "Limit potassium."))
	assert.NotEqual(t, base, ID("diet.md", 0, "Limit sodium."))
}

func TestProcess_ReplacesIDs(t *testing.T) {
	in := []domain.Chunk{
		{ID: "random-1", Source: "a.txt", Position: 0, Content: "first chunk text"},
		{ID: "random-2", Source: "a.txt", Position: 1, Content: "second chunk text"},
	}

	out, err := New().Process(context.Background(), nil, in)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, ID("a.txt", 0, "first chunk text"), out[0].ID)
	assert.Equal(t, ID("a.txt", 1, "second chunk text"), out[1].ID)
	assert.Equal(t, "random-1", in[0].ID, "input must not be mutated")
}
