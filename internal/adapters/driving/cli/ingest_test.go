package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

func sampleChunks() []domain.Chunk {
	return []domain.Chunk{
		{ID: "a", Source: "notes.md", Content: "Potassium binders lower serum potassium.", Position: 0},
		{ID: "b", Source: "notes.md", Content: "Phosphate binders are taken with meals.", Position: 1},
	}
}

func TestIngestFileCmd_ListsChunks(t *testing.T) {
	ts, cleanup := setupTestServicesWithMocks()
	defer cleanup()
	ts.ingest.chunks = sampleChunks()
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes"), 0o644))

	out, err := execute("ingest", "file", path)

	require.NoError(t, err)
	assert.Equal(t, "notes.md", ts.ingest.lastName)
	assert.Contains(t, out, "Extracted 2 chunks.")
	assert.Contains(t, out, "[1] Phosphate binders")
	assert.Empty(t, ts.ingest.added)
}

func TestIngestFileCmd_Index(t *testing.T) {
	ts, cleanup := setupTestServicesWithMocks()
	defer cleanup()
	ts.ingest.chunks = sampleChunks()
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Notes"), 0o644))

	out, err := execute("ingest", "file", "--index", path)

	require.NoError(t, err)
	assert.Len(t, ts.ingest.added, 2)
	assert.Contains(t, out, "Indexed 2 chunks from notes.md.")
}

func TestIngestFileCmd_NoChunks(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	path := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0o644))

	out, err := execute("ingest", "file", path)

	require.NoError(t, err)
	assert.Contains(t, out, "produced no chunks")
}

func TestIngestFileCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServicesWithMocks()
	defer cleanup()
	ts.ingest.err = &domain.ContentExtractionError{Filename: "bad.pdf", Cause: errors.New("corrupt")}
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	_, err := execute("ingest", "file", path)

	var extractErr *domain.ContentExtractionError
	assert.ErrorAs(t, err, &extractErr)
}

func TestIngestTextCmd(t *testing.T) {
	ts, cleanup := setupTestServicesWithMocks()
	defer cleanup()
	ts.ingest.chunks = sampleChunks()[:1]

	out, err := execute("ingest", "text", "--label", "clinic handout", "Drink to thirst.")

	require.NoError(t, err)
	assert.Equal(t, "Drink to thirst.", ts.ingest.lastText)
	assert.Equal(t, "clinic handout", ts.ingest.lastLabel)
	assert.Contains(t, out, "Extracted 1 chunks.")
}

func TestIngestTextCmd_Stdin(t *testing.T) {
	ts, cleanup := setupTestServicesWithMocks()
	defer cleanup()
	rootCmd.SetIn(strings.NewReader("from stdin"))
	defer rootCmd.SetIn(nil)

	_, err := execute("ingest", "text", "-")

	require.NoError(t, err)
	assert.Equal(t, "from stdin", ts.ingest.lastText)
	assert.Equal(t, "pasted text", ts.ingest.lastLabel)
}

func TestIngest_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	ingestService = nil

	_, err := execute("ingest", "text", "hello")

	assert.ErrorContains(t, err, "ingest service not configured")
}
