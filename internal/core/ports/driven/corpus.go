package driven

import (
	"context"
	"time"
)

// CorpusFile describes one file in the corpus.
type CorpusFile struct {
	// Name is the path relative to the corpus root, slash-separated.
	Name string

	// Size is the file size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime time.Time
}

// CorpusStore is the file-backed source of truth for ingestible documents.
type CorpusStore interface {
	// Root returns the corpus directory.
	Root() string

	// List returns ingestible files sorted by name.
	List(ctx context.Context) ([]CorpusFile, error)

	// Read returns the content of a named file.
	// Returns domain.ErrNotFound if it does not exist.
	Read(ctx context.Context, name string) ([]byte, error)

	// Save writes content under name, creating parent directories.
	Save(ctx context.Context, name string, content []byte) error

	// Delete removes a named file.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, name string) error
}
