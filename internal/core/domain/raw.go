package domain

import (
	"path/filepath"
	"strings"
)

// RawDocument represents opaque bytes handed to the document loader.
// It is the input to normalisation.
type RawDocument struct {
	// URI is the original location. For corpus files this is the
	// filename relative to the corpus root; its extension selects
	// the normaliser.
	URI string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains caller-supplied key-value pairs.
	Metadata map[string]any
}

// Extension returns the lowercased file extension of URI, including the dot.
func (r *RawDocument) Extension() string {
	return strings.ToLower(filepath.Ext(r.URI))
}

// Name returns the base filename of URI.
func (r *RawDocument) Name() string {
	return filepath.Base(r.URI)
}
