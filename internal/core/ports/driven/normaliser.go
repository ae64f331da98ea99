package driven

import (
	"context"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// Normaliser extracts text from one family of file formats.
// Each normaliser claims a set of file extensions (e.g., ".pdf").
type Normaliser interface {
	// SupportedExtensions returns the lowercased extensions, with the dot,
	// this normaliser handles.
	SupportedExtensions() []string

	// ContentType returns the content type stamped on produced documents.
	ContentType() domain.ContentType

	// Normalise extracts the document text from raw bytes.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Note: Normalisation only produces a Document with Content.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the normalised document with Content field populated.
	Document domain.Document
}
