package driven

import (
	"context"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// NormaliserRegistry maps file extensions to normalisers.
// Adding a format is a Register call.
type NormaliserRegistry interface {
	// Normalise extracts text using the normaliser registered for the
	// document's extension. Returns domain.ErrUnsupportedFormat when no
	// normaliser claims it, and a *domain.ContentExtractionError when the
	// normaliser fails.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser for each of its extensions.
	// A later registration for the same extension wins.
	Register(normaliser Normaliser)

	// Supports reports whether filename has a registered extension.
	Supports(filename string) bool

	// SupportedExtensions returns all registered extensions, sorted.
	SupportedExtensions() []string
}
