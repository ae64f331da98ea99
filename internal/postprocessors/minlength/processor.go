// Package minlength drops chunks too short to carry information.
package minlength

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// DefaultMinLength is the trimmed length at or below which a chunk is dropped.
const DefaultMinLength = 10

// Processor filters out near-empty chunks and renumbers the survivors.
type Processor struct {
	min int
}

// New creates a filter dropping chunks whose trimmed length is <= min.
// A negative min uses DefaultMinLength.
func New(min int) *Processor {
	if min < 0 {
		min = DefaultMinLength
	}
	return &Processor{min: min}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "minlength"
}

// Process keeps chunks whose trimmed content is longer than the minimum.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	kept := chunks[:0:0]
	for _, c := range chunks {
		if utf8.RuneCountInString(strings.TrimSpace(c.Content)) <= p.min {
			continue
		}
		c.Position = len(kept)
		kept = append(kept, c)
	}
	return kept, nil
}
