// Package contentid assigns deterministic chunk IDs derived from content,
// so re-syncing unchanged text overwrites the same index records.
package contentid

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// Namespace seeds the name-based chunk IDs.
var Namespace = uuid.MustParse("6f1c3a52-9b7e-4f0d-8a21-3c5e7d9b1a04")

// Processor replaces chunk IDs with uuid.NewSHA1(Namespace, source|position|sha256(content)).
type Processor struct{}

// New creates a content ID processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "contentid"
}

// Process stamps each chunk with its content-derived ID.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.ID = ID(c.Source, c.Position, c.Content)
		out[i] = c
	}
	return out, nil
}

// ID returns the deterministic identifier for a chunk.
func ID(source string, position int, content string) string {
	sum := sha256.Sum256([]byte(content))
	name := source + "|" + strconv.Itoa(position) + "|" + hex.EncodeToString(sum[:])
	return uuid.NewSHA1(Namespace, []byte(name)).String()
}
