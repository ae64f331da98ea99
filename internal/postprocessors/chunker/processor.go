// Package chunker splits document text along a prioritized separator
// hierarchy into bounded, overlapping chunks.
//
// The splitter tries the highest-priority separator present in the text
// (paragraph, line, sentence, word, character) and recurses into any
// piece still longer than the chunk size with the next separator down.
// Small pieces are then merged greedily up to the chunk size, carrying
// roughly overlap characters from the tail of one chunk into the next.
// Lengths are counted in runes.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 150

// DefaultSeparators is the split hierarchy: paragraph, line, sentence
// end (period, question mark, exclamation mark), word, then individual
// characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// Processor splits document content into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator hierarchy.
// An empty-string separator is appended if missing so splitting always terminates.
func WithSeparators(seps ...string) Option {
	return func(p *Processor) {
		if len(seps) == 0 {
			return
		}
		p.separators = append([]string(nil), seps...)
		if p.separators[len(p.separators)-1] != "" {
			p.separators = append(p.separators, "")
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, nil
	}

	texts := p.Split(doc.Content)
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks = append(chunks, domain.Chunk{
			ID:          uuid.New().String(),
			DocumentID:  doc.ID,
			Content:     text,
			Source:      doc.Source,
			ContentType: doc.ContentType,
			Position:    i,
			Metadata:    make(map[string]any),
		})
	}
	return chunks, nil
}

// Split returns the chunk texts for content.
func (p *Processor) Split(content string) []string {
	return p.split(content, p.separators)
}

func (p *Processor) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			next = separators[i+1:]
			break
		}
	}

	var (
		out  []string
		good []string
	)
	for _, piece := range splitKeep(text, separator) {
		if runeLen(piece) < p.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, p.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, p.split(piece, next)...)
		}
	}
	if len(good) > 0 {
		out = append(out, p.merge(good)...)
	}
	return out
}

// merge joins small pieces into chunks of at most chunkSize, keeping a
// window of trailing pieces no longer than overlap for the next chunk.
func (p *Processor) merge(pieces []string) []string {
	var (
		out     []string
		window  []string
		total   int
		lengths []int
	)
	emit := func() {
		if s := strings.TrimSpace(strings.Join(window, "")); s != "" {
			out = append(out, s)
		}
	}

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > p.chunkSize && len(window) > 0 {
			emit()
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= lengths[0]
				window, lengths = window[1:], lengths[1:]
			}
		}
		window = append(window, piece)
		lengths = append(lengths, n)
		total += n
	}
	emit()
	return out
}

// splitKeep splits text after each separator, keeping the separator on
// the preceding piece so sentence punctuation survives. An empty
// separator splits into runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
