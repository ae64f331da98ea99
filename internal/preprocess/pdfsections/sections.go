// Package pdfsections turns a guideline PDF into section records that the
// JSON normaliser ingests.
//
// Headers are detected heuristically per line. Body lines accumulate under
// the most recent header; short sections are dropped and long ones split at
// sentence boundaries.
package pdfsections

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/nephra/internal/normalisers/pdf"
)

const (
	// DefaultMinLength drops sections with less content than this.
	DefaultMinLength = 50

	// DefaultMaxLength splits sections longer than this.
	DefaultMaxLength = 3000

	// DefaultMaxFileBytes splits output files above this size.
	DefaultMaxFileBytes = 3.5 * 1024 * 1024

	untitled = "Content"
)

var (
	chapterHeader  = regexp.MustCompile(`^(Chapter|Section|CHAPTER|SECTION)\s+\d`)
	numberedHeader = regexp.MustCompile(`^\d+\.\d*\s+[A-Z]`)
	sentenceEnd    = regexp.MustCompile(`[.!?]\s+`)
)

// Section is one output record.
type Section struct {
	Section string `json:"section"`
	Content string `json:"content"`
	Page    int    `json:"page"`
	Source  string `json:"source"`
}

// Options tunes extraction.
type Options struct {
	MinLength    int
	MaxLength    int
	MaxFileBytes int
}

func (o Options) withDefaults() Options {
	if o.MinLength <= 0 {
		o.MinLength = DefaultMinLength
	}
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultMaxLength
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = DefaultMaxFileBytes
	}
	return o
}

// Preprocessor extracts sections from PDFs with pdftotext.
type Preprocessor struct {
	runner pdf.CommandRunner
	opts   Options
}

// New creates a preprocessor. A nil runner uses pdf.DefaultRunner.
func New(runner pdf.CommandRunner, opts Options) *Preprocessor {
	if runner == nil {
		runner = pdf.DefaultRunner
	}
	return &Preprocessor{runner: runner, opts: opts.withDefaults()}
}

// Process extracts the sections of one PDF. source names the file in
// every record.
func (p *Preprocessor) Process(ctx context.Context, content []byte, source string) ([]Section, error) {
	text, err := pdf.ExtractText(ctx, p.runner, content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", source, err)
	}
	pages := strings.Split(strings.TrimRight(text, pdf.PageBreak), pdf.PageBreak)
	return Extract(pages, source, p.opts), nil
}

// Extract builds sections from per-page text.
func Extract(pages []string, source string, opts Options) []Section {
	opts = opts.withDefaults()

	var (
		sections []Section
		header   string
		page     = 1
		body     []string
	)
	flush := func() {
		defer func() { body = body[:0] }()
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if len(content) < opts.MinLength {
			return
		}
		name := header
		if name == "" {
			name = untitled
		}
		if len(content) <= opts.MaxLength {
			sections = append(sections, Section{Section: name, Content: content, Page: page, Source: source})
			return
		}
		for i, part := range SplitLongText(content, opts.MaxLength) {
			sections = append(sections, Section{
				Section: fmt.Sprintf("%s (Part %d)", name, i+1),
				Content: strings.TrimSpace(part),
				Page:    page,
				Source:  source,
			})
		}
	}

	for i, text := range pages {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if IsHeader(line) {
				flush()
				header = line
				page = i + 1
				continue
			}
			body = append(body, line)
		}
	}
	flush()
	return sections
}

// IsHeader reports whether a trimmed line looks like a section header.
func IsHeader(line string) bool {
	switch {
	case isUpper(line) && len(line) > 5 && len(line) < 200:
		return true
	case chapterHeader.MatchString(line):
		return true
	case numberedHeader.MatchString(line):
		return true
	case strings.HasPrefix(line, "KDIGO") && len(line) < 150:
		return true
	}
	return false
}

// isUpper reports whether s has at least one letter and no lowercase ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

// SplitLongText splits text at sentence boundaries into pieces of at most
// maxLen characters. A single sentence longer than maxLen stays whole.
func SplitLongText(text string, maxLen int) []string {
	var (
		chunks  []string
		current []string
		size    int
	)
	for _, sentence := range splitSentences(text) {
		if size+len(sentence) > maxLen && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = []string{sentence}
			size = len(sentence)
			continue
		}
		current = append(current, sentence)
		size += len(sentence) + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// splitSentences splits after '.', '!' or '?' followed by whitespace,
// keeping the punctuation with its sentence.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		out = append(out, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
