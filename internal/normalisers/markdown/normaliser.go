package markdown

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
	"github.com/custodia-labs/nephra/internal/logger"
)

var _ driven.Normaliser = (*Normaliser)(nil)

const fence = "---"

// Normaliser handles Markdown documents.
//
// Body text is passed through: headings and lists stay in place because
// the chunker splits on the same line structure. A leading YAML front
// matter block is removed from the body and its scalar fields are merged
// into the document metadata.
type Normaliser struct{}

// New creates a Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns .md and .markdown.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

// ContentType returns domain.ContentMarkdown.
func (n *Normaliser) ContentType() domain.ContentType {
	return domain.ContentMarkdown
}

// Normalise decodes a markdown document.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ToValidUTF8(string(raw.Content), "�")
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	front, body, err := splitFrontMatter(content)
	if err != nil {
		// Malformed front matter is kept as text rather than losing the file.
		logger.Warn("markdown %s: %v", raw.URI, err)
		front, body = nil, content
	}

	meta := maps.Clone(raw.Metadata)
	if meta == nil {
		meta = make(map[string]any, len(front)+1)
	}
	for k, v := range front {
		if _, set := meta[k]; !set {
			meta[k] = v
		}
	}
	if _, set := meta["title"]; !set {
		meta["title"] = extractMarkdownTitle(body, raw.URI)
	}

	return &driven.NormaliseResult{
		Document: domain.Document{
			ID:          uuid.New().String(),
			Source:      raw.URI,
			ContentType: domain.ContentMarkdown,
			Content:     body,
			Metadata:    meta,
			CreatedAt:   time.Now(),
		},
	}, nil
}

// splitFrontMatter separates a leading "---" delimited YAML block.
// Only scalar values are kept. Content without front matter is returned
// unchanged.
func splitFrontMatter(content string) (map[string]any, string, error) {
	if !strings.HasPrefix(content, fence+"\n") {
		return nil, content, nil
	}
	rest := content[len(fence)+1:]
	end := strings.Index(rest, "\n"+fence)
	if end < 0 {
		return nil, content, nil
	}
	block := rest[:end]
	body := strings.TrimPrefix(rest[end+len(fence)+1:], "\n")

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(block), &fields); err != nil {
		return nil, content, fmt.Errorf("front matter: %w", err)
	}

	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch v := v.(type) {
		case string, int, float64, bool:
			out[strings.ToLower(k)] = v
		case time.Time:
			out[strings.ToLower(k)] = v.Format(time.DateOnly)
		}
	}
	return out, body, nil
}

// extractMarkdownTitle returns the first H1 heading or falls back to filename.
func extractMarkdownTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	name := filepath.Base(uri)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
