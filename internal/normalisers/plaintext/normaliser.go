package plaintext

import (
	"context"
	"maps"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".txt", ".text"}
}

// ContentType returns the content type of produced documents.
func (n *Normaliser) ContentType() domain.ContentType {
	return domain.ContentPlainText
}

// Normalise decodes the raw bytes as UTF-8 text with LF line endings.
// Invalid byte sequences are replaced, never rejected, and a leading
// byte order mark is dropped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(raw.Content)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "\ufffd")
	}
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	doc := domain.Document{
		ID:          uuid.New().String(),
		Source:      raw.URI,
		ContentType: domain.ContentPlainText,
		Content:     content,
		Metadata:    withTitle(raw.Metadata, extractTitle(raw.URI)),
		CreatedAt:   time.Now(),
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

// extractTitle turns "low-sodium_diet.txt" into "low sodium diet".
func extractTitle(uri string) string {
	name := filepath.Base(uri)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

// withTitle copies metadata and records the title unless the caller set one.
func withTitle(src map[string]any, title string) map[string]any {
	dst := maps.Clone(src)
	if dst == nil {
		dst = make(map[string]any, 1)
	}
	if _, ok := dst["title"]; !ok {
		dst["title"] = title
	}
	return dst
}
