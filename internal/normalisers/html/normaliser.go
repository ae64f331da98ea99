package html

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".html", ".htm"}
}

// ContentType returns the content type of produced documents.
// Extracted page text is plain text.
func (n *Normaliser) ContentType() domain.ContentType {
	return domain.ContentPlainText
}

// Normalise converts an HTML document to its visible text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	title, content, err := extract(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if title == "" {
		title = titleFromFilename(raw.URI)
	}

	meta := maps.Clone(raw.Metadata)
	if meta == nil {
		meta = make(map[string]any, 1)
	}
	meta["title"] = title

	return &driven.NormaliseResult{
		Document: domain.Document{
			ID:          uuid.New().String(),
			Source:      raw.URI,
			ContentType: domain.ContentPlainText,
			Content:     content,
			Metadata:    meta,
			CreatedAt:   time.Now(),
		},
	}, nil
}

// skipped elements contribute no text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Head:     true,
	atom.Svg:      true,
	atom.Template: true,
}

// block elements end a paragraph.
var block = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Tr: true, atom.Blockquote: true, atom.Pre: true, atom.Table: true,
	atom.Ul: true, atom.Ol: true, atom.Hr: true, atom.Header: true, atom.Footer: true,
}

// extract walks the token stream and returns the <title> and visible text.
func extract(content []byte) (title, text string, err error) {
	z := xhtml.NewTokenizer(bytes.NewReader(content))

	var (
		paragraphs []string
		current    strings.Builder
		titleBuf   strings.Builder
		depth      int // nesting inside skipped elements
		inTitle    bool
	)
	endParagraph := func() {
		if s := strings.Join(strings.Fields(current.String()), " "); s != "" {
			paragraphs = append(paragraphs, s)
		}
		current.Reset()
	}

	for {
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				endParagraph()
				return strings.Join(strings.Fields(titleBuf.String()), " "), strings.Join(paragraphs, "\n\n"), nil
			}
			return "", "", z.Err()

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			tok := z.Token()
			switch {
			case tok.DataAtom == atom.Title:
				inTitle = tt == xhtml.StartTagToken
			case skipped[tok.DataAtom] && tt == xhtml.StartTagToken:
				depth++
			case tok.DataAtom == atom.Br:
				current.WriteString("\n")
			case block[tok.DataAtom]:
				endParagraph()
			}

		case xhtml.EndTagToken:
			tok := z.Token()
			switch {
			case tok.DataAtom == atom.Title:
				inTitle = false
			case skipped[tok.DataAtom] && depth > 0:
				depth--
			case block[tok.DataAtom]:
				endParagraph()
			}

		case xhtml.TextToken:
			data := string(z.Text())
			switch {
			case inTitle:
				titleBuf.WriteString(data)
			case depth == 0:
				current.WriteString(data)
				current.WriteString(" ")
			}
		}
	}
}

func titleFromFilename(uri string) string {
	filename := filepath.Base(uri)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
