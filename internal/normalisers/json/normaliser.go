// Package json flattens structured JSON documents into line-oriented text.
//
// Nested objects become "parent > child: value" lines; arrays are flattened
// element by element under their parent's label. Key order follows the
// source document.
package json

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// PathSeparator joins nested object keys in a label.
const PathSeparator = " > "

// Normaliser handles JSON documents.
type Normaliser struct{}

// New creates a new JSON normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".json"}
}

// ContentType returns the content type of produced documents.
func (n *Normaliser) ContentType() domain.ContentType {
	return domain.ContentJSON
}

// Normalise parses and flattens a JSON document.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content, err := Flatten(raw.Content)
	if err != nil {
		return nil, err
	}

	return &driven.NormaliseResult{
		Document: domain.Document{
			ID:          uuid.New().String(),
			Source:      raw.URI,
			ContentType: domain.ContentJSON,
			Content:     content,
			Metadata:    maps.Clone(raw.Metadata),
			CreatedAt:   time.Now(),
		},
	}, nil
}

// Flatten renders a JSON document as one "label: value" line per leaf.
func Flatten(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var lines []string
	if err := walk(dec, nil, &lines); err != nil {
		return "", fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", errors.New("parse json: trailing data after top-level value")
	}
	return strings.Join(lines, "\n"), nil
}

// walk consumes one JSON value from dec and appends its leaves.
func walk(dec *json.Decoder, path []string, lines *[]string) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, ok := keyTok.(string)
				if !ok {
					return fmt.Errorf("expected object key, got %v", keyTok)
				}
				if err := walk(dec, append(path[:len(path):len(path)], key), lines); err != nil {
					return err
				}
			}
		case '[':
			for dec.More() {
				if err := walk(dec, path, lines); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unexpected delimiter %q", v)
		}
		// closing delimiter
		_, err := dec.Token()
		return err
	default:
		*lines = append(*lines, renderLeaf(path, v))
		return nil
	}
}

func renderLeaf(path []string, v any) string {
	var value string
	switch x := v.(type) {
	case nil:
		value = "null"
	case string:
		value = x
	case json.Number:
		value = x.String()
	case bool:
		value = fmt.Sprintf("%t", x)
	default:
		value = fmt.Sprint(x)
	}
	if len(path) == 0 {
		return value
	}
	return strings.Join(path, PathSeparator) + ": " + value
}
