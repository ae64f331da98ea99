package normalisers

import (
	"github.com/custodia-labs/nephra/internal/normalisers/docx"
	"github.com/custodia-labs/nephra/internal/normalisers/html"
	"github.com/custodia-labs/nephra/internal/normalisers/json"
	"github.com/custodia-labs/nephra/internal/normalisers/markdown"
	"github.com/custodia-labs/nephra/internal/normalisers/pdf"
	"github.com/custodia-labs/nephra/internal/normalisers/plaintext"
)

// RegisterDefaults installs the built-in normalisers.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(json.New())
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(html.New())
}

// NewDefaultRegistry returns a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
