package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

func TestSupportedExtensions(t *testing.T) {
	n := New()
	assert.ElementsMatch(t, []string{".html", ".htm"}, n.SupportedExtensions())
	assert.Equal(t, domain.ContentPlainText, n.ContentType())
}

func TestNormalise_Success(t *testing.T) {
	page := `<!doctype html>
<html><head><title>Low Potassium &amp; You</title><style>p{color:red}</style></head>
<body>
<script>var tracking = "should not appear";</script>
<h1>Potassium</h1>
<p>Bananas   and oranges are
high in potassium.</p>
<ul><li>Apples</li><li>Berries</li></ul>
<noscript>enable js</noscript>
</body></html>`

	raw := &domain.RawDocument{URI: "articles/potassium.html", Content: []byte(page)}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "Low Potassium & You", doc.Metadata["title"])
	assert.Equal(t, "Potassium\n\nBananas and oranges are high in potassium.\n\nApples\n\nBerries", doc.Content)
	assert.NotContains(t, doc.Content, "tracking")
	assert.NotContains(t, doc.Content, "color")
	assert.NotContains(t, doc.Content, "enable js")
	assert.Equal(t, "articles/potassium.html", doc.Source)
}

func TestNormalise_TitleFallback(t *testing.T) {
	raw := &domain.RawDocument{URI: "fluid-intake.htm", Content: []byte("<p>Drink less.</p>")}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "fluid intake", result.Document.Metadata["title"])
	assert.Equal(t, "Drink less.", result.Document.Content)
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
