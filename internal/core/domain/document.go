package domain

import (
	"strings"
	"time"
)

// ContentType is the closed set of document kinds the loader produces.
type ContentType string

// Supported content types.
const (
	// ContentPlainText is UTF-8 text passed through unchanged.
	ContentPlainText ContentType = "text"

	// ContentMarkdown is markdown passed through unchanged.
	ContentMarkdown ContentType = "markdown"

	// ContentPDF is text extracted from a PDF.
	ContentPDF ContentType = "pdf"

	// ContentWord is text extracted from a word-processor document.
	ContentWord ContentType = "docx"

	// ContentJSON is structured data flattened to key: value lines.
	ContentJSON ContentType = "json"

	// ContentManual is free-form text pasted by an operator.
	ContentManual ContentType = "manual"
)

// IsValid returns true if the content type is recognised.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentPlainText, ContentMarkdown, ContentPDF, ContentWord, ContentJSON, ContentManual:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c ContentType) String() string {
	return string(c)
}

// Document represents extracted text ready for chunking.
// It exists only as an intermediate value between loader and chunker.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Source is the human-readable origin: a filename or operator label.
	// It is carried onto every chunk for citation.
	Source string

	// ContentType records which extraction produced the text.
	ContentType ContentType

	// Content is the full extracted text before chunking.
	Content string

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was extracted.
	CreatedAt time.Time
}

// Chunk represents a bounded slice of a document's text.
// Chunks are the unit of embedding, storage, and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Source is copied from the parent document.
	Source string

	// ContentType is copied from the parent document.
	ContentType ContentType

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation. Only set between
	// embedding and indexing; search results leave it empty.
	Embedding []float32

	// Score is the similarity score when the chunk is a search result.
	Score float64

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}

// Contains reports whether the chunk content contains term, ignoring case.
func (c Chunk) Contains(term string) bool {
	return strings.Contains(strings.ToLower(c.Content), strings.ToLower(term))
}

// Metadata keys used when chunks are stored in a vector index.
const (
	MetaContent     = "content"
	MetaSource      = "source"
	MetaContentType = "contentType"
	MetaPosition    = "position"
	MetaDocumentID  = "documentId"
)

// IndexMetadata returns the payload stored alongside a chunk's vector.
func (c Chunk) IndexMetadata() map[string]any {
	return map[string]any{
		MetaContent:     c.Content,
		MetaSource:      c.Source,
		MetaContentType: c.ContentType.String(),
		MetaPosition:    c.Position,
		MetaDocumentID:  c.DocumentID,
	}
}

// ChunkFromMetadata rebuilds a chunk from an index payload.
func ChunkFromMetadata(id string, score float64, meta map[string]any) Chunk {
	c := Chunk{ID: id, Score: score}
	if v, ok := meta[MetaContent].(string); ok {
		c.Content = v
	}
	if v, ok := meta[MetaSource].(string); ok {
		c.Source = v
	}
	if v, ok := meta[MetaContentType].(string); ok {
		c.ContentType = ContentType(v)
	}
	if v, ok := meta[MetaDocumentID].(string); ok {
		c.DocumentID = v
	}
	switch v := meta[MetaPosition].(type) {
	case int:
		c.Position = v
	case int64:
		c.Position = int(v)
	case float64:
		c.Position = int(v)
	}
	return c
}
