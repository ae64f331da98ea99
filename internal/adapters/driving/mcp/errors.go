// Package mcp exposes the knowledge base retrieval core to AI assistants
// over the Model Context Protocol.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrIndexUnavailable is returned by index_stats when no ingest service is wired.
var ErrIndexUnavailable = errors.New("mcp: durable index is not configured")
