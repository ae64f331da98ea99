package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

// SearchInput is the input schema for the search and format_context tools.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the question to find grounding passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default from settings)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput is one retrieved passage.
type ChunkOutput struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// ContextOutput is the output schema for the format_context tool.
type ContextOutput struct {
	Context string `json:"context"`
	Count   int    `json:"count"`
}

// StatsInput is the empty input of the index_stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the index_stats tool.
type StatsOutput struct {
	Index        string           `json:"index"`
	Provider     string           `json:"provider"`
	TotalRecords int64            `json:"total_records"`
	Dimension    int              `json:"dimension,omitempty"`
	Namespaces   map[string]int64 `json:"namespaces,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find kidney-health knowledge base passages relevant to a question",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "format_context",
		Description: "Search the knowledge base and render the passages as one source-labelled context block. " +
			"An empty result renders the no-information sentinel.",
	}, s.handleFormatContext)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_stats",
			Description: "Report record counts of the durable vector index",
		}, s.handleIndexStats)
	}
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	chunks := s.ports.Search.Search(ctx, input.Query, domain.SearchOptions{Limit: input.Limit})

	output := SearchOutput{
		Chunks: make([]ChunkOutput, len(chunks)),
		Count:  len(chunks),
	}
	for i := range chunks {
		output.Chunks[i] = ChunkOutput{
			ID:      chunks[i].ID,
			Source:  chunks[i].Source,
			Content: chunks[i].Content,
			Score:   chunks[i].Score,
		}
	}
	return nil, output, nil
}

func (s *Server) handleFormatContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, ContextOutput, error) {
	chunks := s.ports.Search.Search(ctx, input.Query, domain.SearchOptions{Limit: input.Limit})
	return nil, ContextOutput{
		Context: s.ports.Search.FormatContext(chunks),
		Count:   len(chunks),
	}, nil
}

func (s *Server) handleIndexStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	if s.ports.Ingest == nil {
		return nil, StatsOutput{}, ErrIndexUnavailable
	}
	stats, err := s.ports.Ingest.IndexStats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, StatsOutput{
		Index:        stats.IndexIdentifier,
		Provider:     stats.Provider,
		TotalRecords: stats.TotalRecords,
		Dimension:    stats.Dimension,
		Namespaces:   stats.Namespaces,
	}, nil
}
