package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nephra/internal/adapters/driving/mcp"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve retrieval to AI assistants over MCP",
	Long: `Serves the search, format_context and index_stats tools, and the corpus
file list and sync history as resources.

Stdio is used unless --addr is given, in which case the streamable HTTP
transport listens there. 'nephra serve' also mounts it at /mcp.

  {"mcpServers": {"nephra": {"command": "nephra", "args": ["mcp", "serve"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpAddr, "addr", "", "HTTP listen address, e.g. :8081 (default: stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func newMCPServer() (*mcp.Server, error) {
	if searchService == nil {
		return nil, errors.New("search service not configured")
	}
	return mcp.NewServer(&mcp.Ports{
		Search: searchService,
		Ingest: ingestService,
		Corpus: corpusService,
		Sync:   syncOrchestrator,
	}, mcp.WithVersion(version))
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := newMCPServer()
	if err != nil {
		return err
	}
	if mcpAddr != "" {
		cmd.PrintErrf("MCP server listening on %s\n", mcpAddr)
		return server.RunHTTP(cmd.Context(), mcpAddr)
	}
	return server.Run(cmd.Context())
}
