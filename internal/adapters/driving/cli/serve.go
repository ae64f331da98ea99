package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/nephra/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/nephra/internal/logger"
)

var (
	serveAddr     string
	serveWatch    bool
	serveJSONLogs bool
	serveNoMCP    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Starts the HTTP API: public search endpoints, the admin group guarded by
the X-Admin-Secret header, and the MCP streamable HTTP endpoint at /mcp.

With --watch the corpus directory is watched as well. When sync.interval is
set, a full sync also runs on that schedule.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "also watch the corpus directory")
	serveCmd.Flags().BoolVar(&serveJSONLogs, "json-logs", true, "log as JSON")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if searchService == nil || ingestService == nil || syncOrchestrator == nil || corpusService == nil {
		return errors.New("services not configured")
	}
	logger.SetJSON(serveJSONLogs)

	cfg := runtimeCfg.Server
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	ports := &httpapi.Ports{
		Search: searchService,
		Ingest: ingestService,
		Sync:   syncOrchestrator,
		Corpus: corpusService,
	}
	if !serveNoMCP {
		mcpServer, err := newMCPServer()
		if err != nil {
			return fmt.Errorf("mcp: %w", err)
		}
		ports.MCP = mcpServer.Handler()
	}

	server, err := httpapi.NewServer(ports, cfg)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return server.Run(ctx)
	})
	if serveWatch {
		w, err := newWatcher()
		if err != nil {
			return err
		}
		g.Go(func() error {
			return w.Run(ctx)
		})
	}
	if backgroundSync != nil {
		g.Go(func() error {
			return backgroundSync.Start(ctx)
		})
		defer backgroundSync.Stop()
	}

	cmd.Printf("Serving on %s\n", cfg.Addr)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
