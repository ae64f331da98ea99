// Package cli provides the nephra command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nephra/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
	"github.com/custodia-labs/nephra/internal/logger"
)

var version = "dev"

var verbose bool

// Services injected by main. Commands fail with "<name> service not
// configured" when theirs is missing.
var (
	searchService    driving.SearchService
	ingestService    driving.IngestService
	syncOrchestrator driving.SyncOrchestrator
	corpusService    driving.CorpusService
	settingsService  driving.SettingsService
	backgroundSync   BackgroundSync
	runtimeCfg       Runtime
)

// BackgroundSync is a periodic sync loop run while serving.
type BackgroundSync interface {
	Start(ctx context.Context) error
	Stop()
}

// Runtime carries what the long-running commands need beyond the services.
type Runtime struct {
	// CorpusDir is the watched corpus root.
	CorpusDir string

	// Supports reports whether a file has a registered normaliser.
	Supports func(name string) bool

	// Server configures `nephra serve`.
	Server httpapi.Config
}

// Services bundles everything main wires into the CLI.
type Services struct {
	Search         driving.SearchService
	Ingest         driving.IngestService
	Sync           driving.SyncOrchestrator
	Corpus         driving.CorpusService
	Settings       driving.SettingsService
	BackgroundSync BackgroundSync
	Runtime        Runtime
}

var rootCmd = &cobra.Command{
	Use:   "nephra",
	Short: "Retrieval core for a kidney-health knowledge base",
	Long: `nephra indexes a corpus of kidney-health documents into a vector index and
retrieves grounding passages for questions.

Documents are loaded from the corpus directory, chunked, embedded and
uploaded in batches. Searches fall back to an in-process index built from
the corpus when the durable index is unavailable.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Configure injects services. Nil entries leave their commands unconfigured.
func Configure(s Services) {
	searchService = s.Search
	ingestService = s.Ingest
	syncOrchestrator = s.Sync
	corpusService = s.Corpus
	settingsService = s.Settings
	backgroundSync = s.BackgroundSync
	runtimeCfg = s.Runtime
}

// SetVersion sets the version printed by `nephra version`.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
