package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nephra/internal/adapters/driving/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-index corpus files as they change",
	Long: `Watches the corpus directory and syncs each file shortly after it is
created or modified. Deleting a file does not remove its indexed chunks.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	w, err := newWatcher()
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", runtimeCfg.CorpusDir)
	return w.Run(cmd.Context())
}

func newWatcher() (*watch.Watcher, error) {
	if syncOrchestrator == nil {
		return nil, errors.New("sync service not configured")
	}
	if runtimeCfg.CorpusDir == "" {
		return nil, errors.New("corpus directory not configured")
	}
	return watch.New(watch.Config{
		Dir:      runtimeCfg.CorpusDir,
		Supports: runtimeCfg.Supports,
	}, syncOrchestrator)
}
