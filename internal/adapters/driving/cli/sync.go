package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nephra/internal/core/domain"
	"github.com/custodia-labs/nephra/internal/core/ports/driving"
)

var (
	syncBatchSize   int
	syncHistorySize int
)

var syncCmd = &cobra.Command{
	Use:   "sync [file]",
	Short: "Index the corpus into the durable index",
	Long: `Loads every corpus file, chunks it and uploads the chunks in batches.
If a file is given, only that corpus file is synced, in small interactive
batches. Failed batches are retried with exponential backoff; batches that
completed before a failure stay indexed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

var syncHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sync runs",
	Args:  cobra.NoArgs,
	RunE:  runSyncHistory,
}

func init() {
	syncCmd.Flags().IntVar(&syncBatchSize, "batch-size", 0, "chunks per batch (0 = sync.batch_size)")
	syncHistoryCmd.Flags().IntVarP(&syncHistorySize, "limit", "n", 10, "number of runs to show")
	syncCmd.AddCommand(syncHistoryCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}
	if syncBatchSize < 0 {
		return fmt.Errorf("%w: --batch-size must not be negative", domain.ErrInvalidInput)
	}

	req := domain.SyncRequest{BatchSize: syncBatchSize}
	if len(args) > 0 {
		req.File = args[0]
		req.Interactive = true
		cmd.Printf("Synchronising %s...\n", req.File)
	} else {
		cmd.Println("Synchronising corpus...")
	}

	result, err := syncWithProgress(cmd.Context(), cmd, syncOrchestrator, req)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	cmd.Printf("Indexed %d chunks from %d files in %d batches (%s).\n",
		result.TotalChunks, result.FileCount, result.Batches, result.Duration.Round(time.Millisecond))
	for _, sk := range result.Skipped {
		cmd.Printf("  skipped %s: %s\n", sk.Name, sk.Reason)
	}
	return nil
}

// syncWithProgress runs a sync while printing its progress events.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	syncOrch driving.SyncOrchestrator,
	req domain.SyncRequest,
) (*domain.SyncResult, error) {
	progress := make(chan domain.SyncProgress, 16)
	type outcome struct {
		result *domain.SyncResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := syncOrch.Sync(ctx, req, progress)
		done <- outcome{result, err}
	}()

	for {
		select {
		case p := <-progress:
			printProgress(cmd, p)
		case out := <-done:
			drainProgress(cmd, progress)
			return out.result, out.err
		}
	}
}

// drainProgress prints events still buffered after Sync returned.
func drainProgress(cmd *cobra.Command, progress <-chan domain.SyncProgress) {
	for {
		select {
		case p := <-progress:
			printProgress(cmd, p)
		default:
			return
		}
	}
}

func printProgress(cmd *cobra.Command, p domain.SyncProgress) {
	switch p.Phase {
	case domain.SyncLoading, domain.SyncChunking, domain.SyncBatching:
		if p.Message != "" {
			cmd.Printf("%s\n", p.Message)
		}
	case domain.SyncUploading:
		line := fmt.Sprintf("Batch %d/%d: %d/%d chunks (%.0f%%)",
			p.BatchNumber, p.TotalBatches, p.ChunksIndexed, p.TotalChunks, p.Percent())
		if rem := p.Remaining(); rem > 0 {
			line += fmt.Sprintf(", ~%s remaining", rem.Round(time.Second))
		}
		cmd.Println(line)
	case domain.SyncRetrying:
		cmd.Printf("Batch %d/%d failed, retry %d: %s\n", p.BatchNumber, p.TotalBatches, p.Attempt, p.Message)
	case domain.SyncFatal:
		cmd.Printf("Stopped at batch %d/%d: %s\n", p.BatchNumber, p.TotalBatches, p.Message)
	}
}

func runSyncHistory(cmd *cobra.Command, _ []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	runs, err := syncOrchestrator.History(cmd.Context(), syncHistorySize)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No sync runs recorded.")
		return nil
	}

	for i := range runs {
		r := runs[i]
		scope := r.File
		if scope == "" {
			scope = "(corpus)"
		}
		cmd.Printf("%s  %-9s  %-20s  %d chunks, %d files, %d batches\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status, scope,
			r.TotalChunks, r.FileCount, r.Batches)
		if r.Error != "" {
			cmd.Printf("    %s\n", r.Error)
		}
	}
	return nil
}
