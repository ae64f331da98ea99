package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var indexResetYes bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect or reset the durable vector index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show durable index statistics",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

var indexResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete and recreate the durable index",
	Long: `Deletes every record in the durable index and recreates it at the
embedding model's dimension. This cannot be undone; pass --yes to confirm.`,
	Args: cobra.NoArgs,
	RunE: runIndexReset,
}

func init() {
	indexResetCmd.Flags().BoolVar(&indexResetYes, "yes", false, "confirm destroying the index")
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexResetCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	stats, err := ingestService.IndexStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get index stats: %w", err)
	}

	cmd.Printf("Index:      %s\n", stats.IndexIdentifier)
	cmd.Printf("Provider:   %s\n", stats.Provider)
	cmd.Printf("Records:    %d\n", stats.TotalRecords)
	cmd.Printf("Dimension:  %d\n", stats.Dimension)
	if len(stats.Namespaces) > 0 {
		names := make([]string, 0, len(stats.Namespaces))
		for ns := range stats.Namespaces {
			names = append(names, ns)
		}
		sort.Strings(names)
		cmd.Println("Namespaces:")
		for _, ns := range names {
			label := ns
			if label == "" {
				label = "(default)"
			}
			cmd.Printf("  %s: %d\n", label, stats.Namespaces[ns])
		}
	}
	return nil
}

func runIndexReset(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if !indexResetYes {
		return errors.New("refusing to reset the index without --yes")
	}

	if err := ingestService.ResetIndex(cmd.Context()); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	cmd.Println("Index reset. Run 'nephra sync' to re-index the corpus.")
	return nil
}
