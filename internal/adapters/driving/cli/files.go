package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var filesAddName string

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage corpus files",
}

var filesListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List corpus files",
	Args:    cobra.NoArgs,
	RunE:    runFilesList,
}

var filesAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Copy a file into the corpus and index it",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilesAdd,
}

var filesRemoveCmd = &cobra.Command{
	Use:     "rm [name]",
	Aliases: []string{"remove"},
	Short:   "Remove a file from the corpus",
	Long: `Removes a file from the corpus directory. Chunks already indexed from it
stay in the durable index until it is reset.`,
	Args: cobra.ExactArgs(1),
	RunE: runFilesRemove,
}

func init() {
	filesAddCmd.Flags().StringVar(&filesAddName, "name", "", "corpus-relative name (default: the file's base name)")
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesAddCmd)
	filesCmd.AddCommand(filesRemoveCmd)
	rootCmd.AddCommand(filesCmd)
}

func runFilesList(cmd *cobra.Command, _ []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	files, err := corpusService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list corpus: %w", err)
	}
	if len(files) == 0 {
		cmd.Println("Corpus is empty.")
		return nil
	}

	var total int64
	for _, f := range files {
		cmd.Printf("  %-48s %10s  %s\n", f.Name, humanSize(f.Size), f.ModTime.Local().Format("2006-01-02 15:04"))
		total += f.Size
	}
	cmd.Printf("\n%d files, %s\n", len(files), humanSize(total))
	return nil
}

func runFilesAdd(cmd *cobra.Command, args []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	name := filesAddName
	if name == "" {
		name = filepath.Base(path)
	}

	result, err := corpusService.Upload(cmd.Context(), name, content, nil)
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}
	if len(result.Skipped) > 0 {
		cmd.Printf("Saved %s but indexed nothing: %s\n", name, result.Skipped[0].Reason)
		return nil
	}
	cmd.Printf("Added %s (%d chunks indexed).\n", name, result.TotalChunks)
	return nil
}

func runFilesRemove(cmd *cobra.Command, args []string) error {
	if corpusService == nil {
		return errors.New("corpus service not configured")
	}

	if err := corpusService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}
	cmd.Printf("Removed %s.\n", args[0])
	return nil
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
