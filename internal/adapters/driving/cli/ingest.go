package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

var (
	ingestIndex bool
	ingestLabel string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract and chunk content",
	Long: `Extracts and chunks a single file or pasted text outside the corpus.
Without --index the chunks are only printed; with --index they are embedded
and added to the durable index.`,
}

var ingestFileCmd = &cobra.Command{
	Use:   "file [path]",
	Short: "Ingest one file",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestFile,
}

var ingestTextCmd = &cobra.Command{
	Use:   "text [text]",
	Short: "Ingest pasted text",
	Long:  `Ingests the argument, or standard input when the argument is "-".`,
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestText,
}

func init() {
	for _, c := range []*cobra.Command{ingestFileCmd, ingestTextCmd} {
		c.Flags().BoolVar(&ingestIndex, "index", false, "add the chunks to the durable index")
		ingestCmd.AddCommand(c)
	}
	ingestTextCmd.Flags().StringVar(&ingestLabel, "label", "pasted text", "source label for the chunks")
	rootCmd.AddCommand(ingestCmd)
}

func runIngestFile(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	chunks, err := ingestService.IngestFile(cmd.Context(), content, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if len(chunks) == 0 {
		cmd.Printf("%s produced no chunks (unsupported or empty).\n", path)
		return nil
	}
	return finishIngest(cmd, chunks)
}

func runIngestText(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	text := args[0]
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}

	chunks, err := ingestService.IngestText(cmd.Context(), text, ingestLabel)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return finishIngest(cmd, chunks)
}

func finishIngest(cmd *cobra.Command, chunks []domain.Chunk) error {
	cmd.Printf("Extracted %d chunks.\n", len(chunks))
	if len(chunks) == 0 {
		return nil
	}
	if !ingestIndex {
		for i := range chunks {
			cmd.Printf("  [%d] %s\n", chunks[i].Position, snippet(chunks[i].Content, 100))
		}
		return nil
	}

	if err := ingestService.AddToIndex(cmd.Context(), chunks); err != nil {
		return fmt.Errorf("index failed: %w", err)
	}
	cmd.Printf("Indexed %d chunks from %s.\n", len(chunks), strings.TrimSpace(chunks[0].Source))
	return nil
}
