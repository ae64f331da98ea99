package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nephra/internal/normalisers/pdf"
	"github.com/custodia-labs/nephra/internal/preprocess/pdfsections"
)

var (
	preprocessOut       string
	preprocessMinLength int
	preprocessMaxLength int
)

// pdfRunner runs pdftotext. Tests replace it.
var pdfRunner pdf.CommandRunner = pdf.DefaultRunner

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Convert documents into ingest-friendly formats",
}

var preprocessPDFCmd = &cobra.Command{
	Use:   "pdf [file.pdf]",
	Short: "Split a guideline PDF into JSON section records",
	Long: `Extracts per-page text with pdftotext, detects section headers and writes
<name>.json with one {section, content, page, source} record per section.
Sections shorter than --min-length are dropped; longer than --max-length are
split at sentence boundaries. Output over 3.5 MB is split into numbered parts.

Copy the result into the corpus (or use 'nephra files add') to index it.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreprocessPDF,
}

func init() {
	preprocessPDFCmd.Flags().StringVarP(&preprocessOut, "out", "o", ".", "output directory")
	preprocessPDFCmd.Flags().IntVar(&preprocessMinLength, "min-length", pdfsections.DefaultMinLength, "minimum section length")
	preprocessPDFCmd.Flags().IntVar(&preprocessMaxLength, "max-length", pdfsections.DefaultMaxLength, "split sections longer than this")
	preprocessCmd.AddCommand(preprocessPDFCmd)
	rootCmd.AddCommand(preprocessCmd)
}

func runPreprocessPDF(cmd *cobra.Command, args []string) error {
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	opts := pdfsections.Options{MinLength: preprocessMinLength, MaxLength: preprocessMaxLength}
	source := filepath.Base(path)

	sections, err := pdfsections.New(pdfRunner, opts).Process(cmd.Context(), content, source)
	if err != nil {
		return err
	}
	if len(sections) == 0 {
		cmd.Printf("No sections extracted from %s.\n", source)
		return nil
	}

	paths, err := pdfsections.Write(sections, preprocessOut, source, opts)
	if err != nil {
		return err
	}
	cmd.Printf("Extracted %d sections from %s.\n", len(sections), source)
	for _, p := range paths {
		cmd.Printf("  wrote %s\n", p)
	}
	return nil
}
