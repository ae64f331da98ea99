package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/nephra/internal/core/domain"
)

var (
	searchLimit     int
	searchJSON      bool
	searchSkipCache bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Embeds the query and retrieves the most similar chunks.
Chunks mentioning priority kidney-health terms found in the query are
boosted. The in-process index is used when the durable index fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var contextCmd = &cobra.Command{
	Use:   "context [query]",
	Short: "Print grounding context for a question",
	Long:  `Searches the knowledge base and prints the chunks as one prompt-ready block.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runContext,
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, contextCmd} {
		c.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of chunks (0 = retrieval.top_k)")
		c.Flags().BoolVar(&searchSkipCache, "no-cache", false, "bypass the retrieval cache")
	}
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(contextCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	chunks := searchService.Search(cmd.Context(), args[0], domain.SearchOptions{
		Limit:     searchLimit,
		SkipCache: searchSkipCache,
	})

	if searchJSON {
		return outputSearchJSON(cmd, chunks)
	}
	outputSearchTable(cmd, chunks)
	return nil
}

func runContext(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	chunks := searchService.Search(cmd.Context(), args[0], domain.SearchOptions{
		Limit:     searchLimit,
		SkipCache: searchSkipCache,
	})
	cmd.Println(searchService.FormatContext(chunks))
	return nil
}

type chunkJSON struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

func outputSearchJSON(cmd *cobra.Command, chunks []domain.Chunk) error {
	out := make([]chunkJSON, len(chunks))
	for i := range chunks {
		out[i] = chunkJSON{
			ID:      chunks[i].ID,
			Source:  chunks[i].Source,
			Score:   chunks[i].Score,
			Content: chunks[i].Content,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, chunks []domain.Chunk) {
	if len(chunks) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range chunks {
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, chunks[i].Source, chunks[i].Score)
		cmd.Printf("      %s\n", snippet(chunks[i].Content, 160))
		cmd.Println()
	}
}

// snippet collapses whitespace and truncates to n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
