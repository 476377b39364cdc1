package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skovand/lexica/internal/index"
	"github.com/skovand/lexica/internal/model"
	"github.com/skovand/lexica/internal/search"
)

var (
	searchIndexPath string
	searchTopK      int
	searchShowText  bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank indexed chunks against a query (no generation)",
	Long: `Search runs hybrid retrieval only: BM25 scoring refined by fuzzy
re-ranking, with no LLM involved. Useful for inspecting what the
answering pipeline would see.

Example:
  lexica search "quick fox" --top-k 10
  lexica search "parser grammar" --text`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	defaults := model.DefaultConfig()
	searchCmd.Flags().StringVar(&searchIndexPath, "index", defaults.Index.Path, "path to the index bundle")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", defaults.Retrieval.TopK, "number of results")
	searchCmd.Flags().BoolVar(&searchShowText, "text", false, "print chunk text with each result")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	idx, err := index.Load(searchIndexPath)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	retriever := search.NewRetriever(idx, model.DefaultConfig().Retrieval)
	candidates, err := retriever.Retrieve(query, searchTopK)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		fmt.Println("No results.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSOURCE\tBM25\tFUZZY\tCOMBINED")
	for i, c := range candidates {
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%d\t%.4f\n", i+1, c.Chunk.Label(), c.BM25, c.Fuzzy, c.Combined)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if searchShowText {
		for i, c := range candidates {
			fmt.Printf("\n--- %d. %s ---\n%s\n", i+1, c.Chunk.Label(), c.Chunk.Text)
		}
	}

	return nil
}
