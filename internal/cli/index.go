package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skovand/lexica/internal/index"
	"github.com/skovand/lexica/internal/ingest"
	"github.com/skovand/lexica/internal/model"
)

var (
	indexOut       string
	indexSeparator string
	indexK1        float64
	indexB         float64
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <dir>",
	Short: "Ingest a directory and build the searchable index",
	Long: `Index walks a directory, extracts text from supported files
(.txt, .md, .html), splits it into paragraph chunks, and builds a BM25
index persisted as a versioned JSON bundle.

Example:
  lexica index ./docs
  lexica index ./docs --out corpus.json --separator "\n\n"`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	defaults := model.DefaultConfig()
	indexCmd.Flags().StringVar(&indexOut, "out", defaults.Index.Path, "output path for the index bundle")
	indexCmd.Flags().StringVar(&indexSeparator, "separator", defaults.Index.Separator, "paragraph boundary for chunking")
	indexCmd.Flags().Float64Var(&indexK1, "k1", defaults.Index.K1, "BM25 k1 parameter")
	indexCmd.Flags().Float64Var(&indexB, "b", defaults.Index.B, "BM25 b parameter")
}

func runIndex(cmd *cobra.Command, args []string) error {
	root := args[0]

	loader := ingest.NewLoader()
	docs, err := loader.LoadDir(root)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no supported documents found under %s", root)
	}

	chunker := index.NewChunker(indexSeparator)
	chunks := chunker.ChunkDocuments(docs)

	idx := index.NewLexicalIndex(indexK1, indexB)
	idx.Build(chunks)

	if err := index.Save(idx, indexOut); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	stats := idx.Stats()
	fmt.Fprintf(os.Stderr, "Indexed %d documents into %d chunks (%d distinct terms, avg %.1f tokens/chunk)\n",
		len(docs), stats.ChunkCount, len(stats.DocFreq), stats.AvgChunkLen)
	fmt.Fprintf(os.Stderr, "Index written to %s\n", indexOut)

	return nil
}
