package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/skovand/lexica/internal/index"
	"github.com/skovand/lexica/internal/model"
	"github.com/skovand/lexica/internal/pipeline"
	"github.com/skovand/lexica/internal/worker"
)

var (
	batchIndexPath string
	batchTopK      int
	concurrency    int
	outputDir      string
	batchTimeout   time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Answer multiple questions from a file in parallel",
	Long: `Batch reads questions from a file (one per line, # comments and
blank lines skipped) and answers them concurrently, writing one JSON
answer file per question.

Example:
  lexica batch questions.txt
  lexica batch questions.txt --concurrency 8 --output-dir ./answers`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	defaults := model.DefaultConfig()
	batchCmd.Flags().StringVar(&batchIndexPath, "index", defaults.Index.Path, "path to the index bundle")
	batchCmd.Flags().IntVarP(&batchTopK, "top-k", "k", defaults.Retrieval.TopK, "chunks retrieved per question")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", defaults.Concurrency.Workers, "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./lexica-answers", "output directory for answers")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the answer cache")

	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default if empty)")
	batchCmd.Flags().IntVar(&llmTimeout, "llm-timeout", defaults.LLM.Timeout, "per-call generation timeout, seconds")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg := model.DefaultConfig()
	cfg.Retrieval.TopK = batchTopK
	cfg.Cache.Enabled = !noCache
	cfg.Concurrency.Workers = concurrency
	if err := applyLLMFlags(cfg); err != nil {
		return err
	}

	idx, err := index.Load(batchIndexPath)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	p, err := pipeline.New(cfg, idx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	processor := worker.NewBatchProcessor(p, batchTopK, concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return err
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeMeta)
	failed := 0
	for i, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Query, result.Error)
			continue
		}

		out := filepath.Join(outputDir, fmt.Sprintf("answer-%03d.json", i+1))
		if err := renderer.Render(result.Answer, out, ""); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Query, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ [%s] %s → %s\n", result.Answer.Confidence, result.Query, out)
	}

	fmt.Fprintf(os.Stderr, "\nAnswered %d/%d questions\n", len(results)-failed, len(results))
	if failed > 0 {
		return fmt.Errorf("%d questions failed", failed)
	}
	return nil
}
