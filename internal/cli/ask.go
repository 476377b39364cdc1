package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/skovand/lexica/internal/index"
	"github.com/skovand/lexica/internal/model"
	"github.com/skovand/lexica/internal/pipeline"
)

var (
	askIndexPath string
	askTopK      int
	askTimeout   time.Duration
	askJSON      string
	askMD        string
	noCache      bool
	llmProvider  string
	llmModel     string
	llmTimeout   int
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed corpus",
	Long: `Ask retrieves the most relevant chunks for the question, extracts
quotation-backed facts from them, and synthesizes a final answer with a
confidence level. Claims the corpus cannot support are listed as
unknowns instead of being invented.

Example:
  lexica ask "when was the rule changed?" --llm-provider openai
  lexica ask "who maintains the parser?" --top-k 8 --md answer.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	defaults := model.DefaultConfig()
	askCmd.Flags().StringVar(&askIndexPath, "index", defaults.Index.Path, "path to the index bundle")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", defaults.Retrieval.TopK, "number of chunks to retrieve")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 2*time.Minute, "overall answer timeout")
	askCmd.Flags().StringVar(&askJSON, "json", "-", "output JSON path (- for stdout)")
	askCmd.Flags().StringVar(&askMD, "md", "", "output Markdown path (optional)")
	askCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the answer cache")

	askCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	askCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name (provider default if empty)")
	askCmd.Flags().IntVar(&llmTimeout, "llm-timeout", defaults.LLM.Timeout, "per-call generation timeout, seconds")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	cfg := model.DefaultConfig()
	cfg.Retrieval.TopK = askTopK
	cfg.Cache.Enabled = !noCache
	cfg.Output.Verbose = verbose
	if err := applyLLMFlags(cfg); err != nil {
		return err
	}

	idx, err := index.Load(askIndexPath)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	p, err := pipeline.New(cfg, idx)
	if err != nil {
		return err
	}

	if verbose {
		stats := idx.Stats()
		fmt.Fprintf(os.Stderr, "Index: %d chunks, avg %.1f tokens\n", stats.ChunkCount, stats.AvgChunkLen)
		fmt.Fprintf(os.Stderr, "Provider: %s\n\n", cfg.LLM.Provider)
	}

	answer, err := p.Ask(ctx, question, askTopK)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Confidence: %s, %d facts, %d unknowns\n\n",
			answer.Confidence, len(answer.Facts), len(answer.Unknowns))
	}

	renderer := pipeline.NewRenderer(cfg.Output.IncludeMeta)
	if err := renderer.Render(answer, askJSON, askMD); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}

// applyLLMFlags fills cfg.LLM from flags and provider environment variables
func applyLLMFlags(cfg *model.Config) error {
	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel
	cfg.LLM.Timeout = llmTimeout

	switch llmProvider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama needs no API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	return nil
}
