package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/skovand/lexica/internal/model"
)

// Asker answers a single question; satisfied by pipeline.Pipeline
type Asker interface {
	Ask(ctx context.Context, query string, topK int) (*model.Answer, error)
}

// AskJob answers one question from a batch
type AskJob struct {
	Query string
	TopK  int
	Asker Asker
}

// Execute runs the question through the answering pipeline
func (j *AskJob) Execute(ctx context.Context) Result {
	answer, err := j.Asker.Ask(ctx, j.Query, j.TopK)
	return &AskResult{
		Query:  j.Query,
		Answer: answer,
		Error:  err,
	}
}

// AskResult is the outcome of one batch question
type AskResult struct {
	Query  string
	Answer *model.Answer
	Error  error
}

// GetError returns the error from the ask result
func (r *AskResult) GetError() error {
	return r.Error
}

// BatchProcessor answers multiple questions concurrently
type BatchProcessor struct {
	asker       Asker
	topK        int
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(asker Asker, topK, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		asker:       asker,
		topK:        topK,
		concurrency: concurrency,
	}
}

// ProcessQuestions answers the questions concurrently
func (b *BatchProcessor) ProcessQuestions(ctx context.Context, questions []string) []*AskResult {
	if len(questions) == 0 {
		return []*AskResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, q := range questions {
		pool.Submit(&AskJob{
			Query: q,
			TopK:  b.topK,
			Asker: b.asker,
		})
	}

	results := pool.Wait()

	askResults := make([]*AskResult, len(results))
	for i, result := range results {
		askResults[i] = result.(*AskResult)
	}
	return askResults
}

// ProcessFile reads one question per line and answers them concurrently.
// Blank lines and #-comments are skipped.
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*AskResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions file: %w", err)
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}

	return b.ProcessQuestions(ctx, questions), nil
}
