// Package pipeline chains hybrid retrieval, fact extraction and answer
// synthesis into the single externally-visible Ask operation.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skovand/lexica/internal/cache"
	"github.com/skovand/lexica/internal/extract"
	"github.com/skovand/lexica/internal/index"
	"github.com/skovand/lexica/internal/llm"
	"github.com/skovand/lexica/internal/model"
	"github.com/skovand/lexica/internal/search"
	"github.com/skovand/lexica/internal/synth"
	"github.com/skovand/lexica/internal/worker"
)

// ErrGeneratorRequired is returned when the pipeline is constructed
// without a configured generation provider.
var ErrGeneratorRequired = errors.New("a generation provider is required (set llm.provider)")

// degradedUnknown is recorded when generation retries are exhausted
const degradedUnknown = "generation service unavailable"

// sleepFunc is the wait between retries, injectable for tests
type sleepFunc func(time.Duration)

// Pipeline answers questions against a built index
type Pipeline struct {
	idx         *index.LexicalIndex
	retriever   *search.Retriever
	extractor   *extract.Extractor
	synthesizer *synth.Synthesizer
	generator   llm.Generator
	limiter     *worker.Limiter
	answerCache cache.Cache
	cfg         *model.Config
	sleep       sleepFunc
	logger      *slog.Logger
}

// New creates the answering pipeline over an already-built index
func New(cfg *model.Config, idx *index.LexicalIndex) (*Pipeline, error) {
	generator, err := llm.NewGenerator(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("init generation provider: %w", err)
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}

	p := &Pipeline{
		idx:         idx,
		retriever:   search.NewRetriever(idx, cfg.Retrieval),
		extractor:   extract.NewExtractor(generator, cfg.Extraction.QuoteWordCap),
		synthesizer: synth.NewSynthesizer(generator),
		generator:   generator,
		limiter:     worker.NewLimiter(cfg.LLM.RPS, cfg.LLM.Burst),
		cfg:         cfg,
		sleep:       time.Sleep,
		logger:      slog.Default().With("component", "pipeline"),
	}

	if cfg.Cache.Enabled {
		c, err := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		if err != nil {
			p.logger.Warn("answer cache disabled", "err", err)
		} else {
			p.answerCache = c
		}
	}

	return p, nil
}

// Ask answers a question: retrieve → extract facts → synthesize.
// Usage errors (non-positive k, empty query) surface immediately;
// exhausted generation retries degrade to a low-confidence answer
// instead of propagating.
func (p *Pipeline) Ask(ctx context.Context, query string, topK int) (*model.Answer, error) {
	if topK <= 0 {
		return nil, search.ErrInvalidTopK
	}

	cacheKey := cache.AnswerKey(query, topK, p.idx.Fingerprint())
	if cached := p.cachedAnswer(cacheKey); cached != nil {
		return cached, nil
	}

	candidates, err := p.retriever.Retrieve(query, topK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return model.InsufficientAnswer(query), nil
	}

	facts, unknowns, err := p.extractFacts(ctx, query, candidates)
	if err != nil {
		p.logger.Warn("fact extraction degraded", "err", err)
		return model.InsufficientAnswer(query, degradedUnknown), nil
	}

	answer, err := p.synthesize(ctx, query, facts, unknowns)
	if err != nil {
		p.logger.Warn("answer synthesis degraded", "err", err)
		answer = model.InsufficientAnswer(query, append(unknowns, degradedUnknown)...)
		answer.Facts = facts
	}
	answer.Model = p.cfg.LLM.Model

	p.storeAnswer(cacheKey, answer)
	return answer, nil
}

// Candidates exposes retrieval without generation, for search-only use
func (p *Pipeline) Candidates(query string, topK int) ([]model.Candidate, error) {
	return p.retriever.Retrieve(query, topK)
}

// extractFacts runs extraction with bounded retries on transient failures
func (p *Pipeline) extractFacts(ctx context.Context, query string, candidates []model.Candidate) ([]model.Fact, []string, error) {
	var facts []model.Fact
	var unknowns []string

	err := p.withRetry(ctx, func(ctx context.Context) error {
		var err error
		facts, unknowns, err = p.extractor.Extract(ctx, query, candidates)
		return err
	})
	return facts, unknowns, err
}

// synthesize runs synthesis with bounded retries on transient failures
func (p *Pipeline) synthesize(ctx context.Context, query string, facts []model.Fact, unknowns []string) (*model.Answer, error) {
	var answer *model.Answer

	err := p.withRetry(ctx, func(ctx context.Context) error {
		var err error
		answer, err = p.synthesizer.Synthesize(ctx, query, facts, unknowns)
		return err
	})
	return answer, err
}

// withRetry executes op, retrying transient failures with linear backoff
// up to the configured bound. Rate limiting applies before every attempt.
func (p *Pipeline) withRetry(ctx context.Context, op func(context.Context) error) error {
	maxRetries := p.cfg.Extraction.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.sleep(time.Duration(attempt) * p.cfg.Extraction.RetryBackoff)
		}

		if err := p.limiter.Wait(ctx, p.generator.Name()); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !llm.IsTransient(lastErr) {
			return lastErr
		}
		p.logger.Warn("transient generation failure",
			"attempt", attempt+1, "max", maxRetries+1, "err", lastErr)
	}
	return lastErr
}

func (p *Pipeline) cachedAnswer(key string) *model.Answer {
	if p.answerCache == nil {
		return nil
	}
	data, found := p.answerCache.Get(key)
	if !found {
		return nil
	}
	var answer model.Answer
	if err := json.Unmarshal(data, &answer); err != nil {
		_ = p.answerCache.Delete(key)
		return nil
	}
	return &answer
}

func (p *Pipeline) storeAnswer(key string, answer *model.Answer) {
	if p.answerCache == nil {
		return
	}
	data, err := json.Marshal(answer)
	if err != nil {
		return
	}
	if err := p.answerCache.Set(key, data, 0); err != nil {
		p.logger.Warn("failed to cache answer", "err", err)
	}
}
