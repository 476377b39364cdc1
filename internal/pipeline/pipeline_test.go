package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
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

// scriptedGenerator returns each scripted step in order; steps past the
// end repeat the last one. A step with err set fails that call.
type scriptedGenerator struct {
	steps []generatorStep
	calls int
}

type generatorStep struct {
	response string
	err      error
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	step := g.steps[len(g.steps)-1]
	if g.calls < len(g.steps) {
		step = g.steps[g.calls]
	}
	g.calls++
	return step.response, step.err
}

func (g *scriptedGenerator) IsAvailable(ctx context.Context) bool { return true }

const (
	extractionOK = `{"facts":[{"claim":"The fox jumps over the dog.","quote":"fox jumps over the lazy dog","source":"doc1#0"}],"unknowns":[]}`
	synthesisOK  = `{"summary":"The fox jumps over the dog.","confidence":"high","follow_ups":[]}`
)

var transientErr = &llm.Error{Provider: "scripted", StatusCode: 503, Message: "overloaded", Transient: true}

func newTestPipeline(t *testing.T, gen llm.Generator, texts ...string) (*Pipeline, *model.Config) {
	t.Helper()

	cfg := model.DefaultConfig()
	cfg.Extraction.RetryBackoff = time.Millisecond

	chunks := make([]model.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = model.Chunk{SourceID: "doc" + string(rune('1'+i)), Ordinal: 0, Text: text}
	}
	idx := index.NewLexicalIndex(cfg.Index.K1, cfg.Index.B)
	idx.Build(chunks)

	p := &Pipeline{
		idx:         idx,
		retriever:   search.NewRetriever(idx, cfg.Retrieval),
		extractor:   extract.NewExtractor(gen, cfg.Extraction.QuoteWordCap),
		synthesizer: synth.NewSynthesizer(gen),
		generator:   gen,
		limiter:     worker.NewLimiter(1000, 1000),
		cfg:         cfg,
		sleep:       func(time.Duration) {},
		logger:      slog.Default().With("component", "pipeline"),
	}
	return p, cfg
}

func TestAsk_EndToEnd(t *testing.T) {
	gen := &scriptedGenerator{steps: []generatorStep{
		{response: extractionOK},
		{response: synthesisOK},
	}}
	p, _ := newTestPipeline(t, gen, "The quick brown fox jumps over the lazy dog.")

	answer, err := p.Ask(context.Background(), "what does the fox do?", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Confidence != model.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", answer.Confidence)
	}
	if len(answer.Facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(answer.Facts))
	}
	if answer.Facts[0].SourceID != "doc1" {
		t.Errorf("fact cites %s, want doc1", answer.Facts[0].SourceID)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls)
	}
}

func TestAsk_EmptyCorpusInsufficient(t *testing.T) {
	gen := &scriptedGenerator{steps: []generatorStep{{response: extractionOK}}}
	p, _ := newTestPipeline(t, gen)

	answer, err := p.Ask(context.Background(), "anything at all", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Confidence != model.ConfidenceLow {
		t.Errorf("confidence = %s, want low", answer.Confidence)
	}
	if len(answer.Unknowns) == 0 {
		t.Error("degraded answer has no unknowns")
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times for empty corpus", gen.calls)
	}
}

func TestAsk_UsageErrorsSurface(t *testing.T) {
	gen := &scriptedGenerator{steps: []generatorStep{{response: extractionOK}}}
	p, _ := newTestPipeline(t, gen, "some text")

	if _, err := p.Ask(context.Background(), "   ", 3); !errors.Is(err, search.ErrEmptyQuery) {
		t.Errorf("blank query: got %v, want ErrEmptyQuery", err)
	}
}

func TestAsk_NonPositiveTopKRejected(t *testing.T) {
	gen := &scriptedGenerator{steps: []generatorStep{{response: extractionOK}}}
	p, _ := newTestPipeline(t, gen, "The quick brown fox jumps over the lazy dog.")

	for _, k := range []int{0, -1} {
		if _, err := p.Ask(context.Background(), "fox", k); !errors.Is(err, search.ErrInvalidTopK) {
			t.Errorf("k=%d: got %v, want ErrInvalidTopK", k, err)
		}
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times for rejected k", gen.calls)
	}
}

func TestAsk_TransientRetryThenSuccess(t *testing.T) {
	gen := &scriptedGenerator{steps: []generatorStep{
		{err: transientErr},
		{response: extractionOK},
		{response: synthesisOK},
	}}
	p, _ := newTestPipeline(t, gen, "The quick brown fox jumps over the lazy dog.")

	var slept []time.Duration
	p.sleep = func(d time.Duration) { slept = append(slept, d) }

	answer, err := p.Ask(context.Background(), "fox", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Confidence != model.ConfidenceHigh {
		t.Errorf("confidence = %s, want high after retry", answer.Confidence)
	}
	if len(slept) != 1 {
		t.Errorf("slept %d times, want 1", len(slept))
	}
}

func TestAsk_RetriesExhaustedDegrades(t *testing.T) {
	gen := &scriptedGenerator{steps: []generatorStep{{err: transientErr}}}
	p, cfg := newTestPipeline(t, gen, "The quick brown fox jumps over the lazy dog.")

	answer, err := p.Ask(context.Background(), "fox", 3)
	if err != nil {
		t.Fatalf("exhausted retries propagated instead of degrading: %v", err)
	}
	if answer.Confidence != model.ConfidenceLow {
		t.Errorf("confidence = %s, want low", answer.Confidence)
	}
	found := false
	for _, u := range answer.Unknowns {
		if strings.Contains(u, "unavailable") {
			found = true
		}
	}
	if !found {
		t.Errorf("degraded answer does not note unavailability: %v", answer.Unknowns)
	}
	if want := cfg.Extraction.MaxRetries + 1; gen.calls != want {
		t.Errorf("generator called %d times, want %d", gen.calls, want)
	}
}

func TestAsk_NonTransientNotRetried(t *testing.T) {
	fatal := &llm.Error{Provider: "scripted", StatusCode: 400, Message: "invalid request"}
	gen := &scriptedGenerator{steps: []generatorStep{{err: fatal}}}
	p, _ := newTestPipeline(t, gen, "The quick brown fox jumps over the lazy dog.")

	if _, err := p.Ask(context.Background(), "fox", 3); err != nil {
		t.Fatalf("non-transient failure propagated instead of degrading: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want 1 (no retry)", gen.calls)
	}
}

func TestAsk_CacheRoundTrip(t *testing.T) {
	gen := &scriptedGenerator{steps: []generatorStep{
		{response: extractionOK},
		{response: synthesisOK},
	}}
	p, _ := newTestPipeline(t, gen, "The quick brown fox jumps over the lazy dog.")
	p.answerCache = cache.NewMemoryCache(time.Minute, time.Minute)

	first, err := p.Ask(context.Background(), "fox", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	callsAfterFirst := gen.calls

	second, err := p.Ask(context.Background(), "fox", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != callsAfterFirst {
		t.Errorf("cached answer still hit the generator (%d calls)", gen.calls-callsAfterFirst)
	}
	if second.Summary != first.Summary || second.Confidence != first.Confidence {
		t.Errorf("cached answer differs: %+v vs %+v", second, first)
	}
}

func TestAsk_CacheKeyedOnIndexFingerprint(t *testing.T) {
	gen := &scriptedGenerator{steps: []generatorStep{
		{response: extractionOK},
		{response: synthesisOK},
	}}
	p, _ := newTestPipeline(t, gen, "The quick brown fox jumps over the lazy dog.")
	p.answerCache = cache.NewMemoryCache(time.Minute, time.Minute)

	if _, err := p.Ask(context.Background(), "fox", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	callsAfterFirst := gen.calls

	// Rebuilding the index changes the fingerprint; the cached answer for
	// the old corpus must not be served
	p.idx.Build([]model.Chunk{
		{SourceID: "doc1", Ordinal: 0, Text: "The quick brown fox jumps over the lazy dog. Updated."},
	})
	if _, err := p.Ask(context.Background(), "fox", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls == callsAfterFirst {
		t.Error("stale answer served after index rebuild")
	}
}

func TestCandidates_RetrievalOnly(t *testing.T) {
	gen := &scriptedGenerator{steps: []generatorStep{{response: extractionOK}}}
	p, _ := newTestPipeline(t, gen,
		"The quick brown fox jumps over the lazy dog.",
		"Bananas are rich in potassium.")

	got, err := p.Candidates("quick fox", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Position != 0 {
		t.Errorf("top candidate is position %d, want 0", got[0].Position)
	}
	if gen.calls != 0 {
		t.Errorf("retrieval-only path called the generator %d times", gen.calls)
	}
}
