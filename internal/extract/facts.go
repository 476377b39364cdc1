// Package extract converts retrieved chunks into atomic, quotation-backed
// facts. Every fact passes a deterministic verbatim-quotation gate before
// it is trusted; the gate, not prompt wording, is the hallucination
// control.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skovand/lexica/internal/llm"
	"github.com/skovand/lexica/internal/model"
)

const extractionSystem = `You extract facts from supplied text passages to answer a question.

RULES:
1. Emit ONLY claims directly supported by the passages below.
2. Every claim must carry one verbatim quotation of at most %d words, copied exactly from a passage.
3. Cite the passage identifier (the [source: ...] label) for each quotation.
4. Any aspect of the question the passages do not answer goes in "unknowns" - never infer or guess.
5. Respond with JSON only, no prose, matching:
{"facts":[{"claim":"...","quote":"...","source":"..."}],"unknowns":["..."]}`

// factPayload mirrors the JSON the generation capability is asked for
type factPayload struct {
	Claim  string `json:"claim"`
	Quote  string `json:"quote"`
	Source string `json:"source"`
}

type extractionPayload struct {
	Facts    []factPayload `json:"facts"`
	Unknowns []string      `json:"unknowns"`
}

// Extractor turns candidates into validated facts via the generation
// capability.
type Extractor struct {
	generator    llm.Generator
	quoteWordCap int
	logger       *slog.Logger
}

// NewExtractor creates a fact extractor. A non-positive word cap falls
// back to 25.
func NewExtractor(generator llm.Generator, quoteWordCap int) *Extractor {
	if quoteWordCap <= 0 {
		quoteWordCap = 25
	}
	return &Extractor{
		generator:    generator,
		quoteWordCap: quoteWordCap,
		logger:       slog.Default().With("component", "extractor"),
	}
}

// Extract asks the generation capability for quotation-backed facts and
// validates each against its cited chunk. A fact whose quotation is not
// found verbatim (case-insensitive) in the cited chunk is discarded and
// its claim moved to unknowns rather than trusted.
//
// An empty candidate set short-circuits without any generation call.
func (e *Extractor) Extract(ctx context.Context, query string, candidates []model.Candidate) ([]model.Fact, []string, error) {
	if len(candidates) == 0 {
		return []model.Fact{}, []string{"no relevant passages found in the indexed corpus"}, nil
	}

	system := fmt.Sprintf(extractionSystem, e.quoteWordCap)
	user := buildUserContent(query, candidates)

	raw, err := e.generator.Generate(ctx, system, user)
	if err != nil {
		return nil, nil, err
	}

	payload, err := decodePayload(raw)
	if err != nil {
		// Unparseable structured output is a provider quality problem,
		// retried upstream like any transient failure
		return nil, nil, &llm.Error{
			Provider:  e.generator.Name(),
			Message:   "malformed extraction response: " + err.Error(),
			Transient: true,
		}
	}

	return e.validate(payload, candidates)
}

// validate applies the verbatim-quotation gate
func (e *Extractor) validate(payload *extractionPayload, candidates []model.Candidate) ([]model.Fact, []string, error) {
	facts := make([]model.Fact, 0, len(payload.Facts))
	unknowns := append([]string{}, payload.Unknowns...)

	for _, f := range payload.Facts {
		claim := strings.TrimSpace(f.Claim)
		quote := strings.TrimSpace(f.Quote)
		if claim == "" {
			continue
		}

		chunk, ok := resolveSource(f.Source, candidates)
		if !ok {
			e.logger.Warn("fact cites unknown source, moved to unknowns", "source", f.Source)
			unknowns = append(unknowns, claim)
			continue
		}

		if quote == "" || countWords(quote) > e.quoteWordCap {
			e.logger.Warn("fact quotation missing or over word cap, moved to unknowns",
				"source", f.Source, "words", countWords(quote))
			unknowns = append(unknowns, claim)
			continue
		}

		if !strings.Contains(strings.ToLower(chunk.Text), strings.ToLower(quote)) {
			e.logger.Warn("fact quotation not found verbatim in cited chunk, moved to unknowns",
				"source", f.Source)
			unknowns = append(unknowns, claim)
			continue
		}

		facts = append(facts, model.Fact{
			Claim:    claim,
			Quote:    quote,
			SourceID: chunk.SourceID,
			Ordinal:  chunk.Ordinal,
		})
	}

	return facts, unknowns, nil
}

// buildUserContent lays out the question and each candidate passage with
// its citation label.
func buildUserContent(query string, candidates []model.Candidate) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nPassages:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "\n[source: %s]\n%s\n", c.Chunk.Label(), c.Chunk.Text)
	}
	return b.String()
}

// resolveSource matches a cited source label back to a candidate chunk.
// Accepts the full "id#ordinal" label or a bare document identifier.
func resolveSource(source string, candidates []model.Candidate) (model.Chunk, bool) {
	source = strings.TrimSpace(source)
	for _, c := range candidates {
		if source == c.Chunk.Label() {
			return c.Chunk, true
		}
	}
	for _, c := range candidates {
		if source == c.Chunk.SourceID {
			return c.Chunk, true
		}
	}
	return model.Chunk{}, false
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
