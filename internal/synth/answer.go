// Package synth produces the final structured answer from validated
// facts. It never sees raw chunk text again: synthesis works only from
// what the extraction stage already proved quotable.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skovand/lexica/internal/llm"
	"github.com/skovand/lexica/internal/model"
)

const synthesisSystem = `You write a final answer from already-validated facts.

RULES:
1. Use ONLY the facts below. Do not introduce new claims.
2. Acknowledge the listed unknowns; do not paper over them.
3. Set confidence: "high" only when the facts fully answer the question,
   "medium" for partial coverage, "low" otherwise.
4. If confidence is not "high", suggest concrete follow-up actions.
5. Respond with JSON only, matching:
{"summary":"...","confidence":"low|medium|high","follow_ups":["..."]}`

// synthesisPayload mirrors the JSON the generation capability is asked for
type synthesisPayload struct {
	Summary    string   `json:"summary"`
	Confidence string   `json:"confidence"`
	FollowUps  []string `json:"follow_ups"`
}

// Synthesizer builds the final Answer from extracted facts
type Synthesizer struct {
	generator llm.Generator
	logger    *slog.Logger
}

// NewSynthesizer creates an answer synthesizer
func NewSynthesizer(generator llm.Generator) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		logger:    slog.Default().With("component", "synthesizer"),
	}
}

// Synthesize asks the generation capability for a summary, confidence
// and follow-ups, then enforces the Answer invariants regardless of what
// came back: zero facts always means low confidence.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, facts []model.Fact, unknowns []string) (*model.Answer, error) {
	raw, err := s.generator.Generate(ctx, synthesisSystem, buildUserContent(query, facts, unknowns))
	if err != nil {
		return nil, err
	}

	payload, err := decodePayload(raw)
	if err != nil {
		return nil, &llm.Error{
			Provider:  s.generator.Name(),
			Message:   "malformed synthesis response: " + err.Error(),
			Transient: true,
		}
	}

	confidence := model.ParseConfidence(payload.Confidence)
	if len(facts) == 0 && confidence != model.ConfidenceLow {
		// Invariant over trust: no facts, no confidence
		s.logger.Warn("downgrading confidence, no validated facts",
			"claimed", payload.Confidence)
		confidence = model.ConfidenceLow
	}

	summary := strings.TrimSpace(payload.Summary)
	if summary == "" {
		summary = "Insufficient information in the indexed corpus to answer this question."
		confidence = model.ConfidenceLow
	}

	answer := &model.Answer{
		Query:       query,
		Summary:     summary,
		Confidence:  confidence,
		Facts:       facts,
		Unknowns:    unknowns,
		Provider:    s.generator.Name(),
		GeneratedAt: time.Now().UTC(),
	}
	if confidence < model.ConfidenceHigh {
		answer.FollowUps = payload.FollowUps
	}
	return answer, nil
}

// buildUserContent lays out the question, numbered facts with their
// citations, and the unknowns list.
func buildUserContent(query string, facts []model.Fact, unknowns []string) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(query)

	b.WriteString("\n\nValidated facts:\n")
	if len(facts) == 0 {
		b.WriteString("(none)\n")
	}
	for i, f := range facts {
		fmt.Fprintf(&b, "%d. %s\n   quote: %q (source: %s#%d)\n", i+1, f.Claim, f.Quote, f.SourceID, f.Ordinal)
	}

	b.WriteString("\nUnknowns:\n")
	if len(unknowns) == 0 {
		b.WriteString("(none)\n")
	}
	for _, u := range unknowns {
		fmt.Fprintf(&b, "- %s\n", u)
	}
	return b.String()
}
