package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Fact is a single atomic claim backed by a verbatim quotation from
// exactly one source chunk. Immutable once produced.
type Fact struct {
	Claim    string `json:"claim"`             // The atomic claim text
	Quote    string `json:"quote"`             // Verbatim quotation from the cited chunk
	SourceID string `json:"source_id"`         // Cited document identifier
	Ordinal  int    `json:"ordinal,omitempty"` // Cited chunk ordinal within the document
}

// Confidence is an ordered answer confidence level: low < medium < high
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParseConfidence maps a generated confidence label onto the enum.
// Anything unrecognized collapses to low rather than being trusted.
func ParseConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return ConfidenceHigh
	case "medium", "med":
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MarshalJSON renders the confidence as its label
func (c Confidence) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON parses a confidence label
func (c *Confidence) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = ParseConfidence(s)
	return nil
}

// Answer is the final structured output of the answering pipeline.
//
// Invariants enforced at construction time, never left to the generation
// capability: high confidence requires at least one fact, and an empty
// retrieval always yields a low-confidence "insufficient information"
// answer instead of a fabricated claim.
type Answer struct {
	Query       string     `json:"query"`
	Summary     string     `json:"summary"`
	Confidence  Confidence `json:"confidence"`
	Facts       []Fact     `json:"facts"`
	Unknowns    []string   `json:"unknowns"`
	FollowUps   []string   `json:"follow_ups,omitempty"` // Suggested next steps when confidence < high
	Provider    string     `json:"provider,omitempty"`   // Generation provider that produced the answer
	Model       string     `json:"model,omitempty"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// InsufficientAnswer builds the canonical degraded answer for a query
// that retrieval could not support.
func InsufficientAnswer(query string, unknowns ...string) *Answer {
	if len(unknowns) == 0 {
		unknowns = []string{"no relevant passages found in the indexed corpus"}
	}
	return &Answer{
		Query:       query,
		Summary:     "Insufficient information in the indexed corpus to answer this question.",
		Confidence:  ConfidenceLow,
		Facts:       []Fact{},
		Unknowns:    unknowns,
		GeneratedAt: time.Now().UTC(),
	}
}
