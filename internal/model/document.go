package model

import (
	"strconv"
	"time"
)

// Document is a single ingested source text
type Document struct {
	SourceID   string    `json:"source_id"`   // Stable identifier (filename/path)
	Text       string    `json:"text"`        // Raw extracted text, immutable once ingested
	IngestedAt time.Time `json:"ingested_at"` // When ingestion occurred
}

// Chunk is one indexable paragraph of a document.
// Ordinals are dense and zero-based within each document.
type Chunk struct {
	SourceID string   `json:"source_id"`        // Parent document identifier (non-owning)
	Ordinal  int      `json:"ordinal"`          // Position within the document (0-based)
	Text     string   `json:"text"`             // Trimmed chunk text, immutable
	Tokens   []string `json:"tokens,omitempty"` // Cached token sequence
}

// Label returns the identifier used to cite this chunk in prompts
// and persisted facts, e.g. "notes.md#2".
func (c Chunk) Label() string {
	return c.SourceID + "#" + strconv.Itoa(c.Ordinal)
}

// Candidate is a transient per-query scoring tuple, never persisted
type Candidate struct {
	Chunk    Chunk   `json:"chunk"`
	Position int     `json:"position"` // Global index position, stable tie-break key
	BM25     float64 `json:"bm25_score"`
	Fuzzy    int     `json:"fuzzy_score"`    // 0-100
	Combined float64 `json:"combined_score"` // bm25 + fuzzy/divisor
}
