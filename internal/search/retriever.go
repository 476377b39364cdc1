// Package search orchestrates hybrid retrieval: BM25 candidate
// generation widened beyond the requested k, then fuzzy re-ranking.
package search

import (
	"errors"
	"sort"
	"strings"

	"github.com/skovand/lexica/internal/index"
	"github.com/skovand/lexica/internal/model"
	"github.com/skovand/lexica/internal/rank"
)

// Usage errors: caller mistakes rejected synchronously, never retried.
var (
	ErrInvalidTopK = errors.New("top-k must be positive")
	ErrEmptyQuery  = errors.New("query must not be empty")
)

// Retriever ranks indexed chunks against a query
type Retriever struct {
	index          *index.LexicalIndex
	poolMultiplier int
	fuzzyDivisor   float64
}

// NewRetriever creates a retriever over the given index. Zero config
// fields fall back to the stock pool multiplier (3) and fuzzy divisor (20).
func NewRetriever(idx *index.LexicalIndex, cfg model.RetrievalConfig) *Retriever {
	multiplier := cfg.PoolMultiplier
	if multiplier <= 0 {
		multiplier = 3
	}
	divisor := cfg.FuzzyDivisor
	if divisor <= 0 {
		divisor = 20.0
	}
	return &Retriever{
		index:          idx,
		poolMultiplier: multiplier,
		fuzzyDivisor:   divisor,
	}
}

// Retrieve returns up to k candidates ordered by descending combined
// score, ties broken by index position. An empty corpus yields an empty
// result, not an error; k exceeding the corpus returns everything ranked.
func (r *Retriever) Retrieve(query string, k int) ([]model.Candidate, error) {
	if k <= 0 {
		return nil, ErrInvalidTopK
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	queryTokens := index.Tokenize(query)
	scores := r.index.GetScores(queryTokens)
	if len(scores) == 0 {
		return []model.Candidate{}, nil
	}

	chunks := r.index.Chunks()

	// Rank every chunk by BM25, stable tie-break by position
	positions := make([]int, len(scores))
	for i := range positions {
		positions[i] = i
	}
	sort.SliceStable(positions, func(a, b int) bool {
		if scores[positions[a]] != scores[positions[b]] {
			return scores[positions[a]] > scores[positions[b]]
		}
		return positions[a] < positions[b]
	})

	// Widen the net: fuzzy re-ranking rescues near-miss tokens that BM25
	// scored at or near zero
	poolSize := r.poolMultiplier * k
	if poolSize > len(positions) {
		poolSize = len(positions)
	}

	candidates := make([]model.Candidate, 0, poolSize)
	for _, pos := range positions[:poolSize] {
		fuzzy := rank.TokenSortRatio(query, chunks[pos].Text)
		candidates = append(candidates, model.Candidate{
			Chunk:    chunks[pos],
			Position: pos,
			BM25:     scores[pos],
			Fuzzy:    fuzzy,
			Combined: scores[pos] + float64(fuzzy)/r.fuzzyDivisor,
		})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].Combined != candidates[b].Combined {
			return candidates[a].Combined > candidates[b].Combined
		}
		return candidates[a].Position < candidates[b].Position
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}
