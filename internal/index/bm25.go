package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/skovand/lexica/internal/model"
)

// TermStatistics holds corpus-level state. Mutated only during index
// builds; read-only during queries.
type TermStatistics struct {
	DocFreq     map[string]int `json:"doc_freq"`      // Chunks containing each term at least once
	ChunkCount  int            `json:"chunk_count"`   // N
	AvgChunkLen float64        `json:"avg_chunk_len"` // avgdl, in tokens
}

// snapshot is one immutable published index state. Builds construct a
// fresh snapshot off to the side and publish it with a single pointer
// swap, so concurrent readers never observe a partial index.
type snapshot struct {
	chunks      []model.Chunk
	stats       TermStatistics
	fingerprint string
}

// LexicalIndex is a BM25 index over a chunked corpus. Queries are
// lock-free; Build replaces all state atomically.
type LexicalIndex struct {
	k1      float64
	b       float64
	current atomic.Pointer[snapshot]
	logger  *slog.Logger
}

// NewLexicalIndex creates an empty index with the given BM25 parameters.
// Non-positive k1 or out-of-range b fall back to the stock 1.5 / 0.75.
func NewLexicalIndex(k1, b float64) *LexicalIndex {
	if k1 <= 0 {
		k1 = 1.5
	}
	if b < 0 || b >= 1 {
		b = 0.75
	}
	idx := &LexicalIndex{
		k1:     k1,
		b:      b,
		logger: slog.Default().With("component", "index"),
	}
	idx.current.Store(&snapshot{stats: TermStatistics{DocFreq: map[string]int{}}})
	return idx
}

// Build tokenizes the chunks, computes term statistics and publishes the
// new state atomically. Chunks arriving with a cached token sequence keep
// it; the rest are tokenized here.
func (idx *LexicalIndex) Build(chunks []model.Chunk) {
	snap := &snapshot{
		chunks: make([]model.Chunk, len(chunks)),
		stats:  TermStatistics{DocFreq: make(map[string]int)},
	}

	totalTokens := 0
	for i, c := range chunks {
		if c.Tokens == nil {
			c.Tokens = Tokenize(c.Text)
		}
		snap.chunks[i] = c
		totalTokens += len(c.Tokens)

		seen := make(map[string]struct{}, len(c.Tokens))
		for _, tok := range c.Tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			snap.stats.DocFreq[tok]++
		}
	}

	snap.stats.ChunkCount = len(chunks)
	if len(chunks) > 0 {
		snap.stats.AvgChunkLen = float64(totalTokens) / float64(len(chunks))
	}
	snap.fingerprint = fingerprint(snap.chunks, snap.stats)

	idx.current.Store(snap)
}

// Stats returns the published term statistics
func (idx *LexicalIndex) Stats() TermStatistics {
	return idx.current.Load().stats
}

// Chunks returns the published chunk list in index order
func (idx *LexicalIndex) Chunks() []model.Chunk {
	return idx.current.Load().chunks
}

// Fingerprint identifies the published corpus state; it changes whenever
// the index is rebuilt with different content.
func (idx *LexicalIndex) Fingerprint() string {
	return idx.current.Load().fingerprint
}

// GetScores computes the BM25 score of every chunk for the already
// tokenized query, including zero-scoring chunks, in index order.
// Querying an empty index returns an empty slice.
func (idx *LexicalIndex) GetScores(queryTokens []string) []float64 {
	snap := idx.current.Load()
	scores := make([]float64, len(snap.chunks))
	if len(snap.chunks) == 0 {
		return scores
	}

	terms := distinctTerms(queryTokens)

	for i, c := range snap.chunks {
		if c.Tokens == nil && len(Tokenize(c.Text)) > 0 {
			// Invariant violation: tokenizable text without a token
			// sequence. Exclude from scoring rather than crashing the
			// query. Token-less chunks score zero like any non-match.
			idx.logger.Warn("chunk has no token sequence, excluded from scoring",
				"source", c.SourceID, "ordinal", c.Ordinal)
			continue
		}
		scores[i] = idx.scoreChunk(terms, c, snap.stats)
	}
	return scores
}

// Score computes the BM25 score of a single chunk for the query terms
func (idx *LexicalIndex) Score(queryTokens []string, chunk model.Chunk) float64 {
	return idx.scoreChunk(distinctTerms(queryTokens), chunk, idx.current.Load().stats)
}

// distinctTerms deduplicates query tokens preserving arrival order, so
// repeated terms do not double-count and term contributions always
// accumulate in the same order. Float addition is not associative;
// summing in map iteration order would make scores vary between runs.
func distinctTerms(queryTokens []string) []string {
	seen := make(map[string]struct{}, len(queryTokens))
	terms := make([]string, 0, len(queryTokens))
	for _, t := range queryTokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return terms
}

func (idx *LexicalIndex) scoreChunk(terms []string, chunk model.Chunk, stats TermStatistics) float64 {
	if stats.ChunkCount == 0 || stats.AvgChunkLen == 0 {
		return 0
	}

	var freq map[string]int
	chunkLen := float64(len(chunk.Tokens))

	score := 0.0
	for _, term := range terms {
		if freq == nil {
			freq = make(map[string]int, len(chunk.Tokens))
			for _, tok := range chunk.Tokens {
				freq[tok]++
			}
		}
		f := float64(freq[term])
		if f == 0 {
			continue
		}
		// Denominator stays positive: f + k1*(1-b) > 0 for k1>0, b<1
		denom := f + idx.k1*(1-idx.b+idx.b*chunkLen/stats.AvgChunkLen)
		score += idx.idf(term, stats) * (f * (idx.k1 + 1)) / denom
	}
	return score
}

// idf computes ln((N - n + 0.5)/(n + 0.5) + 1). Well-defined and positive
// for every n in [0, N], including terms absent from the corpus (n=0).
func (idx *LexicalIndex) idf(term string, stats TermStatistics) float64 {
	n := float64(stats.DocFreq[term])
	N := float64(stats.ChunkCount)
	return math.Log((N-n+0.5)/(n+0.5) + 1)
}

// fingerprint hashes the corpus identity: chunk labels, text lengths and
// the aggregate stats.
func fingerprint(chunks []model.Chunk, stats TermStatistics) string {
	h := sha256.New()
	fmt.Fprintf(h, "n=%d avgdl=%.6f\n", stats.ChunkCount, stats.AvgChunkLen)
	for _, c := range chunks {
		fmt.Fprintf(h, "%s#%d:%d\n", c.SourceID, c.Ordinal, len(c.Text))
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
