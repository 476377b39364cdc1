package search

import (
	"errors"
	"reflect"
	"testing"

	"github.com/skovand/lexica/internal/index"
	"github.com/skovand/lexica/internal/model"
)

// the three-document corpus used across ranking tests
var rankingCorpus = []string{
	"The quick brown fox jumps over the lazy dog",
	"Never jump over the lazy dog quickly",
	"A quick brown dog outpaces a quick fox",
}

func newTestRetriever(t *testing.T, texts ...string) *Retriever {
	t.Helper()

	chunks := make([]model.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = model.Chunk{SourceID: "doc" + string(rune('1'+i)), Ordinal: 0, Text: text}
	}

	idx := index.NewLexicalIndex(1.5, 0.75)
	idx.Build(chunks)
	return NewRetriever(idx, model.DefaultConfig().Retrieval)
}

func TestRetriever_UsageErrors(t *testing.T) {
	r := newTestRetriever(t, rankingCorpus...)

	if _, err := r.Retrieve("quick fox", 0); !errors.Is(err, ErrInvalidTopK) {
		t.Errorf("k=0: got %v, want ErrInvalidTopK", err)
	}
	if _, err := r.Retrieve("quick fox", -3); !errors.Is(err, ErrInvalidTopK) {
		t.Errorf("k=-3: got %v, want ErrInvalidTopK", err)
	}
	if _, err := r.Retrieve("   ", 5); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("blank query: got %v, want ErrEmptyQuery", err)
	}
}

func TestRetriever_EmptyCorpus(t *testing.T) {
	r := newTestRetriever(t)

	got, err := r.Retrieve("anything", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty corpus returned %d candidates", len(got))
	}
}

func TestRetriever_KExceedsCorpus(t *testing.T) {
	r := newTestRetriever(t, rankingCorpus...)

	got, err := r.Retrieve("quick fox", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(rankingCorpus) {
		t.Errorf("got %d candidates, want all %d", len(got), len(rankingCorpus))
	}
}

func TestRetriever_ExactQueryRanking(t *testing.T) {
	// "quick fox": documents 1 and 3 contain both terms; document 2
	// contains neither ("jump", not "jumps"; no "fox") and must rank last
	r := newTestRetriever(t, rankingCorpus...)

	got, err := r.Retrieve("quick fox", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}

	if got[2].Position != 1 {
		t.Errorf("document 2 ranked at %d, want last", indexOf(got, 1))
	}
	for _, c := range got[:2] {
		if c.Position == 1 {
			t.Error("document 2 in top two")
		}
	}
}

func TestRetriever_TypoQueryFuzzyRescue(t *testing.T) {
	// "qick fox": BM25 only matches "fox"; fuzzy re-ranking must keep
	// documents 1 and 3 above an unrelated filler document
	corpus := append(append([]string{}, rankingCorpus...),
		"Bananas are rich in potassium and thrive in tropical climates")
	r := newTestRetriever(t, corpus...)

	got, err := r.Retrieve("qick fox", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fillerRank := indexOf(got, 3)
	doc1Rank := indexOf(got, 0)
	doc3Rank := indexOf(got, 2)
	if doc1Rank < 0 || doc3Rank < 0 {
		t.Fatalf("documents 1/3 missing from results: %+v", got)
	}
	if fillerRank >= 0 && (fillerRank < doc1Rank || fillerRank < doc3Rank) {
		t.Errorf("filler ranked %d above docs 1 (%d) or 3 (%d)", fillerRank, doc1Rank, doc3Rank)
	}
}

func TestRetriever_Deterministic(t *testing.T) {
	r := newTestRetriever(t, rankingCorpus...)

	first, err := r.Retrieve("quick brown dog", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := r.Retrieve("quick brown dog", 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestRetriever_CombinedScoreComposition(t *testing.T) {
	r := newTestRetriever(t, rankingCorpus...)

	got, err := r.Retrieve("quick fox", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range got {
		want := c.BM25 + float64(c.Fuzzy)/20.0
		if c.Combined != want {
			t.Errorf("candidate %d: combined = %v, want %v", c.Position, c.Combined, want)
		}
		if c.Fuzzy < 0 || c.Fuzzy > 100 {
			t.Errorf("candidate %d: fuzzy %d out of range", c.Position, c.Fuzzy)
		}
	}

	// Descending by combined score
	for i := 1; i < len(got); i++ {
		if got[i-1].Combined < got[i].Combined {
			t.Errorf("results not sorted at %d: %v < %v", i, got[i-1].Combined, got[i].Combined)
		}
	}
}

func indexOf(candidates []model.Candidate, position int) int {
	for i, c := range candidates {
		if c.Position == position {
			return i
		}
	}
	return -1
}
