package index

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/skovand/lexica/internal/model"
)

func TestPersist_RoundTrip(t *testing.T) {
	idx := buildIndex(t, "the quick fox", "the lazy dog")
	path := filepath.Join(t.TempDir(), "index.json")

	if err := Save(idx, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !reflect.DeepEqual(loaded.Chunks(), idx.Chunks()) {
		t.Error("chunks differ after round trip")
	}
	if !reflect.DeepEqual(loaded.Stats(), idx.Stats()) {
		t.Error("stats differ after round trip")
	}
	if loaded.Fingerprint() != idx.Fingerprint() {
		t.Error("fingerprint differs after round trip")
	}

	// Loaded index scores identically without re-tokenizing
	query := Tokenize("quick dog")
	if !reflect.DeepEqual(loaded.GetScores(query), idx.GetScores(query)) {
		t.Error("loaded index scores differ from original")
	}
}

func TestPersist_TokenLessChunkSurvivesRoundTrip(t *testing.T) {
	// A Markdown horizontal rule between blank lines chunks into a
	// punctuation-only paragraph with no tokens. That is valid input;
	// persisting and reloading it must not be treated as corruption.
	doc := model.Document{
		SourceID: "notes.md",
		Text:     "First paragraph about foxes.\n\n---\n\nSecond paragraph about dogs.",
	}
	chunks := NewChunker(DefaultSeparator).ChunkDocuments([]model.Document{doc})
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	idx := NewLexicalIndex(1.5, 0.75)
	idx.Build(chunks)
	path := filepath.Join(t.TempDir(), "index.json")

	if err := Save(idx, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	scores := loaded.GetScores(Tokenize("foxes"))
	if len(scores) != 3 {
		t.Fatalf("got %d scores, want 3", len(scores))
	}
	if scores[0] <= 0 {
		t.Errorf("first paragraph scored %v, want positive", scores[0])
	}
	if scores[1] != 0 {
		t.Errorf("token-less paragraph scored %v, want 0", scores[1])
	}
}

func TestPersist_VersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	writeBundle(t, path, map[string]any{
		"version": 99,
		"chunks":  []any{},
		"stats":   map[string]any{"doc_freq": map[string]int{}, "chunk_count": 0, "avg_chunk_len": 0},
	})

	_, err := Load(path)
	if !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex for version mismatch, got %v", err)
	}
}

func TestPersist_InconsistentStats(t *testing.T) {
	cases := []struct {
		name  string
		stats map[string]any
	}{
		{
			name:  "count mismatch",
			stats: map[string]any{"doc_freq": map[string]int{"fox": 1}, "chunk_count": 5, "avg_chunk_len": 2},
		},
		{
			name:  "zero avgdl with chunks",
			stats: map[string]any{"doc_freq": map[string]int{"fox": 1}, "chunk_count": 1, "avg_chunk_len": 0},
		},
		{
			name:  "doc freq exceeds count",
			stats: map[string]any{"doc_freq": map[string]int{"fox": 7}, "chunk_count": 1, "avg_chunk_len": 2},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "index.json")
			writeBundle(t, path, map[string]any{
				"version": BundleVersion,
				"chunks": []any{
					map[string]any{"source_id": "a", "ordinal": 0, "text": "fox jumps", "tokens": []string{"fox", "jumps"}},
				},
				"stats": tc.stats,
			})

			if _, err := Load(path); !errors.Is(err, ErrCorruptIndex) {
				t.Errorf("expected ErrCorruptIndex, got %v", err)
			}
		})
	}
}

func TestPersist_MissingTokenSequence(t *testing.T) {
	// Tokenizable text without a persisted token sequence is corruption
	path := filepath.Join(t.TempDir(), "index.json")
	writeBundle(t, path, map[string]any{
		"version": BundleVersion,
		"chunks": []any{
			map[string]any{"source_id": "a", "ordinal": 0, "text": "fox jumps"},
		},
		"stats": map[string]any{"doc_freq": map[string]int{"fox": 1, "jumps": 1}, "chunk_count": 1, "avg_chunk_len": 2},
	})

	if _, err := Load(path); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestPersist_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("expected ErrCorruptIndex for malformed JSON, got %v", err)
	}
}

func TestPersist_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func writeBundle(t *testing.T, path string, bundle map[string]any) {
	t.Helper()
	data, err := json.Marshal(bundle)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}
