package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/skovand/lexica/internal/model"
)

// BundleVersion tags the persisted index format. Bundles with any other
// version are rejected at load time rather than silently misread.
const BundleVersion = 1

// ErrCorruptIndex marks a persisted bundle that failed structural
// validation. Fatal: the caller must not serve queries against it.
var ErrCorruptIndex = errors.New("corrupt index bundle")

// bundle is the on-disk index layout: enough to reconstruct the
// LexicalIndex without re-tokenizing.
type bundle struct {
	Version int            `json:"version"`
	BuiltAt time.Time      `json:"built_at"`
	K1      float64        `json:"k1"`
	B       float64        `json:"b"`
	Chunks  []model.Chunk  `json:"chunks"`
	Stats   TermStatistics `json:"stats"`
}

// Save writes the published index state to path as a versioned JSON bundle
func Save(idx *LexicalIndex, path string) error {
	b := bundle{
		Version: BundleVersion,
		BuiltAt: time.Now().UTC(),
		K1:      idx.k1,
		B:       idx.b,
		Chunks:  idx.Chunks(),
		Stats:   idx.Stats(),
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index bundle: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write index bundle: %w", err)
	}
	return nil
}

// Load reads a persisted bundle and reconstructs the index without
// re-tokenizing. Version mismatch or structural inconsistency is
// surfaced as ErrCorruptIndex.
func Load(path string) (*LexicalIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index bundle: %w", err)
	}

	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}

	if b.Version != BundleVersion {
		return nil, fmt.Errorf("%w: unsupported version %d (want %d)", ErrCorruptIndex, b.Version, BundleVersion)
	}
	if err := validateBundle(&b); err != nil {
		return nil, err
	}

	idx := NewLexicalIndex(b.K1, b.B)
	idx.restore(b.Chunks, b.Stats)
	return idx, nil
}

// validateBundle checks the structural invariants of a loaded bundle
func validateBundle(b *bundle) error {
	if b.Stats.ChunkCount != len(b.Chunks) {
		return fmt.Errorf("%w: stats count %d does not match %d chunks", ErrCorruptIndex, b.Stats.ChunkCount, len(b.Chunks))
	}
	if len(b.Chunks) > 0 && b.Stats.AvgChunkLen <= 0 {
		return fmt.Errorf("%w: non-positive average chunk length with %d chunks", ErrCorruptIndex, len(b.Chunks))
	}
	for term, df := range b.Stats.DocFreq {
		if df > b.Stats.ChunkCount {
			return fmt.Errorf("%w: document frequency %d for %q exceeds chunk count %d", ErrCorruptIndex, df, term, b.Stats.ChunkCount)
		}
	}
	for i, c := range b.Chunks {
		if c.Text == "" {
			return fmt.Errorf("%w: empty chunk text at position %d", ErrCorruptIndex, i)
		}
		// A nil token sequence is only corruption when the text would
		// actually tokenize: token-less chunks (a "---" rule, bare
		// punctuation) legitimately persist with no tokens field.
		if c.Tokens == nil && len(Tokenize(c.Text)) > 0 {
			return fmt.Errorf("%w: chunk %s has no token sequence", ErrCorruptIndex, c.Label())
		}
	}
	return nil
}

// restore publishes an already-computed state, used when loading bundles
func (idx *LexicalIndex) restore(chunks []model.Chunk, stats TermStatistics) {
	if stats.DocFreq == nil {
		stats.DocFreq = map[string]int{}
	}
	idx.current.Store(&snapshot{
		chunks:      chunks,
		stats:       stats,
		fingerprint: fingerprint(chunks, stats),
	})
}
