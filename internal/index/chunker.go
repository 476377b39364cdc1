package index

import (
	"strings"

	"github.com/skovand/lexica/internal/model"
)

// DefaultSeparator is the paragraph boundary used when none is configured:
// a blank line, i.e. two consecutive newlines.
const DefaultSeparator = "\n\n"

// Chunker splits document text into paragraph-bounded chunks
type Chunker struct {
	separator string
}

// NewChunker creates a chunker with the given paragraph separator.
// An empty separator falls back to DefaultSeparator.
func NewChunker(separator string) *Chunker {
	if separator == "" {
		separator = DefaultSeparator
	}
	return &Chunker{separator: separator}
}

// Chunk splits document text on the paragraph boundary. Each chunk is
// trimmed of surrounding whitespace; chunks empty after trimming are
// dropped. Joining the surviving chunks with the separator reconstructs
// a whitespace-normalized form of the input.
func (c *Chunker) Chunk(text string) []string {
	// Normalize Windows line endings so the blank-line boundary matches
	text = strings.ReplaceAll(text, "\r\n", "\n")

	parts := strings.Split(text, c.separator)
	chunks := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		chunks = append(chunks, trimmed)
	}
	return chunks
}

// ChunkDocuments converts ingested documents into indexable chunks with
// dense, zero-based ordinals per document and cached token sequences.
func (c *Chunker) ChunkDocuments(docs []model.Document) []model.Chunk {
	var chunks []model.Chunk
	for _, doc := range docs {
		for ordinal, text := range c.Chunk(doc.Text) {
			chunks = append(chunks, model.Chunk{
				SourceID: doc.SourceID,
				Ordinal:  ordinal,
				Text:     text,
				Tokens:   Tokenize(text),
			})
		}
	}
	return chunks
}
