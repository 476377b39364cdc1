// Package ingest is the document-extraction boundary: it turns local
// files into (source identifier, raw text) pairs for indexing. The
// retrieval core never sees original file formats.
package ingest

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skovand/lexica/internal/model"
)

// Loader reads supported files from disk
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader
func NewLoader() *Loader {
	return &Loader{
		logger: slog.Default().With("component", "ingest"),
	}
}

// supported maps file extensions to whether they need HTML stripping
var supported = map[string]bool{
	".txt":      false,
	".md":       false,
	".markdown": false,
	".html":     true,
	".htm":      true,
}

// LoadDir walks root and loads every supported file. Source identifiers
// are paths relative to root. Unreadable files are logged and skipped
// rather than failing the whole ingestion.
func (l *Loader) LoadDir(root string) ([]model.Document, error) {
	var docs []model.Document

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := supported[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		doc, loadErr := l.LoadFile(path)
		if loadErr != nil {
			l.logger.Warn("skipping unreadable file", "path", path, "err", loadErr)
			return nil
		}

		if rel, relErr := filepath.Rel(root, path); relErr == nil {
			doc.SourceID = filepath.ToSlash(rel)
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return docs, nil
}

// LoadFile loads a single supported file
func (l *Loader) LoadFile(path string) (model.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	isHTML, ok := supported[ext]
	if !ok {
		return model.Document{}, fmt.Errorf("unsupported file type: %s", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, err
	}

	text := string(data)
	if isHTML {
		text, err = ExtractText(strings.NewReader(text))
		if err != nil {
			return model.Document{}, fmt.Errorf("extract html text: %w", err)
		}
	}

	return model.Document{
		SourceID:   filepath.ToSlash(path),
		Text:       text,
		IngestedAt: time.Now().UTC(),
	}, nil
}
