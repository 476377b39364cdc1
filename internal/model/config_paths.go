package model

import (
	"os"
	"path/filepath"
)

// defaultCacheDir resolves the answer cache directory, falling back to a
// temp directory when the home directory is unavailable.
func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "lexica-cache")
	}
	return filepath.Join(home, ".lexica", "cache")
}
