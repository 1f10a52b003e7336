// Package assets serves the job's local image files: reads for the inline
// fill path and a small HTTP server the remote tool fetches URL fills from.
package assets

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/posterforge/internal/types"
)

// Store reads assets from a flat directory, keyed by file name.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path maps an asset id to its file path, rejecting ids that try to escape
// the asset directory.
func (s *Store) Path(id types.AssetID) (string, error) {
	name := string(id)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid asset id %q", id)
	}
	return filepath.Join(s.dir, name), nil
}

// Read returns the asset's bytes and mime type.
func (s *Store) Read(id types.AssetID) ([]byte, string, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read asset %s: %w", id, err)
	}
	return data, mimeType(path), nil
}

func mimeType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
