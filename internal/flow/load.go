// internal/flow/load.go
package flow

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/user/posterforge/internal/types"
)

// LoadDoc reads and parses a content input file.
func LoadDoc(path string) (*types.ContentDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}
	var doc types.ContentDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse content file %s: %w", path, err)
	}
	if len(doc.Blocks) == 0 {
		return nil, fmt.Errorf("content file %s has no blocks", path)
	}
	return &doc, nil
}
