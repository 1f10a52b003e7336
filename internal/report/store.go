// Package report persists one JSON file per run so an operator can inspect
// what each job created, skipped, and exported after the fact.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/user/posterforge/internal/types"
)

// Store writes run reports as individual JSON files under <root>/reports.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) reportsDir() string {
	return filepath.Join(s.root, "reports")
}

// Path returns the file path a run's report lives at.
func (s *Store) Path(id types.RunID) string {
	return filepath.Join(s.reportsDir(), string(id)+".json")
}

// Save writes the report atomically and returns its path.
func (s *Store) Save(id types.RunID, report any) (string, error) {
	if err := os.MkdirAll(s.reportsDir(), 0755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	path := s.Path(id)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename report: %w", err)
	}
	return path, nil
}

// Load reads one run's report into out.
func (s *Store) Load(id types.RunID, out any) error {
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal report: %w", err)
	}
	return nil
}

// List returns the stored run ids, sorted.
func (s *Store) List() ([]types.RunID, error) {
	entries, err := os.ReadDir(s.reportsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reports dir: %w", err)
	}
	var ids []types.RunID
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, types.RunID(name[:len(name)-len(".json")]))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
