package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
)

// Store persists retrieved lineage records as a single JSON document
// keyed by dataset directory name.
//
// The file is deliberately plain JSON so it stays readable and editable by
// hand, and so the training notebooks can load it directly.
type Store struct {
	// Path is the JSON file location.
	Path string
}

// NewStore creates a store backed by the given file.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load reads the cached records. A missing file is not an error: it
// returns an empty map, the state before any sync has run.
func (s *Store) Load() (map[string]*Taxon, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Taxon), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}

	records := make(map[string]*Taxon)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.Path, err)
	}

	return records, nil
}

// Save writes the full record set back to the file.
func (s *Store) Save(records map[string]*Taxon) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode taxonomy data: %w", err)
	}

	if err := os.WriteFile(s.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Path, err)
	}

	return nil
}
