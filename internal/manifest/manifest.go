package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hpungsan/arkiv/internal/errors"
)

// Collection describes one data file listed by a manifest.
type Collection struct {
	File        string         `json:"file"`
	Description string         `json:"description,omitempty"`
	RecordCount int            `json:"record_count,omitempty"`
	Schema      map[string]any `json:"schema,omitempty"`
}

// Manifest describes a set of JSONL files that together form an archive.
type Manifest struct {
	Description string         `json:"description,omitempty"`
	Created     string         `json:"created,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Collections []Collection   `json:"collections"`
}

// Load reads a manifest JSON file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid manifest JSON in %s: %v", path, err))
	}
	return &m, nil
}

// Save writes the manifest as indented JSON with non-ASCII text unescaped.
func Save(path string, m *Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewInternal(err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		f.Close()
		return errors.NewInternal(err)
	}
	return f.Close()
}
