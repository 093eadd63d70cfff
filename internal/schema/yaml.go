package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/arkiv/internal/errors"
)

// Header is the first line of every generated curated-schema document.
const Header = "# Auto-generated by arkiv. Edit descriptions and values freely; they are preserved on re-import."

// Collection is the curated-schema document form of one collection.
type Collection struct {
	RecordCount  int               `json:"record_count" yaml:"record_count"`
	MetadataKeys map[string]*Entry `json:"metadata_keys" yaml:"metadata_keys"`
}

// Write emits the curated-schema YAML document: the generated-file header
// followed by collection name → {record_count, metadata_keys}.
func Write(w io.Writer, collections map[string]*Collection) error {
	if _, err := fmt.Fprintln(w, Header); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(collections); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// SaveFile writes the curated-schema document to path.
func SaveFile(path string, collections map[string]*Collection) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := Write(f, collections); err != nil {
		f.Close()
		return errors.NewInternal(err)
	}
	return f.Close()
}

// LoadFile reads a curated-schema YAML document. The document degrades
// gracefully: a non-map root yields an empty result, non-map collection or
// key sections are skipped, and a missing type defaults to "string". Only
// a missing file or unparseable YAML is an error.
func LoadFile(path string) (map[string]*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}

	var root any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid schema YAML in %s: %v", path, err))
	}

	out := make(map[string]*Collection)
	rootMap, ok := root.(map[string]any)
	if !ok {
		// nil (empty file) or a non-map document
		return out, nil
	}

	for name, raw := range rootMap {
		section, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		col := &Collection{MetadataKeys: make(map[string]*Entry)}
		if rc, ok := section["record_count"].(int); ok {
			col.RecordCount = rc
		}
		if keys, ok := section["metadata_keys"].(map[string]any); ok {
			col.MetadataKeys = EntriesFromMap(keys)
		}
		out[name] = col
	}
	return out, nil
}

// EntriesFromMap converts a decoded metadata_keys mapping into entries.
// Non-map key sections are skipped and a missing type defaults to
// "string". Counts may arrive as ints (YAML) or float64s (JSON).
func EntriesFromMap(keys map[string]any) map[string]*Entry {
	entries := make(map[string]*Entry)
	for key, raw := range keys {
		spec, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		e := &Entry{Type: "string"}
		if t, ok := spec["type"].(string); ok && t != "" {
			e.Type = t
		}
		switch c := spec["count"].(type) {
		case int:
			e.Count = c
		case float64:
			e.Count = int(c)
		}
		if vs, ok := spec["values"].([]any); ok && len(vs) > 0 {
			e.Values = vs
		}
		if d, ok := spec["description"].(string); ok {
			e.Description = d
		}
		entries[key] = e
	}
	return entries
}
