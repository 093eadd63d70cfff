package ops

import (
	"sort"

	"github.com/hpungsan/arkiv/internal/db"
	"github.com/hpungsan/arkiv/internal/readme"
)

// Manifest is the archive overview served to query clients: the archive
// name and description when the stored README header carries them, plus
// one entry per collection with its live record count, curator
// description, and stored schema.
type Manifest struct {
	Name        any                   `json:"name,omitempty"`
	Description any                   `json:"description,omitempty"`
	Collections []*ManifestCollection `json:"collections"`
}

// ManifestCollection describes one collection in the manifest.
type ManifestCollection struct {
	File        string          `json:"file"`
	RecordCount int             `json:"record_count"`
	Description string          `json:"description,omitempty"`
	Schema      *ManifestSchema `json:"schema"`
}

// ManifestSchema carries the stored metadata keys of one collection.
type ManifestSchema struct {
	MetadataKeys map[string]*SchemaKey `json:"metadata_keys"`
}

// GetManifest derives the archive overview entirely from the store; no
// manifest file on disk is consulted. Collection descriptions come from
// the stored README contents list, matched by file stem.
func GetManifest(store *db.Store) (*Manifest, error) {
	m := &Manifest{}

	header, _, _, err := db.LoadReadmeMeta(store.Conn())
	if err != nil {
		return nil, err
	}
	fm, err := readme.ParseHeader(header)
	if err != nil {
		fm = readme.NewFrontmatter()
	}
	if v, ok := fm.Get("name"); ok {
		m.Name = v
	}
	if v, ok := fm.Get("description"); ok {
		m.Description = v
	}

	descriptions := make(map[string]string)
	for path, desc := range fm.ContentsDescriptions() {
		descriptions[CollectionFromPath(path)] = desc
	}

	counts, err := db.CollectionCounts(store.Conn())
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	m.Collections = make([]*ManifestCollection, 0, len(names))
	for _, name := range names {
		cs, err := GetSchema(store, name)
		if err != nil {
			return nil, err
		}
		m.Collections = append(m.Collections, &ManifestCollection{
			File:        name + ".jsonl",
			RecordCount: counts[name],
			Description: descriptions[name],
			Schema:      &ManifestSchema{MetadataKeys: cs.MetadataKeys},
		})
	}
	return m, nil
}
