package ops

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hpungsan/arkiv/internal/db"
	"github.com/hpungsan/arkiv/internal/errors"
	"github.com/hpungsan/arkiv/internal/manifest"
	"github.com/hpungsan/arkiv/internal/readme"
	"github.com/hpungsan/arkiv/internal/record"
	"github.com/hpungsan/arkiv/internal/schema"
)

// ImportInput contains parameters for the ImportFile operation.
type ImportInput struct {
	Path       string // required
	Collection string // optional override for JSONL inputs; default: file stem
}

// CollectionResult describes one collection touched by an import.
type CollectionResult struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
	Source     string `json:"source,omitempty"`
	ImportID   string `json:"import_id,omitempty"`
}

// ImportOutput contains the result of the ImportFile operation.
type ImportOutput struct {
	Collections  []CollectionResult `json:"collections"`
	Total        int                `json:"total_records"`
	ReadmeStored bool               `json:"readme_stored,omitempty"`
	SchemaMerged []string           `json:"schema_merged,omitempty"`
}

// ImportFile imports a data file into the archive, dispatching on the
// file's kind: a manifest (.json) imports every listed collection file, a
// README (.md) stores the archive metadata and imports its contents, and
// anything else is treated as JSONL for a single collection. A database
// path is rejected.
func ImportFile(store *db.Store, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if err := store.RequireWritable("import"); err != nil {
		return nil, err
	}

	switch ClassifyPath(input.Path) {
	case PathDatabase:
		return nil, errors.NewInvalidRequest(
			fmt.Sprintf("%s is a database file, not a JSONL or manifest file", input.Path))
	case PathManifest:
		return importManifest(store, input.Path)
	case PathReadme:
		return importReadme(store, input.Path)
	default:
		result, err := importJSONL(store, input.Path, input.Collection)
		if err != nil {
			return nil, err
		}
		return &ImportOutput{
			Collections: []CollectionResult{result},
			Total:       result.Records,
		}, nil
	}
}

// importJSONL imports one JSONL file as one collection.
func importJSONL(store *db.Store, path, collection string) (CollectionResult, error) {
	if collection == "" {
		collection = CollectionFromPath(path)
	}
	records, err := record.ReadFile(path)
	if err != nil {
		return CollectionResult{}, err
	}
	return importRecords(store, collection, records, filepath.Base(path))
}

// importRecords replaces a collection's records and schema in a single
// transaction. Previously stored descriptions are read first and threaded
// through the merge so curation survives the replacement; a described key
// that vanished from the data is kept as a curated-only entry with count 0.
func importRecords(store *db.Store, collection string, records []record.Record, source string) (CollectionResult, error) {
	auto := schema.Discover(records)

	result := CollectionResult{
		Collection: collection,
		Records:    len(records),
		Source:     source,
	}

	err := store.WithTx(func(tx *sql.Tx) error {
		descriptions, err := db.SchemaDescriptions(tx, collection)
		if err != nil {
			return err
		}
		merged := schema.Merge(auto, schema.DescriptionsOnly(descriptions))

		// Replace semantics: clear existing records for this collection
		if err := db.DeleteCollectionRecords(tx, collection); err != nil {
			return err
		}
		for _, rec := range records {
			if err := db.InsertRecord(tx, collection, rec); err != nil {
				return err
			}
		}

		if err := db.ReplaceSchemaRows(tx, collection, merged); err != nil {
			return err
		}

		entry := db.ImportEntry{
			ID:         generateImportID(),
			Collection: collection,
			Source:     source,
			Records:    len(records),
			ImportedAt: time.Now().Unix(),
		}
		result.ImportID = entry.ID
		return db.InsertImportEntry(tx, entry)
	})
	if err != nil {
		return CollectionResult{}, err
	}
	return result, nil
}

// importManifest imports every collection file listed in a manifest.json.
// File paths resolve relative to the manifest's directory; listed files
// that do not exist are skipped. An inline per-collection schema block is
// applied as curated schema after the data lands.
func importManifest(store *db.Store, path string) (*ImportOutput, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	baseDir := filepath.Dir(path)

	out := &ImportOutput{Collections: []CollectionResult{}}
	for _, entry := range m.Collections {
		if entry.File == "" {
			continue
		}
		filePath := entry.File
		if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			continue
		}

		result, err := importJSONL(store, filePath, "")
		if err != nil {
			return nil, err
		}
		out.Collections = append(out.Collections, result)
		out.Total += result.Records

		if keys, ok := entry.Schema["metadata_keys"].(map[string]any); ok {
			curated := schema.EntriesFromMap(keys)
			if len(curated) > 0 {
				if err := MergeCuratedSchema(store, result.Collection, curated); err != nil {
					return nil, err
				}
				out.SchemaMerged = append(out.SchemaMerged, result.Collection)
			}
		}
	}
	return out, nil
}

// importReadme stores a README's frontmatter and body as archive metadata,
// imports every existing file its contents list names, and finally applies
// a sibling schema.yaml as curated schema — including collections that
// have no data yet.
func importReadme(store *db.Store, path string) (*ImportOutput, error) {
	doc, err := readme.ParseFile(path)
	if err != nil {
		return nil, err
	}
	baseDir := filepath.Dir(path)

	headerText, err := doc.Frontmatter.HeaderText()
	if err != nil {
		return nil, err
	}
	if err := db.StoreReadmeMeta(store.Conn(), headerText, doc.Body); err != nil {
		return nil, err
	}

	out := &ImportOutput{Collections: []CollectionResult{}, ReadmeStored: true}
	for _, entry := range doc.Contents() {
		filePath := entry.Path
		if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			continue
		}

		result, err := importJSONL(store, filePath, "")
		if err != nil {
			return nil, err
		}
		out.Collections = append(out.Collections, result)
		out.Total += result.Records
	}

	schemaPath := filepath.Join(baseDir, "schema.yaml")
	if _, err := os.Stat(schemaPath); err == nil {
		curated, err := schema.LoadFile(schemaPath)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(curated))
		for name := range curated {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			keys := curated[name].MetadataKeys
			if len(keys) == 0 {
				continue
			}
			if err := MergeCuratedSchema(store, name, keys); err != nil {
				return nil, err
			}
			out.SchemaMerged = append(out.SchemaMerged, name)
		}
	}
	return out, nil
}
