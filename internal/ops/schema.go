package ops

import (
	"database/sql"

	"github.com/hpungsan/arkiv/internal/db"
	"github.com/hpungsan/arkiv/internal/record"
	"github.com/hpungsan/arkiv/internal/schema"
)

// SchemaKey is the reporting form of one stored schema row. Values is
// always present, empty when no sample survived; Description appears
// only when a curator wrote one.
type SchemaKey struct {
	Type        string `json:"type"`
	Count       int    `json:"count"`
	Values      []any  `json:"values"`
	Description string `json:"description,omitempty"`
}

// CollectionSchema pairs a collection name with its metadata key map.
type CollectionSchema struct {
	Collection   string                `json:"collection"`
	MetadataKeys map[string]*SchemaKey `json:"metadata_keys"`
}

// MergeCuratedSchema folds curated entries into a collection's stored
// schema rows and rewrites them. Curated keys absent from the stored
// schema are added with count zero, so a field can be described before
// any record carries it.
func MergeCuratedSchema(store *db.Store, collection string, curated map[string]*schema.Entry) error {
	if len(curated) == 0 {
		return nil
	}
	return store.WithTx(func(tx *sql.Tx) error {
		existing, err := db.LoadSchemaEntries(tx, collection)
		if err != nil {
			return err
		}
		return db.ReplaceSchemaRows(tx, collection, schema.Merge(existing, curated))
	})
}

// GetSchema reports the stored schema for one collection. An unknown
// collection yields an empty key map, not an error.
func GetSchema(store *db.Store, collection string) (*CollectionSchema, error) {
	entries, err := db.LoadSchemaEntries(store.Conn(), collection)
	if err != nil {
		return nil, err
	}
	out := &CollectionSchema{
		Collection:   collection,
		MetadataKeys: make(map[string]*SchemaKey, len(entries)),
	}
	for key, entry := range entries {
		out.MetadataKeys[key] = schemaKeyFrom(entry)
	}
	return out, nil
}

// GetAllSchemas reports the stored schema of every collection that has
// schema rows, keyed by collection name.
func GetAllSchemas(store *db.Store) (map[string]*CollectionSchema, error) {
	names, err := db.SchemaCollections(store.Conn())
	if err != nil {
		return nil, err
	}
	out := make(map[string]*CollectionSchema, len(names))
	for _, name := range names {
		cs, err := GetSchema(store, name)
		if err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, nil
}

// DiscoverFileSchema runs schema discovery directly over a JSONL file,
// without touching a store.
func DiscoverFileSchema(path string) (map[string]*schema.Entry, error) {
	records, err := record.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return schema.Discover(records), nil
}

func schemaKeyFrom(entry *schema.Entry) *SchemaKey {
	key := &SchemaKey{
		Type:        entry.Type,
		Count:       entry.Count,
		Values:      entry.Values,
		Description: entry.Description,
	}
	if key.Values == nil {
		key.Values = []any{}
	}
	return key
}
