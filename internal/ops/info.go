package ops

import (
	"github.com/hpungsan/arkiv/internal/db"
	"github.com/hpungsan/arkiv/internal/record"
	"github.com/hpungsan/arkiv/internal/schema"
)

// CollectionInfo summarizes one collection. MetadataKeys appears only in
// the standalone-file form, where discovery runs inline.
type CollectionInfo struct {
	RecordCount  int                      `json:"record_count"`
	MetadataKeys map[string]*schema.Entry `json:"metadata_keys,omitempty"`
}

// InfoOutput summarizes a store or a standalone JSONL file.
type InfoOutput struct {
	TotalRecords int                        `json:"total_records"`
	Collections  map[string]*CollectionInfo `json:"collections"`
}

// GetInfo reports the store's overall record count and per-collection
// counts.
func GetInfo(store *db.Store) (*InfoOutput, error) {
	total, err := db.TotalRecords(store.Conn())
	if err != nil {
		return nil, err
	}
	counts, err := db.CollectionCounts(store.Conn())
	if err != nil {
		return nil, err
	}
	out := &InfoOutput{
		TotalRecords: total,
		Collections:  make(map[string]*CollectionInfo, len(counts)),
	}
	for name, count := range counts {
		out.Collections[name] = &CollectionInfo{RecordCount: count}
	}
	return out, nil
}

// FileInfo summarizes a standalone JSONL file as a single collection
// named after the file, attaching the discovered schema when the records
// carry any metadata keys.
func FileInfo(path string) (*InfoOutput, error) {
	records, err := record.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info := &CollectionInfo{RecordCount: len(records)}
	if keys := schema.Discover(records); len(keys) > 0 {
		info.MetadataKeys = keys
	}
	return &InfoOutput{
		TotalRecords: len(records),
		Collections:  map[string]*CollectionInfo{CollectionFromPath(path): info},
	}, nil
}
