package ops

import (
	"github.com/hpungsan/arkiv/internal/db"
)

// HistoryInput filters the import journal.
type HistoryInput struct {
	Collection string `json:"collection,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// HistoryOutput lists journal entries, newest first.
type HistoryOutput struct {
	Imports []db.ImportEntry `json:"imports"`
	Count   int              `json:"count"`
}

// History lists recent imports, optionally for one collection. A zero
// limit falls back to the default; stores created before the journal
// existed report an empty history rather than an error.
func History(store *db.Store, input HistoryInput) (*HistoryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	entries, err := db.ListImports(store.Conn(), input.Collection, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []db.ImportEntry{}
	}
	return &HistoryOutput{Imports: entries, Count: len(entries)}, nil
}
