package ops

import (
	"github.com/hpungsan/arkiv/internal/db"
	"github.com/hpungsan/arkiv/internal/errors"
)

// QueryInput carries the SQL to run.
type QueryInput struct {
	SQL string `json:"sql"`
}

// QueryOutput carries a result set. Columns preserves the engine's
// column order, which the row maps cannot express.
type QueryOutput struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Count   int              `json:"count"`
}

// Query runs a read-only statement against the store.
func Query(store *db.Store, input QueryInput) (*QueryOutput, error) {
	if input.SQL == "" {
		return nil, errors.NewInvalidRequest("sql query is required")
	}
	columns, rows, err := store.Query(input.SQL)
	if err != nil {
		return nil, err
	}
	return &QueryOutput{Columns: columns, Rows: rows, Count: len(rows)}, nil
}
