package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"

	"github.com/hpungsan/arkiv/internal/errors"
)

// Query runs an arbitrary read-only SQL query and returns the column
// names in result order plus one map per row. Anything that is not a
// SELECT (or a WITH-prefixed select) is rejected up front, and the
// connection itself is pinned to query-only mode so a statement that
// smuggles a write past the prefix check still fails at the engine.
func (s *Store) Query(query string, args ...any) ([]string, []map[string]any, error) {
	upper := strings.ToUpper(strings.TrimSpace(query))
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return nil, nil, errors.NewQueryRejected("only SELECT queries are allowed")
	}

	ctx := context.Background()
	conn, err := s.conn.Conn(ctx)
	if err != nil {
		return nil, nil, errors.NewInternal(err)
	}
	defer conn.Close()

	if !s.readOnly {
		if _, err := conn.ExecContext(ctx, "PRAGMA query_only(1)"); err != nil {
			return nil, nil, errors.NewInternal(err)
		}
		defer func() {
			if _, err := conn.ExecContext(ctx, "PRAGMA query_only(0)"); err != nil {
				// Discard the connection rather than return it to the
				// pool still pinned to query-only mode.
				conn.Raw(func(any) error { return driver.ErrBadConn })
			}
		}()
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, errors.NewQueryRejected(err.Error())
	}
	defer rows.Close()

	return scanRows(rows)
}

// scanRows materializes a result set without knowing its shape.
func scanRows(rows *sql.Rows) ([]string, []map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, errors.NewInternal(err)
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, errors.NewInternal(err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		// Write attempts inside a WITH-wrapped statement surface here.
		return nil, nil, errors.NewQueryRejected(err.Error())
	}
	return columns, out, nil
}
