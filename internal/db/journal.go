package db

import (
	"database/sql"

	"github.com/hpungsan/arkiv/internal/errors"
)

// ImportEntry is one row of the import journal. ImportedAt is a unix
// timestamp.
type ImportEntry struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Source     string `json:"source,omitempty"`
	Records    int    `json:"records"`
	ImportedAt int64  `json:"imported_at"`
}

// InsertImportEntry appends one journal row. The caller supplies the ULID
// so the row can share the import transaction.
func InsertImportEntry(q Queryer, entry ImportEntry) error {
	_, err := q.Exec(
		`INSERT INTO _imports (id, collection, source, records, imported_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Collection, nullIfEmpty(entry.Source), entry.Records, entry.ImportedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListImports returns journal rows newest first, optionally filtered to
// one collection. limit <= 0 lists everything.
func ListImports(q Queryer, collection string, limit int) ([]ImportEntry, error) {
	query := "SELECT id, collection, source, records, imported_at FROM _imports"
	var args []any
	if collection != "" {
		query += " WHERE collection = ?"
		args = append(args, collection)
	}
	query += " ORDER BY imported_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		if isNoSuchTableError(err) {
			return []ImportEntry{}, nil
		}
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	entries := []ImportEntry{}
	for rows.Next() {
		var e ImportEntry
		var source sql.NullString
		if err := rows.Scan(&e.ID, &e.Collection, &source, &e.Records, &e.ImportedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.Source = source.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}
