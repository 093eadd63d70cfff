package db

import (
	"database/sql"
	"encoding/json"
	"sort"
	"strings"

	"github.com/hpungsan/arkiv/internal/errors"
	"github.com/hpungsan/arkiv/internal/record"
	"github.com/hpungsan/arkiv/internal/schema"
)

// Queryer abstracts *sql.DB and *sql.Tx so row helpers can run standalone
// or inside an import transaction.
type Queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// bindValue converts a record field for a TEXT column: nil stays NULL,
// strings bind as-is, and any other JSON value binds as its JSON encoding.
func bindValue(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case string:
		return sql.NullString{String: val, Valid: true}, nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return sql.NullString{}, errors.NewInternal(err)
		}
		return sql.NullString{String: string(data), Valid: true}, nil
	}
}

// nullIfEmpty converts "" to NULL.
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// fieldValue converts a scanned TEXT column back to a record field.
func fieldValue(ns sql.NullString) any {
	if !ns.Valid {
		return nil
	}
	return ns.String
}

// isNoSuchTableError detects reads against a table the database predates.
func isNoSuchTableError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// InsertRecord appends one record to a collection.
func InsertRecord(q Queryer, collection string, rec record.Record) error {
	mimetype, err := bindValue(rec.Mimetype)
	if err != nil {
		return err
	}
	uri, err := bindValue(rec.URI)
	if err != nil {
		return err
	}
	content, err := bindValue(rec.Content)
	if err != nil {
		return err
	}
	timestamp, err := bindValue(rec.Timestamp)
	if err != nil {
		return err
	}
	var metadata sql.NullString
	if len(rec.Metadata) > 0 {
		data, err := json.Marshal(rec.Metadata)
		if err != nil {
			return errors.NewInternal(err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	_, err = q.Exec(
		`INSERT INTO records (collection, mimetype, uri, content, timestamp, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		collection, mimetype, uri, content, timestamp, metadata,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteCollectionRecords removes every record in a collection.
func DeleteCollectionRecords(q Queryer, collection string) error {
	if _, err := q.Exec("DELETE FROM records WHERE collection = ?", collection); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// CollectionRecords loads a collection's records in insertion order.
// limit <= 0 loads everything.
func CollectionRecords(q Queryer, collection string, limit int) ([]record.Record, error) {
	query := `SELECT mimetype, uri, content, timestamp, metadata
	          FROM records WHERE collection = ? ORDER BY id`
	args := []any{collection}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var records []record.Record
	for rows.Next() {
		var mimetype, uri, content, timestamp, metadata sql.NullString
		if err := rows.Scan(&mimetype, &uri, &content, &timestamp, &metadata); err != nil {
			return nil, errors.NewInternal(err)
		}
		rec := record.Record{
			Mimetype:  fieldValue(mimetype),
			URI:       fieldValue(uri),
			Content:   fieldValue(content),
			Timestamp: fieldValue(timestamp),
		}
		if metadata.Valid {
			var meta map[string]any
			if err := json.Unmarshal([]byte(metadata.String), &meta); err != nil {
				return nil, errors.NewInternal(err)
			}
			rec.Metadata = meta
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return records, nil
}

// RecordCollections lists the collections present in the records table.
func RecordCollections(q Queryer) ([]string, error) {
	return stringColumn(q, "SELECT DISTINCT collection FROM records ORDER BY collection")
}

// SchemaCollections lists the collections present in the schema table,
// including curated-only collections with no records.
func SchemaCollections(q Queryer) ([]string, error) {
	return stringColumn(q, "SELECT DISTINCT collection FROM _schema ORDER BY collection")
}

func stringColumn(q Queryer, query string) ([]string, error) {
	rows, err := q.Query(query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// TotalRecords counts every record in the store.
func TotalRecords(q Queryer) (int, error) {
	var total int
	if err := q.QueryRow("SELECT COUNT(*) FROM records").Scan(&total); err != nil {
		return 0, errors.NewInternal(err)
	}
	return total, nil
}

// CollectionCounts returns record counts keyed by collection name.
func CollectionCounts(q Queryer) (map[string]int, error) {
	rows, err := q.Query("SELECT collection, COUNT(*) FROM records GROUP BY collection")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, errors.NewInternal(err)
		}
		counts[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return counts, nil
}

// SchemaDescriptions loads the stored descriptions for a collection. The
// import path reads these before replacing schema rows so curator notes
// survive rediscovery.
func SchemaDescriptions(q Queryer, collection string) (map[string]string, error) {
	rows, err := q.Query(
		"SELECT key_path, description FROM _schema WHERE collection = ? AND description IS NOT NULL",
		collection,
	)
	if err != nil {
		if isNoSuchTableError(err) {
			return map[string]string{}, nil
		}
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	descs := make(map[string]string)
	for rows.Next() {
		var key, desc string
		if err := rows.Scan(&key, &desc); err != nil {
			return nil, errors.NewInternal(err)
		}
		descs[key] = desc
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return descs, nil
}

// LoadSchemaEntries loads a collection's stored schema. The stored sample
// list comes back in Values whether it was an enumeration or a single
// example at write time.
func LoadSchemaEntries(q Queryer, collection string) (map[string]*schema.Entry, error) {
	rows, err := q.Query(
		"SELECT key_path, type, count, sample_values, description FROM _schema WHERE collection = ?",
		collection,
	)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	entries := make(map[string]*schema.Entry)
	for rows.Next() {
		var key string
		var entryType sql.NullString
		var count sql.NullInt64
		var sample, desc sql.NullString
		if err := rows.Scan(&key, &entryType, &count, &sample, &desc); err != nil {
			return nil, errors.NewInternal(err)
		}
		e := &schema.Entry{
			Type:        entryType.String,
			Count:       int(count.Int64),
			Description: desc.String,
		}
		if sample.Valid && sample.String != "" {
			var values []any
			if err := json.Unmarshal([]byte(sample.String), &values); err != nil {
				return nil, errors.NewInternal(err)
			}
			if len(values) > 0 {
				e.Values = values
			}
		}
		entries[key] = e
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}

// ReplaceSchemaRows swaps a collection's schema rows for the given
// entries. The stored sample is the enumerated values, or a single-element
// list holding the example, or an empty list.
func ReplaceSchemaRows(q Queryer, collection string, entries map[string]*schema.Entry) error {
	if _, err := q.Exec("DELETE FROM _schema WHERE collection = ?", collection); err != nil {
		return errors.NewInternal(err)
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		e := entries[key]
		sample, err := sampleJSON(e)
		if err != nil {
			return err
		}
		_, err = q.Exec(
			`INSERT INTO _schema (collection, key_path, type, count, sample_values, description)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			collection, key, e.Type, e.Count, sample, nullIfEmpty(e.Description),
		)
		if err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

func sampleJSON(e *schema.Entry) (string, error) {
	sample := e.Values
	if len(sample) == 0 {
		if e.Example != nil {
			sample = []any{e.Example}
		} else {
			sample = []any{}
		}
	}
	data, err := json.Marshal(sample)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return string(data), nil
}
