package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/arkiv/internal/config"
	"github.com/hpungsan/arkiv/internal/errors"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

// Store is a handle on one archive database. A read-only Store refuses
// every mutating call at the handle level; underneath, the engine's
// mode=ro open enforces the same thing independently of any SQL text
// inspection.
type Store struct {
	conn     *sql.DB
	path     string
	readOnly bool
}

// Open opens a writable archive database at path, creating the file and
// any parent directories on first use.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas in the connection string apply to all pooled connections.
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(conn); err != nil {
		conn.Close()
		return nil, err
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &Store{conn: conn, path: path}, nil
}

// OpenReadOnly opens an existing archive database without the ability to
// write. The open never creates the file: a missing path is NOT_FOUND.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}

	dsn := "file:" + path + "?mode=ro&_pragma=busy_timeout(5000)&_pragma=query_only(1)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Force a connection so a file that is not a database fails here, not
	// on the first query.
	if _, err := GetUserVersion(conn); err != nil {
		conn.Close()
		return nil, errors.NewInvalidRequest(fmt.Sprintf("not a valid archive database: %s", path))
	}

	return &Store{conn: conn, path: path, readOnly: true}, nil
}

// Conn exposes the underlying handle for row helpers.
func (s *Store) Conn() *sql.DB { return s.conn }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// ReadOnly reports whether the store was opened read-only.
func (s *Store) ReadOnly() bool { return s.readOnly }

// Close releases the underlying handle.
func (s *Store) Close() error { return s.conn.Close() }

// RequireWritable returns a READ_ONLY error when the store cannot accept
// the named mutating operation.
func (s *Store) RequireWritable(operation string) error {
	if s.readOnly {
		return errors.NewReadOnly(operation)
	}
	return nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error. Import uses this so records, schema rows, and the journal
// move together or not at all.
func (s *Store) WithTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// UserVersion reports the store's schema version.
func (s *Store) UserVersion() (int, error) {
	return GetUserVersion(s.conn)
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(s *Store, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		s.conn.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		s.conn.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(conn *sql.DB) error {
	version, err := GetUserVersion(conn)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: records, per-collection schema, archive metadata
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS records (
		  id         INTEGER PRIMARY KEY,
		  collection TEXT,
		  mimetype   TEXT,
		  uri        TEXT,
		  content    TEXT,
		  timestamp  TEXT,
		  metadata   JSON
		);

		CREATE TABLE IF NOT EXISTS _schema (
		  collection    TEXT,
		  key_path      TEXT,
		  type          TEXT,
		  count         INTEGER,
		  sample_values TEXT,
		  description   TEXT
		);

		CREATE TABLE IF NOT EXISTS _metadata (
		  key   TEXT PRIMARY KEY,
		  value TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_records_collection ON records(collection);
		CREATE INDEX IF NOT EXISTS idx_records_mimetype ON records(mimetype);
		CREATE INDEX IF NOT EXISTS idx_records_timestamp ON records(timestamp);
		`
		if _, err := conn.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(conn, 1); err != nil {
			return err
		}
	}

	// Migration 1 -> 2: import journal
	if version < 2 {
		schema := `
		CREATE TABLE IF NOT EXISTS _imports (
		  id          TEXT PRIMARY KEY,
		  collection  TEXT NOT NULL,
		  source      TEXT,
		  records     INTEGER NOT NULL,
		  imported_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_imports_collection
		ON _imports(collection, imported_at DESC);
		`
		if _, err := conn.Exec(schema); err != nil {
			return fmt.Errorf("migration 2 failed: %w", err)
		}
		if err := SetUserVersion(conn, 2); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(conn *sql.DB) error {
	var journalMode string
	if err := conn.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(conn *sql.DB, version int) error {
	_, err := conn.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
