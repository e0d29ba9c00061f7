// Package persistence provides SQLite-based storage for generated maps and
// the unit catalog.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection for the map archive.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path in WAL mode with
// a 5s busy timeout. The path ":memory:" gives a private in-memory database.
func Open(path string) (*DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		dsn = path
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS maps (
		id TEXT PRIMARY KEY,
		template TEXT NOT NULL,
		seed INTEGER NOT NULL,
		size INTEGER NOT NULL,
		roads INTEGER NOT NULL,
		guards INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		preview TEXT NOT NULL,
		tiles BLOB NOT NULL,
		coloring BLOB NOT NULL,
		zones_json TEXT NOT NULL,
		objects_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		level INTEGER NOT NULL,
		value INTEGER NOT NULL,
		leader INTEGER NOT NULL,
		big INTEGER NOT NULL,
		water INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS archive_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_maps_created ON maps(created_at);
	CREATE INDEX IF NOT EXISTS idx_maps_template ON maps(template);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM archive_meta WHERE key = ?", key)
	return value, err
}

// incrementMeta adds delta to an integer metadata counter inside tx.
func incrementMeta(tx *sqlx.Tx, key string, delta int) error {
	var current string
	err := tx.Get(&current, "SELECT value FROM archive_meta WHERE key = ?", key)
	n := 0
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		if n, err = strconv.Atoi(current); err != nil {
			return fmt.Errorf("meta %s: %w", key, err)
		}
	}
	_, err = tx.Exec(
		"INSERT OR REPLACE INTO archive_meta (key, value) VALUES (?, ?)",
		key, strconv.Itoa(n+delta),
	)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
