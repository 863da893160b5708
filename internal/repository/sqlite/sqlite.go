// Package sqlite implements the repository interfaces on SQLite via
// database/sql.
//
// The driver is modernc.org/sqlite, a pure Go translation of SQLite, so no
// C toolchain is needed and the tests can run against ":memory:" databases.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/rs/xid"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath (":memory:" for tests), applies
// the pragmas, and runs the migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets reads proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are off by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema and seeds the reference data. Everything is
// idempotent, so it is safe to run on every startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS birds (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);
		CREATE TABLE IF NOT EXISTS categories (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		);
	`)
	if err != nil {
		return fmt.Errorf("creating reference tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			provider      TEXT NOT NULL,
			provider_id   TEXT NOT NULL,
			email         TEXT NOT NULL DEFAULT '',
			nickname      TEXT NOT NULL DEFAULT '',
			birth_year    INTEGER NOT NULL DEFAULT 0,
			role          TEXT NOT NULL DEFAULT '',
			bird_id       TEXT REFERENCES birds(id),
			category_id   TEXT REFERENCES categories(id),
			quota         INTEGER NOT NULL DEFAULT 0,
			refresh_hash  TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL,
			last_login_at DATETIME NOT NULL,
			UNIQUE(provider, provider_id)
		);
		CREATE INDEX IF NOT EXISTS idx_users_nickname ON users(nickname);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS letters (
			id            TEXT PRIMARY KEY,
			category_name TEXT NOT NULL,
			title         TEXT NOT NULL,
			body          TEXT NOT NULL,
			created_at    DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS letter_status (
			id               TEXT PRIMARY KEY,
			mentee_letter_id TEXT NOT NULL REFERENCES letters(id),
			mentor_letter_id TEXT REFERENCES letters(id),
			mentee_id        TEXT NOT NULL REFERENCES users(id),
			mentor_id        TEXT NOT NULL REFERENCES users(id),
			mentee_read      INTEGER NOT NULL DEFAULT 0,
			mentor_read      INTEGER NOT NULL DEFAULT 0,
			mentee_saved     INTEGER NOT NULL DEFAULT 0,
			mentor_saved     INTEGER NOT NULL DEFAULT 0,
			thanked          INTEGER NOT NULL DEFAULT 0,
			created_at       DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_letter_status_mentee ON letter_status(mentee_id);
		CREATE INDEX IF NOT EXISTS idx_letter_status_mentor ON letter_status(mentor_id);
		CREATE INDEX IF NOT EXISTS idx_letter_status_mentor_letter ON letter_status(mentor_letter_id);
	`)
	if err != nil {
		return fmt.Errorf("creating letter tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS throw_letters (
			id               TEXT PRIMARY KEY,
			letter_status_id TEXT NOT NULL REFERENCES letter_status(id),
			thrown_by        TEXT NOT NULL REFERENCES users(id),
			created_at       DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS throw_categories (
			category_name TEXT PRIMARY KEY,
			count         INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return fmt.Errorf("creating throw tables: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			message    TEXT NOT NULL,
			sent       INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating notifications table: %w", err)
	}

	return db.seedReferenceData()
}

var (
	seedBirds      = []string{"owl", "parrot", "sparrow", "eagle", "penguin"}
	seedCategories = []string{"career", "relationship", "study", "family", "life"}
)

// seedReferenceData inserts the bird and category lookup rows. INSERT OR
// IGNORE keys on the unique name, so reruns leave existing rows alone.
func (db *DB) seedReferenceData() error {
	for _, name := range seedBirds {
		if _, err := db.conn.Exec(
			`INSERT OR IGNORE INTO birds (id, name) VALUES (?, ?)`,
			xid.New().String(), name,
		); err != nil {
			return fmt.Errorf("seeding bird %q: %w", name, err)
		}
	}
	for _, name := range seedCategories {
		if _, err := db.conn.Exec(
			`INSERT OR IGNORE INTO categories (id, name) VALUES (?, ?)`,
			xid.New().String(), name,
		); err != nil {
			return fmt.Errorf("seeding category %q: %w", name, err)
		}
	}
	return nil
}
