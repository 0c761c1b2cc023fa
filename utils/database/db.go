package database

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by store lookups when no row matches. Callers
// treat it as a soft failure, never as a reason to abort the pipeline.
var ErrNotFound = errors.New("database: record not found")

const schema = `
CREATE TABLE IF NOT EXISTS infractions (
	id TEXT PRIMARY KEY,
	target_id INTEGER NOT NULL,
	actor_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	reason TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER,
	active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_infractions_target ON infractions (target_id, active);

CREATE TABLE IF NOT EXISTS members (
	id INTEGER PRIMARY KEY,
	username TEXT NOT NULL,
	discriminator TEXT NOT NULL,
	avatar_url TEXT NOT NULL,
	present INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS roles (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	colour INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS member_roles (
	member_id INTEGER NOT NULL,
	role_id INTEGER NOT NULL,
	PRIMARY KEY (member_id, role_id)
);
`

// Init opens the sqlite database at dbPath and ensures all tables exist.
func Init(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent command handling.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}
