package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    name       TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS aliases (
    alias     TEXT PRIMARY KEY,
    user_name TEXT NOT NULL REFERENCES users(name)
);

CREATE TABLE IF NOT EXISTS deposits (
    id         TEXT PRIMARY KEY,
    user_name  TEXT NOT NULL REFERENCES users(name),
    item       TEXT NOT NULL,
    qty        INTEGER NOT NULL CHECK (qty > 0),
    value      REAL NOT NULL CHECK (value >= 0),
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deposits_user_time
    ON deposits(user_name, created_at);

CREATE INDEX IF NOT EXISTS idx_deposits_dup_check
    ON deposits(user_name, item, qty);

CREATE TABLE IF NOT EXISTS pending_duplicates (
    id         TEXT PRIMARY KEY,
    user_name  TEXT NOT NULL,
    item       TEXT NOT NULL,
    qty        INTEGER NOT NULL CHECK (qty > 0),
    value      REAL NOT NULL CHECK (value >= 0),
    status     TEXT NOT NULL DEFAULT 'pending'
               CHECK (status IN ('pending', 'approved', 'declined')),
    created_at DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_open_unique
    ON pending_duplicates(user_name, item, qty) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS admin_totals (
    admin         TEXT PRIMARY KEY,
    total_normal  REAL NOT NULL DEFAULT 0,
    total_instant REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS audit_log (
    id         TEXT PRIMARY KEY,
    actor      TEXT NOT NULL,
    action     TEXT NOT NULL,
    details    TEXT,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_time ON audit_log(created_at);

CREATE TABLE IF NOT EXISTS item_settings (
    name         TEXT PRIMARY KEY,
    category     TEXT,
    target       INTEGER NOT NULL DEFAULT 100 CHECK (target >= 1),
    divine_value REAL NOT NULL DEFAULT 0 CHECK (divine_value >= 0),
    icon         BLOB,
    icon_mime    TEXT,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS admins (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'manager' CHECK (role IN ('admin', 'manager')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_admins_username_active
    ON admins(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: drop the hard UNIQUE on admins.username in favor of the
	// partial unique index above so soft-deleted usernames can be reused.
	`DROP INDEX IF EXISTS sqlite_autoindex_admins_1`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_admins_username_active
	     ON admins(username) WHERE deleted_at IS NULL`,
}

// Migrate creates all tables and indexes if missing and runs migrations.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
