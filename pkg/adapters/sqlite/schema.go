package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CurrentSchemaVersion is the schema version Migrate brings a database to.
const CurrentSchemaVersion = 2

// migrations[i] upgrades a database from version i to i+1.
var migrations = []func(ctx context.Context, tx *sql.Tx) error{
	migrateToVersion1,
	migrateToVersion2,
}

// Migrate upgrades the schema to CurrentSchemaVersion and returns the
// version the database was at before.
func Migrate(ctx context.Context, db *sql.DB) (int, error) {
	from, err := SchemaVersion(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("failed to get current schema version: %w", err)
	}
	if from > CurrentSchemaVersion {
		return from, fmt.Errorf("database schema version %d is newer than supported %d", from, CurrentSchemaVersion)
	}

	for version := from + 1; version <= CurrentSchemaVersion; version++ {
		if err := runMigration(ctx, db, version); err != nil {
			return from, fmt.Errorf("migration to version %d failed: %w", version, err)
		}
	}
	return from, nil
}

func runMigration(ctx context.Context, db *sql.DB, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := migrations[version-1](ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, version); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}

// SchemaVersion returns the current schema version, 0 for a fresh database.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err = db.QueryRowContext(ctx, `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("schema version scan error: %w", err)
	}
	return version, nil
}

// migrateToVersion1 creates the messages table in its historical layout,
// so databases written by earlier releases open unchanged.
func migrateToVersion1(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		type TEXT,
		message TEXT,
		name TEXT,
		position TEXT,
		is_anonymous INTEGER,
		reason TEXT,
		file_path TEXT,
		status TEXT DEFAULT 'Ожидает ответа',
		answer TEXT DEFAULT '',
		created_at TEXT
	)`)
	return err
}

// migrateToVersion2 adds recipient and answered_at and normalizes the
// localized type and status labels of historical rows to stable codes.
func migrateToVersion2(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`ALTER TABLE messages ADD COLUMN recipient TEXT NOT NULL DEFAULT ''`,
		`ALTER TABLE messages ADD COLUMN answered_at TEXT`,
		`UPDATE messages SET type = 'manager' WHERE type = 'руководитель'`,
		`UPDATE messages SET type = 'general' WHERE type = 'общий'`,
		`UPDATE messages SET type = 'director' WHERE type = 'директор'`,
		`UPDATE messages SET type = 'idea' WHERE type = 'идея'`,
		`UPDATE messages SET status = 'pending' WHERE status = 'Ожидает ответа' OR status IS NULL`,
		`UPDATE messages SET status = 'answered' WHERE status = '✅ Ответ отправлен'`,
		`CREATE INDEX IF NOT EXISTS idx_messages_user ON messages (user_id, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration: %s: %w", stmt, err)
		}
	}
	return nil
}
