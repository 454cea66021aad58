package store

import (
	"context"
	"fmt"
)

var schema = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'user'
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id      BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			day     TEXT NOT NULL,
			status  TEXT NOT NULL,
			UNIQUE (user_id, day)
		)`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'user'
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			day     TEXT NOT NULL,
			status  TEXT NOT NULL,
			UNIQUE (user_id, day)
		)`,
	},
}

// Migrate creates the users and attendance tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	stmts, ok := schema[d.Dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", d.Dialect)
	}
	tx, err := d.Client.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return tx.Commit()
}
