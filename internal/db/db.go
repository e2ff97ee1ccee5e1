package db

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

// Connect opens the SQLite database at dbPath and ensures the schema exists.
// ":memory:" gives a private in-memory database.
func Connect(ctx context.Context, dbPath string) (*sqlx.DB, error) {
	pool, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		pool.SetMaxOpenConns(1)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	slog.InfoContext(ctx, "Connected to database", "path", dbPath)
	return pool, nil
}

// Migrate creates the tables the service needs.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	matchSchema := `
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		difficulty TEXT NOT NULL DEFAULT '',
		human_mark TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		winner TEXT NOT NULL DEFAULT '',
		line TEXT NOT NULL DEFAULT '',
		finished_at DATETIME NOT NULL
	);`

	if _, err := db.ExecContext(ctx, matchSchema); err != nil {
		return fmt.Errorf("failed to create matches table: %w", err)
	}
	return nil
}
