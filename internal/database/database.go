// Package database opens the bot's sqlite database and applies the embedded
// schema migrations. Every durable subsystem (permissions, bank accounts, the
// durable cache) shares the one connection pool returned by Open.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open opens (creating if needed) the sqlite database at path and brings its
// schema up to date. The pool is capped at one writer because sqlite allows
// only one write transaction at a time.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := configure(ctx, db); err != nil {
		db.Close()

		return nil, err
	}
	if err := migrate(ctx, db, logger); err != nil {
		db.Close()

		return nil, err
	}

	return db, nil
}

// configure applies the session pragmas, retrying briefly in case another
// process still holds the file lock from a previous run.
func configure(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = 3 * time.Second

	return backoff.Retry(func() error {
		for _, pragma := range pragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				return fmt.Errorf("apply %s: %w", pragma, err)
			}
		}

		return nil
	}, backoff.WithContext(policy, ctx))
}

// migrateMu serializes access to goose's package-level configuration.
var migrateMu sync.Mutex

// migrate applies all pending embedded migrations.
func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("database schema up to date", "version", version)

	return nil
}
