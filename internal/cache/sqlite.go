package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"friendbot/pkg/friendbot"
)

// SQLiteBackend stores durable cache entries in the kv_entries table of the
// bot database. Expiry is lazy: expired rows are dropped when they are next
// touched, so restarts cannot resurrect stale values.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend wraps an open bot database.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

// Get implements Backend.
func (b *SQLiteBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value     string
		expiresAt sql.NullInt64
	)
	err := b.db.QueryRowContext(
		ctx,
		`SELECT value, expires_at FROM kv_entries WHERE key = ?`,
		key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read kv entry %s: %w", key, err)
	}
	if expired(expiresAt) {
		if err := b.deleteExpired(ctx, key); err != nil {
			return "", false, err
		}

		return "", false, nil
	}

	return value, true, nil
}

// Set implements Backend.
func (b *SQLiteBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := b.db.ExecContext(
		ctx,
		`INSERT INTO kv_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiryColumn(ttl),
	)
	if err != nil {
		return fmt.Errorf("write kv entry %s: %w", key, err)
	}

	return nil
}

// SetIfAbsent implements Backend.
func (b *SQLiteBackend) SetIfAbsent(
	ctx context.Context,
	key, value string,
	ttl time.Duration,
) (bool, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin kv insert %s: %w", key, err)
	}
	defer tx.Rollback()

	// An expired row must not block the insert.
	if _, err := tx.ExecContext(
		ctx,
		`DELETE FROM kv_entries WHERE key = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		key, time.Now().UnixMilli(),
	); err != nil {
		return false, fmt.Errorf("expire kv entry %s: %w", key, err)
	}

	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO kv_entries (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO NOTHING`,
		key, value, expiryColumn(ttl),
	)
	if err != nil {
		return false, fmt.Errorf("insert kv entry %s: %w", key, err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert kv entry %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit kv insert %s: %w", key, err)
	}

	return inserted > 0, nil
}

// Exists implements Backend.
func (b *SQLiteBackend) Exists(ctx context.Context, key string) (bool, error) {
	_, exists, err := b.Get(ctx, key)

	return exists, err
}

// Delete implements Backend.
func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete kv entry %s: %w", key, err)
	}

	return nil
}

// Ping implements Backend.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping kv store: %w", err)
	}

	return nil
}

func (b *SQLiteBackend) deleteExpired(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(
		ctx,
		`DELETE FROM kv_entries WHERE key = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		key, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("expire kv entry %s: %w", key, err)
	}

	return nil
}

// expired reports whether a stored expiry column is in the past.
func expired(expiresAt sql.NullInt64) bool {
	return expiresAt.Valid && expiresAt.Int64 <= time.Now().UnixMilli()
}

// expiryColumn converts a TTL into the nullable unix-millisecond column value.
func expiryColumn(ttl time.Duration) sql.NullInt64 {
	if ttl == friendbot.Forever {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: time.Now().Add(ttl).UnixMilli(), Valid: true}
}
