package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fourall/internal/database"
	"fourall/internal/models"
)

// KVEntry is one row of the key/value store
type KVEntry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// KVRepository stores opaque string values under string keys
type KVRepository struct {
	db database.DBTX
}

func NewKVRepository(db database.DBTX) *KVRepository {
	return &KVRepository{db: db}
}

// Get retrieves a value by key, returning models.ErrNotFound when absent
func (r *KVRepository) Get(ctx context.Context, key string) (KVEntry, error) {
	entry := KVEntry{Key: key}
	query := `SELECT store_value, updated_at FROM kv_store WHERE store_key = ?`
	err := r.db.QueryRowContext(ctx, query, key).Scan(&entry.Value, &entry.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return KVEntry{}, models.ErrNotFound
	}
	if err != nil {
		return KVEntry{}, fmt.Errorf("get %s: %w", key, err)
	}
	return entry, nil
}

// Set updates or inserts a value
func (r *KVRepository) Set(ctx context.Context, key, value string, updatedAt time.Time) error {
	query := r.db.GetDialect().UpsertKV()
	if _, err := r.db.ExecContext(ctx, query, key, value, updatedAt.UTC()); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key; deleting an absent key is not an error
func (r *KVRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_store WHERE store_key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// ListPrefix returns every entry whose key starts with prefix, ordered by key
func (r *KVRepository) ListPrefix(ctx context.Context, prefix string) ([]KVEntry, error) {
	query := `SELECT store_key, store_value, updated_at FROM kv_store WHERE store_key LIKE ? ORDER BY store_key`
	rows, err := r.db.QueryContext(ctx, query, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	var entries []KVEntry
	for rows.Next() {
		var e KVEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteOlderThan removes entries under prefix last updated before cutoff
func (r *KVRepository) DeleteOlderThan(ctx context.Context, prefix string, cutoff time.Time) (int64, error) {
	query := `DELETE FROM kv_store WHERE store_key LIKE ? AND updated_at < ?`
	result, err := r.db.ExecContext(ctx, query, prefix+"%", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired %s: %w", prefix, err)
	}
	return result.RowsAffected()
}
