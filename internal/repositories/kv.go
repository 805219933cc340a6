package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// KVRepository stores string values by key in the kv_store table.
type KVRepository struct {
	db *sql.DB
}

// NewKVRepository creates a new KVRepository with the given database connection
func NewKVRepository(db *sql.DB) *KVRepository {
	return &KVRepository{db: db}
}

// Get returns the value for key. ok is false when the key is absent.
func (r *KVRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageErr("get", key, err)
	}
	return value, true, nil
}

// Set inserts or replaces the value for key.
func (r *KVRepository) Set(key, value string) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, key, value, time.Now().UTC()); err != nil {
		return storageErr("set", key, err)
	}
	return nil
}

// Remove deletes key.
func (r *KVRepository) Remove(key string) error {
	if _, err := r.db.Exec(`DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return storageErr("remove", key, err)
	}
	return nil
}

// Entry is a stored key with its last write time.
type Entry struct {
	Key       string
	UpdatedAt time.Time
}

// List returns the entries whose key starts with prefix, ordered by key.
func (r *KVRepository) List(prefix string) ([]Entry, error) {
	rows, err := r.db.Query(
		`SELECT key, updated_at FROM kv_store WHERE substr(key, 1, length(?)) = ? ORDER BY key`,
		prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}
