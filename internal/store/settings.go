package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

func unixMilli() int64 {
	return time.Now().UnixMilli()
}

// Get returns the value stored under (module, key).
func (s *Store) Get(ctx context.Context, module, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE module = ? AND key = ?
	`, module, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read setting %s.%s: %w", module, key, err)
	}
	return []byte(value), true, nil
}

// Set replaces the value stored under (module, key) in a single statement.
func (s *Store) Set(ctx context.Context, module, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (module, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(module, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, module, key, string(value), s.now())
	if err != nil {
		return fmt.Errorf("write setting %s.%s: %w", module, key, err)
	}
	return nil
}

// Keys lists the setting keys stored for a module, sorted.
func (s *Store) Keys(ctx context.Context, module string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM settings WHERE module = ? ORDER BY key COLLATE BINARY ASC
	`, module)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan setting key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return keys, nil
}
