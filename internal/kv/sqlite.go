package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLite stores values in the workspace database's kv table.
type SQLite struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s SQLite) now() string {
	if s.Now != nil {
		return s.Now().UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func (s SQLite) Read(key string) (string, bool, error) {
	var v string
	err := s.DB.QueryRowContext(context.Background(), `SELECT value FROM kv WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return v, true, nil
}

const sqliteUpsert = `INSERT INTO kv(key,value,updated_at) VALUES (?,?,?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`

func (s SQLite) Write(key, value string) error {
	_, err := s.DB.ExecContext(context.Background(), sqliteUpsert, key, value, s.now())
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s SQLite) Remove(key string) error {
	if _, err := s.DB.ExecContext(context.Background(), `DELETE FROM kv WHERE key=?`, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// WriteBatch applies entries in one transaction.
func (s SQLite) WriteBatch(entries []Entry) error {
	ctx := context.Background()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()
	now := s.now()
	for _, e := range entries {
		if e.Delete {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, e.Key); err != nil {
				return fmt.Errorf("remove %s: %w", e.Key, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, sqliteUpsert, e.Key, e.Value, now); err != nil {
			return fmt.Errorf("write %s: %w", e.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
