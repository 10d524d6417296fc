// Package sysconfig manages runtime configuration overrides persisted in the
// database. Overrides layer on top of the process environment; every change
// is appended to a history table and can be rolled back.
package sysconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"directory-console/backend/internal/apperr"
)

// HistoryEntry is one recorded override value. Rolling back to an entry
// re-applies its value as a fresh change.
type HistoryEntry struct {
	ID        int64
	Key       string
	Value     json.RawMessage
	CreatedAt time.Time
}

// Store reads and writes configuration overrides.
type Store struct {
	db   *sql.DB
	nowF func() time.Time
}

// NewStore returns a Store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, nowF: func() time.Time { return time.Now().UTC() }}
}

// GetAll returns every override keyed by name.
func (s *Store) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value_json FROM system_config`)
	if err != nil {
		return nil, fmt.Errorf("sysconfig: load overrides: %w", err)
	}
	defer rows.Close()

	out := map[string]json.RawMessage{}
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = json.RawMessage(value)
	}
	return out, rows.Err()
}

// Get returns one override value, or nil when the key has no override.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT value_json FROM system_config WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sysconfig: load %s: %w", key, err)
	}
	return json.RawMessage(value), nil
}

// Set upserts the override and appends it to the history, in one transaction.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "value is not serializable", err)
	}
	return s.setRaw(ctx, key, raw)
}

func (s *Store) setRaw(ctx context.Context, key string, raw []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sysconfig: begin: %w", err)
	}
	defer tx.Rollback()

	now := s.nowF()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO system_config (key, value_json, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value_json = EXCLUDED.value_json, updated_at = EXCLUDED.updated_at`,
		key, raw, now); err != nil {
		return fmt.Errorf("sysconfig: upsert %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO system_config_history (key, value_json, created_at)
		VALUES ($1, $2, $3)`, key, raw, now); err != nil {
		return fmt.Errorf("sysconfig: append history for %s: %w", key, err)
	}
	return tx.Commit()
}

// SetMany applies a batch of overrides, each with its own history entry.
func (s *Store) SetMany(ctx context.Context, values map[string]any) error {
	for key, value := range values {
		if err := s.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// History returns recent override changes, newest first.
func (s *Store) History(ctx context.Context, limit int32) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, value_json, created_at FROM system_config_history
		ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("sysconfig: load history: %w", err)
	}
	defer rows.Close()

	var out []*HistoryEntry
	for rows.Next() {
		var (
			e     HistoryEntry
			value []byte
		)
		if err := rows.Scan(&e.ID, &e.Key, &value, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Value = json.RawMessage(value)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Rollback re-applies the value recorded in the given history entry. The
// rollback itself lands in the history like any other change.
func (s *Store) Rollback(ctx context.Context, historyID int64) error {
	var (
		key   string
		value []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT key, value_json FROM system_config_history WHERE id = $1`,
		historyID).Scan(&key, &value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "history entry not found")
		}
		return fmt.Errorf("sysconfig: load history entry: %w", err)
	}
	return s.setRaw(ctx, key, value)
}
