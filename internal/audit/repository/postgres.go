package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"directory-console/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const eventColumns = `id, actor, actor_role, action, target, outcome, ip, user_agent, detail, before_json, after_json, created_at`

// Create appends one event. The event must have ID and CreatedAt set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Actor, e.ActorRole, e.Action, e.Target, e.Outcome,
		e.IP, e.UserAgent, e.Detail, nullJSON(e.Before), nullJSON(e.After), e.CreatedAt,
	)
	return err
}

// GetByID returns the event for id, or nil if not found. It returns an error
// only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM audit_logs WHERE id = $1`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// List returns events matching the filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Event, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Actor != "" {
		add("actor = $%d", f.Actor)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.Target != "" {
		add("target = $%d", f.Target)
	}
	if f.Outcome != "" {
		add("outcome = $%d", f.Outcome)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	if !f.Until.IsZero() {
		add("created_at < $%d", f.Until)
	}

	q := `SELECT ` + eventColumns + ` FROM audit_logs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, f.Offset)
	q += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var (
		e             domain.Event
		before, after []byte
	)
	err := row.Scan(&e.ID, &e.Actor, &e.ActorRole, &e.Action, &e.Target, &e.Outcome,
		&e.IP, &e.UserAgent, &e.Detail, &before, &after, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Before = before
	e.After = after
	return &e, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
