package repository

import (
	"context"
	"database/sql"
	"errors"

	"directory-console/backend/internal/authflow/domain"
)

type PostgresAttemptRepository struct {
	db *sql.DB
}

// NewPostgresAttemptRepository returns an attempt repository backed by db.
func NewPostgresAttemptRepository(db *sql.DB) *PostgresAttemptRepository {
	return &PostgresAttemptRepository{db: db}
}

func (r *PostgresAttemptRepository) Get(ctx context.Context, username string) (*domain.Attempt, error) {
	var a domain.Attempt
	err := r.db.QueryRowContext(ctx, `
		SELECT username, fail_count, locked_until, updated_at
		FROM login_attempts WHERE username = $1`,
		username).Scan(&a.Username, &a.FailCount, &a.LockedUntil, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *PostgresAttemptRepository) Upsert(ctx context.Context, a *domain.Attempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO login_attempts (username, fail_count, locked_until, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE
		SET fail_count = EXCLUDED.fail_count,
		    locked_until = EXCLUDED.locked_until,
		    updated_at = EXCLUDED.updated_at`,
		a.Username, a.FailCount, a.LockedUntil, a.UpdatedAt,
	)
	return err
}
