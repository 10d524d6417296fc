package repository

import (
	"context"
	"database/sql"
	"errors"

	"directory-console/backend/internal/secondfactor/domain"
)

type PostgresSecretRepository struct {
	db *sql.DB
}

// NewPostgresSecretRepository returns a secret repository backed by db.
func NewPostgresSecretRepository(db *sql.DB) *PostgresSecretRepository {
	return &PostgresSecretRepository{db: db}
}

func (r *PostgresSecretRepository) Get(ctx context.Context, username string) (*domain.Secret, error) {
	var s domain.Secret
	err := r.db.QueryRowContext(ctx, `
		SELECT username, secret, enabled, updated_at FROM otp_secrets WHERE username = $1`,
		username).Scan(&s.Username, &s.Secret, &s.Enabled, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *PostgresSecretRepository) Upsert(ctx context.Context, s *domain.Secret) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otp_secrets (username, secret, enabled, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE
		SET secret = EXCLUDED.secret, enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at`,
		s.Username, s.Secret, s.Enabled, s.UpdatedAt,
	)
	return err
}

func (r *PostgresSecretRepository) Enable(ctx context.Context, username string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE otp_secrets SET enabled = TRUE WHERE username = $1`, username)
	return err
}

type PostgresGrantRepository struct {
	db *sql.DB
}

// NewPostgresGrantRepository returns a grant repository backed by db.
func NewPostgresGrantRepository(db *sql.DB) *PostgresGrantRepository {
	return &PostgresGrantRepository{db: db}
}

func (r *PostgresGrantRepository) Get(ctx context.Context, username string) (*domain.Grant, error) {
	var g domain.Grant
	err := r.db.QueryRowContext(ctx, `
		SELECT username, verified_at, expires_at FROM elevation_grants WHERE username = $1`,
		username).Scan(&g.Username, &g.VerifiedAt, &g.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *PostgresGrantRepository) Upsert(ctx context.Context, g *domain.Grant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO elevation_grants (username, verified_at, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE
		SET verified_at = EXCLUDED.verified_at, expires_at = EXCLUDED.expires_at`,
		g.Username, g.VerifiedAt, g.ExpiresAt,
	)
	return err
}
