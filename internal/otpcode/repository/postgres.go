package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"directory-console/backend/internal/otpcode/domain"
)

// PostgresRepository stores delivery codes in one channel's table. Table names
// are fixed at construction; no caller input ever reaches the SQL text.
type PostgresRepository struct {
	db    *sql.DB
	table string
}

// NewSMSRepository returns the repository for the sms_codes table.
func NewSMSRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, table: "sms_codes"}
}

// NewEmailRepository returns the repository for the email_codes table.
func NewEmailRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, table: "email_codes"}
}

const codeColumns = `id, username, destination, code, scene, status, attempts, last_error, consumed_at, created_at, expires_at`

func (r *PostgresRepository) Create(ctx context.Context, c *domain.Code) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO `+r.table+` (`+codeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.Username, c.Destination, c.Code, c.Scene, c.Status,
		c.Attempts, c.LastError, c.ConsumedAt, c.CreatedAt, c.ExpiresAt,
	)
	return err
}

func (r *PostgresRepository) Latest(ctx context.Context, username, scene string) (*domain.Code, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+codeColumns+` FROM `+r.table+`
		WHERE username = $1 AND scene = $2
		ORDER BY created_at DESC LIMIT 1`, username, scene)
	c, err := scanCode(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) MarkConsumed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE `+r.table+` SET consumed_at = $2 WHERE id = $1 AND consumed_at IS NULL`, id, at)
	return err
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id, status, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE `+r.table+` SET status = $2, last_error = $3, attempts = attempts + 1
		WHERE id = $1`, id, status, lastError)
	return err
}

func (r *PostgresRepository) ListRetryable(ctx context.Context, maxAttempts int, now time.Time, limit int32) ([]*domain.Code, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+codeColumns+` FROM `+r.table+`
		WHERE status = $1 AND attempts < $2 AND expires_at > $3 AND consumed_at IS NULL
		ORDER BY created_at ASC LIMIT $4`, domain.StatusFailed, maxAttempts, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCodes(rows)
}

func (r *PostgresRepository) ListByUser(ctx context.Context, username string, limit int32) ([]*domain.Code, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+codeColumns+` FROM `+r.table+`
		WHERE username = $1
		ORDER BY created_at DESC LIMIT $2`, username, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCodes(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCode(row rowScanner) (*domain.Code, error) {
	var c domain.Code
	err := row.Scan(&c.ID, &c.Username, &c.Destination, &c.Code, &c.Scene,
		&c.Status, &c.Attempts, &c.LastError, &c.ConsumedAt, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCodes(rows *sql.Rows) ([]*domain.Code, error) {
	var out []*domain.Code
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
