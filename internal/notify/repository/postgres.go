package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"directory-console/backend/internal/notify/domain"
)

type PostgresNoticeRepository struct {
	db *sql.DB
}

// NewPostgresNoticeRepository returns a notice repository backed by db.
func NewPostgresNoticeRepository(db *sql.DB) *PostgresNoticeRepository {
	return &PostgresNoticeRepository{db: db}
}

func (r *PostgresNoticeRepository) Exists(ctx context.Context, username string, daysLeft int, notifyDate time.Time) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM password_expiry_notifies
		WHERE username = $1 AND days_left = $2 AND notify_date = $3
		LIMIT 1`, username, daysLeft, notifyDate).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PostgresNoticeRepository) Record(ctx context.Context, n *domain.Notice) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_expiry_notifies (username, days_left, notify_date, status, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		n.Username, n.DaysLeft, n.NotifyDate, n.Status, nullString(n.LastError), n.CreatedAt,
	)
	return err
}

func (r *PostgresNoticeRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Notice, error) {
	var (
		where []string
		args  []any
	)
	if f.Username != "" {
		args = append(args, f.Username)
		where = append(where, fmt.Sprintf("username = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `SELECT id, username, days_left, notify_date, status, last_error, created_at
		FROM password_expiry_notifies`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Notice
	for rows.Next() {
		var (
			n       domain.Notice
			lastErr sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.Username, &n.DaysLeft, &n.NotifyDate,
			&n.Status, &lastErr, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.LastError = lastErr.String
		out = append(out, &n)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
