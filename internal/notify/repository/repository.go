package repository

import (
	"context"
	"time"

	"directory-console/backend/internal/notify/domain"
)

// NoticeRepository persists expiry notice attempts.
type NoticeRepository interface {
	// Exists reports whether a notice was already attempted for the
	// idempotency triple.
	Exists(ctx context.Context, username string, daysLeft int, notifyDate time.Time) (bool, error)
	// Record appends one notice attempt.
	Record(ctx context.Context, n *domain.Notice) error
	// List returns recent notices matching the filter, newest first.
	List(ctx context.Context, f domain.ListFilter) ([]*domain.Notice, error)
}
