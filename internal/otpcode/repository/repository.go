package repository

import (
	"context"
	"time"

	"directory-console/backend/internal/otpcode/domain"
)

// Repository persists delivery codes for one channel. The sms and email
// channels use separate tables with the same shape; New*Repository picks the
// table.
type Repository interface {
	Create(ctx context.Context, c *domain.Code) error
	// Latest returns the most recently created code for username and scene,
	// or nil when none exists.
	Latest(ctx context.Context, username, scene string) (*domain.Code, error)
	MarkConsumed(ctx context.Context, id string, at time.Time) error
	// SetStatus records the delivery outcome and bumps the attempt counter.
	// lastError carries the provider message on failure, empty on success.
	SetStatus(ctx context.Context, id, status, lastError string) error
	// ListRetryable returns failed codes with attempts below maxAttempts that
	// have not expired by now, oldest first, at most limit rows.
	ListRetryable(ctx context.Context, maxAttempts int, now time.Time, limit int32) ([]*domain.Code, error)
	// ListByUser returns the user's recent codes, newest first.
	ListByUser(ctx context.Context, username string, limit int32) ([]*domain.Code, error)
}
