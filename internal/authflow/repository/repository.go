package repository

import (
	"context"

	"directory-console/backend/internal/authflow/domain"
)

// AttemptRepository persists login throttling state, one row per account.
type AttemptRepository interface {
	// Get returns the account's attempt row, or nil when none exists.
	Get(ctx context.Context, username string) (*domain.Attempt, error)
	// Upsert replaces the account's attempt row.
	Upsert(ctx context.Context, a *domain.Attempt) error
}
