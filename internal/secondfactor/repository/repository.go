package repository

import (
	"context"

	"directory-console/backend/internal/secondfactor/domain"
)

// SecretRepository persists authenticator secrets, one row per user.
type SecretRepository interface {
	// Get returns the user's secret, or nil when none exists.
	Get(ctx context.Context, username string) (*domain.Secret, error)
	// Upsert replaces the user's secret row.
	Upsert(ctx context.Context, s *domain.Secret) error
	// Enable flips the user's secret to enabled.
	Enable(ctx context.Context, username string) error
}

// GrantRepository persists elevation grants, one row per user.
type GrantRepository interface {
	// Get returns the user's grant, or nil when none exists.
	Get(ctx context.Context, username string) (*domain.Grant, error)
	// Upsert replaces the user's grant row.
	Upsert(ctx context.Context, g *domain.Grant) error
}
