package repository

import (
	"context"

	"directory-console/backend/internal/audit/domain"
)

// Repository persists audit events. The trail is append-only; there is no
// update or delete.
type Repository interface {
	Create(ctx context.Context, e *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, f domain.ListFilter) ([]*domain.Event, error)
}
