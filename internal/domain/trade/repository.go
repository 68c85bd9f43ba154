package trade

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for trade data access
type Repository interface {
	Create(ctx context.Context, t *Trade) error
	GetByID(ctx context.Context, id uuid.UUID) (*Trade, error)

	// ListByStatus returns a user's trades in one lifecycle state, ordered
	// by premium capture.
	ListByStatus(ctx context.Context, userID uuid.UUID, status Status) ([]*Trade, error)

	// UpdateMetrics applies all refresh-derived fields atomically.
	UpdateMetrics(ctx context.Context, id uuid.UUID, m Metrics) error

	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	Delete(ctx context.Context, id uuid.UUID) error

	// UsersWithOpenTrades lists owners that still have open positions.
	UsersWithOpenTrades(ctx context.Context) ([]uuid.UUID, error)
}
