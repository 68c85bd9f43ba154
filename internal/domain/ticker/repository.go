package ticker

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for tracked-ticker data access
type Repository interface {
	Create(ctx context.Context, t *Ticker) error
	Get(ctx context.Context, userID uuid.UUID, symbol string) (*Ticker, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Ticker, error)

	// DistinctSymbols lists every symbol tracked by at least one user.
	DistinctSymbols(ctx context.Context) ([]string, error)

	// UpdateQuote applies refreshed market data to all rows for a symbol.
	UpdateQuote(ctx context.Context, symbol string, q QuoteUpdate) error

	UpdateNotes(ctx context.Context, userID uuid.UUID, symbol, notes string) error
	SetPriceTarget(ctx context.Context, userID uuid.UUID, symbol string, target decimal.Decimal) error
	SetRank(ctx context.Context, symbol string, rank decimal.Decimal) error

	Delete(ctx context.Context, userID uuid.UUID, symbol string) error
}
