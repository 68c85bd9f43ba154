package marketdata

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"opencalc/internal/domain/strike"
)

// Provider defines the contract a market-data source must satisfy.
type Provider interface {
	Name() string

	// GetQuote returns the real-time last price, volume and description
	// for a symbol.
	GetQuote(ctx context.Context, symbol string) (*Quote, error)

	// GetExpirations lists the available option expiration dates.
	GetExpirations(ctx context.Context, symbol string) ([]time.Time, error)

	// GetChain returns the full option chain for a symbol and expiration.
	GetChain(ctx context.Context, symbol string, expiration time.Time) ([]strike.ContractQuote, error)
}

// Quote is a real-time underlying quote.
type Quote struct {
	Symbol      string          `json:"symbol"`
	Description string          `json:"description"`
	Last        decimal.Decimal `json:"last"`
	Volume      int64           `json:"volume"`
	Type        string          `json:"type"` // stock, etf, index
}
