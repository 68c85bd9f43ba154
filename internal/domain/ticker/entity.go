package ticker

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ticker is a symbol a user follows. Created on the first quote lookup for
// a user+symbol pair, updated in place on every refresh.
type Ticker struct {
	ID     uuid.UUID `db:"id"`
	UserID uuid.UUID `db:"user_id"`

	Symbol      string          `db:"symbol"`
	Description string          `db:"description"`
	Category    string          `db:"category"` // provider security type: stock, etf, index
	LastPrice   decimal.Decimal `db:"last_price"`
	Volume      int64           `db:"volume"`

	NextEarnings string          `db:"next_earnings"`
	PriceTarget  decimal.Decimal `db:"price_target"`
	Rank         decimal.Decimal `db:"rank"`
	Notes        string          `db:"notes"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// QuoteUpdate carries the provider-refreshed fields applied to every
// tracked row for a symbol.
type QuoteUpdate struct {
	LastPrice decimal.Decimal
	Volume    int64
	Category  string
}
