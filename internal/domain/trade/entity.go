package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"opencalc/internal/domain/strike"
	"opencalc/pkg/errors"
	"opencalc/pkg/quant"
)

// Trade is an open or archived option position. The initial premium is
// fixed at creation; only the derived tracking fields are refreshed.
type Trade struct {
	ID     uuid.UUID `db:"id"`
	UserID uuid.UUID `db:"user_id"`

	Symbol     string            `db:"symbol"`
	OptionType strike.OptionType `db:"option_type"`
	Strategy   Strategy          `db:"strategy"`
	Expiration time.Time         `db:"expiration"`

	Strike1 decimal.Decimal `db:"strike1"` // short leg
	Strike2 decimal.Decimal `db:"strike2"` // long leg, spreads only

	InitPremium decimal.Decimal `db:"init_premium"`
	InitDays    int             `db:"init_days"`
	Quantity    int             `db:"quantity"`

	// Refreshed tracking fields
	DaysLeft       int             `db:"days_left"`
	CurrentPremium decimal.Decimal `db:"current_premium"`
	PremiumCapture decimal.Decimal `db:"premium_capture"`
	OTM            decimal.Decimal `db:"otm"`

	ROR  decimal.Decimal `db:"ror"`
	Opti decimal.Decimal `db:"opti"`
	Note string          `db:"note"`

	Status    Status    `db:"status"`
	OpenedAt  time.Time `db:"opened_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Strategy identifies the position structure
type Strategy int

const (
	StrategyCashSecuredPut  Strategy = 1
	StrategyPutCreditSpread Strategy = 2
)

// Valid checks if the strategy is valid
func (s Strategy) Valid() bool {
	return s == StrategyCashSecuredPut || s == StrategyPutCreditSpread
}

// String returns string representation
func (s Strategy) String() string {
	switch s {
	case StrategyCashSecuredPut:
		return "cash_secured_put"
	case StrategyPutCreditSpread:
		return "put_credit_spread"
	}
	return "unknown"
}

// Status defines the trade lifecycle state. Transitions only open→archived;
// archived trades are never recomputed.
type Status int

const (
	StatusOpen     Status = 1
	StatusArchived Status = 2
)

// Valid checks if the status is valid
func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusArchived
}

// IsOpen returns true if the trade is still tracked
func (s Status) IsOpen() bool {
	return s == StatusOpen
}

// Metrics bundles the derived fields recomputed each refresh cycle so they
// can be applied in one statement rather than field by field.
type Metrics struct {
	DaysLeft       int
	CurrentPremium decimal.Decimal
	PremiumCapture decimal.Decimal
	OTM            decimal.Decimal
}

// CaptureRate is the percentage of the initial premium already captured,
// quantized to the nickel tick: quantize((init-current)/init, 0.05)*100.
// A zero initial premium is a contract violation.
func CaptureRate(initial, current decimal.Decimal) (decimal.Decimal, error) {
	if initial.IsZero() {
		return decimal.Zero, errors.Wrap(errors.ErrZeroPremium, "premium capture")
	}

	captured, err := quant.Quantize(initial.Sub(current).Div(initial), quant.TickNickel)
	if err != nil {
		return decimal.Zero, err
	}
	return captured.Mul(decimal.NewFromInt(100)), nil
}
