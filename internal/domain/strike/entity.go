package strike

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Record is one scored option contract from the current snapshot.
// The full set for a symbol is deleted and regenerated on every refresh;
// records are derived data with no historical retention.
type Record struct {
	ID         uuid.UUID  `db:"id"`
	Symbol     string     `db:"symbol"`
	OptionType OptionType `db:"option_type"`
	Expiration time.Time  `db:"expiration"`

	Strike  decimal.Decimal `db:"strike"`
	Premium decimal.Decimal `db:"premium"` // quantized mid
	Volume  int64           `db:"volume"`
	Days    int             `db:"days"` // days to expiration at refresh time

	Moneyness    Moneyness       `db:"moneyness"`
	OpenInterest int64           `db:"open_interest"`
	Opti         decimal.Decimal `db:"opti"` // composite ranking score, 0 for calls and out-of-band puts

	UpdatedAt time.Time `db:"updated_at"`
}

// ContractQuote is a raw option contract quote as delivered by the
// market-data provider, before filtering and scoring.
type ContractQuote struct {
	OptionType    OptionType
	Strike        decimal.Decimal
	Bid           decimal.Decimal
	Ask           decimal.Decimal
	BidSize       int64
	AskSize       int64
	OpenInterest  int64
	Volume        int64
	AverageVolume int64
}

// OptionType distinguishes puts from calls
type OptionType string

const (
	OptionPut  OptionType = "put"
	OptionCall OptionType = "call"
)

// Valid checks if the option type is valid
func (t OptionType) Valid() bool {
	return t == OptionPut || t == OptionCall
}

// String returns string representation
func (t OptionType) String() string {
	return string(t)
}

// Moneyness flags where a contract sits relative to the underlying price.
// A put is OTM only when it passes the in-range check; everything else,
// including all calls, is recorded as ITM reference data.
type Moneyness string

const (
	MoneynessOTM Moneyness = "O"
	MoneynessATM Moneyness = "A"
	MoneynessITM Moneyness = "I"
)

// Valid checks if the moneyness flag is valid
func (m Moneyness) Valid() bool {
	switch m {
	case MoneynessOTM, MoneynessATM, MoneynessITM:
		return true
	}
	return false
}

// String returns string representation
func (m Moneyness) String() string {
	return string(m)
}

// DaysUntil counts whole days from now's date to the expiration date.
// Negative once the expiration has passed.
func DaysUntil(expiration, now time.Time) int {
	a := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(expiration.Year(), expiration.Month(), expiration.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
