package strike

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository defines the interface for snapshot record access.
// Records are replaced wholesale per symbol; there is no incremental update.
type Repository interface {
	InsertBatch(ctx context.Context, records []Record) error
	DeleteBySymbol(ctx context.Context, symbol string) error

	// TopPut returns the best scored put for a symbol across all
	// expirations, ordered by (opti desc, strike desc).
	TopPut(ctx context.Context, symbol string) (*Record, error)

	// TopPutByExpiration returns the highest-strike scored put within one
	// expiration.
	TopPutByExpiration(ctx context.Context, symbol string, expiration time.Time) (*Record, error)

	// LongCandidate returns the lowest-strike put strictly inside
	// (floor, ceiling) for a symbol and expiration.
	LongCandidate(ctx context.Context, symbol string, expiration time.Time, floor, ceiling decimal.Decimal) (*Record, error)

	// FindContract locates the record matching one exact contract.
	FindContract(ctx context.Context, symbol string, optionType OptionType, expiration time.Time, strikePrice decimal.Decimal) (*Record, error)

	// PutsByExpiration lists scored and reference puts for one expiration,
	// strike ascending.
	PutsByExpiration(ctx context.Context, symbol string, expiration time.Time) ([]Record, error)
}
