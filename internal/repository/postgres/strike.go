package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"opencalc/internal/domain/strike"
	"opencalc/pkg/errors"
)

// Compile-time check
var _ strike.Repository = (*StrikeRepository)(nil)

// StrikeRepository implements strike.Repository using sqlx
type StrikeRepository struct {
	db DBTX
}

// NewStrikeRepository creates a new strike repository
func NewStrikeRepository(db DBTX) *StrikeRepository {
	return &StrikeRepository{db: db}
}

// InsertBatch inserts a batch of snapshot records
func (r *StrikeRepository) InsertBatch(ctx context.Context, records []strike.Record) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO strikes (
			id, symbol, option_type, expiration,
			strike, premium, volume, days,
			moneyness, open_interest, opti, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	for i, rec := range records {
		_, err := r.db.ExecContext(ctx, query,
			rec.ID, rec.Symbol, rec.OptionType, rec.Expiration,
			rec.Strike, rec.Premium, rec.Volume, rec.Days,
			rec.Moneyness, rec.OpenInterest, rec.Opti, rec.UpdatedAt,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to insert strike at index %d", i)
		}
	}

	return nil
}

// DeleteBySymbol removes every snapshot record for a symbol
func (r *StrikeRepository) DeleteBySymbol(ctx context.Context, symbol string) error {
	query := `DELETE FROM strikes WHERE symbol = $1`
	_, err := r.db.ExecContext(ctx, query, symbol)
	return err
}

// TopPut returns the best scored put across all expirations
func (r *StrikeRepository) TopPut(ctx context.Context, symbol string) (*strike.Record, error) {
	var rec strike.Record

	query := `
		SELECT * FROM strikes
		WHERE symbol = $1
		  AND option_type = 'put'
		  AND opti > 0
		ORDER BY opti DESC, strike DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &rec, query, symbol)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNoCandidate, "no scored put for %s", symbol)
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// TopPutByExpiration returns the highest-strike scored put within one expiration
func (r *StrikeRepository) TopPutByExpiration(ctx context.Context, symbol string, expiration time.Time) (*strike.Record, error) {
	var rec strike.Record

	query := `
		SELECT * FROM strikes
		WHERE symbol = $1
		  AND option_type = 'put'
		  AND opti > 0
		  AND expiration = $2
		ORDER BY strike DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &rec, query, symbol, expiration)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNoCandidate, "no scored put for %s at %s", symbol, expiration.Format("2006-01-02"))
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// LongCandidate returns the lowest-strike put strictly inside (floor, ceiling)
func (r *StrikeRepository) LongCandidate(ctx context.Context, symbol string, expiration time.Time, floor, ceiling decimal.Decimal) (*strike.Record, error) {
	var rec strike.Record

	query := `
		SELECT * FROM strikes
		WHERE symbol = $1
		  AND option_type = 'put'
		  AND expiration = $2
		  AND strike > $3
		  AND strike < $4
		ORDER BY strike ASC
		LIMIT 1`

	err := r.db.GetContext(ctx, &rec, query, symbol, expiration, floor, ceiling)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNoCandidate, "no long leg for %s between %s and %s", symbol, floor, ceiling)
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// FindContract locates the record matching one exact contract
func (r *StrikeRepository) FindContract(ctx context.Context, symbol string, optionType strike.OptionType, expiration time.Time, strikePrice decimal.Decimal) (*strike.Record, error) {
	var rec strike.Record

	query := `
		SELECT * FROM strikes
		WHERE symbol = $1
		  AND option_type = $2
		  AND expiration = $3
		  AND strike = $4
		LIMIT 1`

	err := r.db.GetContext(ctx, &rec, query, symbol, optionType, expiration, strikePrice)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrStaleStrike, "%s %s %s %s not in snapshot", symbol, optionType, expiration.Format("2006-01-02"), strikePrice)
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// PutsByExpiration lists all puts for one expiration, strike ascending
func (r *StrikeRepository) PutsByExpiration(ctx context.Context, symbol string, expiration time.Time) ([]strike.Record, error) {
	var records []strike.Record

	query := `
		SELECT * FROM strikes
		WHERE symbol = $1
		  AND option_type = 'put'
		  AND expiration = $2
		ORDER BY strike ASC`

	err := r.db.SelectContext(ctx, &records, query, symbol, expiration)
	if err != nil {
		return nil, err
	}

	return records, nil
}
