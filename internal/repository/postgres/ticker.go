package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"opencalc/internal/domain/ticker"
	"opencalc/pkg/errors"
)

// Compile-time check
var _ ticker.Repository = (*TickerRepository)(nil)

// TickerRepository implements ticker.Repository using sqlx
type TickerRepository struct {
	db DBTX
}

// NewTickerRepository creates a new ticker repository
func NewTickerRepository(db DBTX) *TickerRepository {
	return &TickerRepository{db: db}
}

// Create inserts a new tracked ticker
func (r *TickerRepository) Create(ctx context.Context, t *ticker.Ticker) error {
	query := `
		INSERT INTO tickers (
			id, user_id, symbol, description, category,
			last_price, volume, next_earnings,
			price_target, rank, notes,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Symbol, t.Description, t.Category,
		t.LastPrice, t.Volume, t.NextEarnings,
		t.PriceTarget, t.Rank, t.Notes,
		t.CreatedAt, t.UpdatedAt,
	)

	return err
}

// Get retrieves one user's row for a symbol
func (r *TickerRepository) Get(ctx context.Context, userID uuid.UUID, symbol string) (*ticker.Ticker, error) {
	var t ticker.Ticker

	query := `SELECT * FROM tickers WHERE user_id = $1 AND symbol = $2`

	err := r.db.GetContext(ctx, &t, query, userID, symbol)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "ticker %s for user %s", symbol, userID)
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// ListByUser retrieves all tickers a user follows, best ranked first
func (r *TickerRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*ticker.Ticker, error) {
	var tickers []*ticker.Ticker

	query := `
		SELECT * FROM tickers
		WHERE user_id = $1
		ORDER BY rank DESC, symbol ASC`

	err := r.db.SelectContext(ctx, &tickers, query, userID)
	if err != nil {
		return nil, err
	}

	return tickers, nil
}

// DistinctSymbols lists every symbol tracked by at least one user
func (r *TickerRepository) DistinctSymbols(ctx context.Context) ([]string, error) {
	var symbols []string

	query := `SELECT DISTINCT symbol FROM tickers ORDER BY symbol ASC`

	err := r.db.SelectContext(ctx, &symbols, query)
	if err != nil {
		return nil, err
	}

	return symbols, nil
}

// UpdateQuote applies refreshed market data to every row for a symbol
func (r *TickerRepository) UpdateQuote(ctx context.Context, symbol string, q ticker.QuoteUpdate) error {
	query := `
		UPDATE tickers SET
			last_price = $2,
			volume = $3,
			category = $4,
			updated_at = NOW()
		WHERE symbol = $1`

	_, err := r.db.ExecContext(ctx, query, symbol, q.LastPrice, q.Volume, q.Category)
	return err
}

// UpdateNotes replaces the user's notes for a symbol
func (r *TickerRepository) UpdateNotes(ctx context.Context, userID uuid.UUID, symbol, notes string) error {
	query := `
		UPDATE tickers SET
			notes = $3,
			updated_at = NOW()
		WHERE user_id = $1 AND symbol = $2`

	return r.execExpectingRow(ctx, query, userID, symbol, notes)
}

// SetPriceTarget sets the user's price target for a symbol
func (r *TickerRepository) SetPriceTarget(ctx context.Context, userID uuid.UUID, symbol string, target decimal.Decimal) error {
	query := `
		UPDATE tickers SET
			price_target = $3,
			updated_at = NOW()
		WHERE user_id = $1 AND symbol = $2`

	return r.execExpectingRow(ctx, query, userID, symbol, target)
}

// SetRank stores the computed rank on every row for a symbol
func (r *TickerRepository) SetRank(ctx context.Context, symbol string, rank decimal.Decimal) error {
	query := `
		UPDATE tickers SET
			rank = $2,
			updated_at = NOW()
		WHERE symbol = $1`

	_, err := r.db.ExecContext(ctx, query, symbol, rank)
	return err
}

// Delete removes one user's row for a symbol
func (r *TickerRepository) Delete(ctx context.Context, userID uuid.UUID, symbol string) error {
	query := `DELETE FROM tickers WHERE user_id = $1 AND symbol = $2`
	return r.execExpectingRow(ctx, query, userID, symbol)
}

func (r *TickerRepository) execExpectingRow(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrap(errors.ErrNotFound, "ticker not tracked")
	}

	return nil
}
