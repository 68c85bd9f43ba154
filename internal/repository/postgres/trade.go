package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"opencalc/internal/domain/trade"
	"opencalc/pkg/errors"
)

// Compile-time check
var _ trade.Repository = (*TradeRepository)(nil)

// TradeRepository implements trade.Repository using sqlx
type TradeRepository struct {
	db DBTX
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db DBTX) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts a new trade
func (r *TradeRepository) Create(ctx context.Context, t *trade.Trade) error {
	query := `
		INSERT INTO trades (
			id, user_id, symbol, option_type, strategy, expiration,
			strike1, strike2, init_premium, init_days, quantity,
			days_left, current_premium, premium_capture, otm,
			ror, opti, note,
			status, opened_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Symbol, t.OptionType, t.Strategy, t.Expiration,
		t.Strike1, t.Strike2, t.InitPremium, t.InitDays, t.Quantity,
		t.DaysLeft, t.CurrentPremium, t.PremiumCapture, t.OTM,
		t.ROR, t.Opti, t.Note,
		t.Status, t.OpenedAt, t.UpdatedAt,
	)

	return err
}

// GetByID retrieves a trade by ID
func (r *TradeRepository) GetByID(ctx context.Context, id uuid.UUID) (*trade.Trade, error) {
	var t trade.Trade

	query := `SELECT * FROM trades WHERE id = $1`

	err := r.db.GetContext(ctx, &t, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "trade %s", id)
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// ListByStatus retrieves a user's trades in one lifecycle state,
// best captured first
func (r *TradeRepository) ListByStatus(ctx context.Context, userID uuid.UUID, status trade.Status) ([]*trade.Trade, error) {
	var trades []*trade.Trade

	query := `
		SELECT * FROM trades
		WHERE user_id = $1 AND status = $2
		ORDER BY premium_capture DESC, opened_at DESC`

	err := r.db.SelectContext(ctx, &trades, query, userID, status)
	if err != nil {
		return nil, err
	}

	return trades, nil
}

// UpdateMetrics applies all refresh-derived fields in one statement
func (r *TradeRepository) UpdateMetrics(ctx context.Context, id uuid.UUID, m trade.Metrics) error {
	query := `
		UPDATE trades SET
			days_left = $2,
			current_premium = $3,
			premium_capture = $4,
			otm = $5,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		id, m.DaysLeft, m.CurrentPremium, m.PremiumCapture, m.OTM,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "trade %s", id)
	}

	return nil
}

// SetStatus moves a trade to a new lifecycle state
func (r *TradeRepository) SetStatus(ctx context.Context, id uuid.UUID, status trade.Status) error {
	query := `
		UPDATE trades SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "trade %s", id)
	}

	return nil
}

// Delete deletes a trade
func (r *TradeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM trades WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// UsersWithOpenTrades lists owners that still have open positions
func (r *TradeRepository) UsersWithOpenTrades(ctx context.Context) ([]uuid.UUID, error) {
	var users []uuid.UUID

	query := `
		SELECT DISTINCT user_id FROM trades
		WHERE status = $1`

	err := r.db.SelectContext(ctx, &users, query, trade.StatusOpen)
	if err != nil {
		return nil, err
	}

	return users, nil
}
