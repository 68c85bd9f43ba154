package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"opencalc/internal/adapters/marketdata"
	"opencalc/internal/domain/strike"
	"opencalc/internal/domain/trade"
	"opencalc/internal/metrics"
	"opencalc/pkg/errors"
	"opencalc/pkg/logger"
)

// SnapshotRefresher regenerates the strike snapshot for one symbol before
// open trades are matched against it.
type SnapshotRefresher interface {
	Refresh(ctx context.Context, symbol string) error
}

// Service tracks open option positions across their lifecycle
type Service struct {
	trades    trade.Repository
	strikes   strike.Repository
	provider  marketdata.Provider
	snapshots SnapshotRefresher
	log       *logger.Logger
}

// NewService creates a new tracker service
func NewService(trades trade.Repository, strikes strike.Repository, provider marketdata.Provider, snapshots SnapshotRefresher, log *logger.Logger) *Service {
	return &Service{
		trades:    trades,
		strikes:   strikes,
		provider:  provider,
		snapshots: snapshots,
		log:       log,
	}
}

// OpenParams describes a new position taken from a proposal.
type OpenParams struct {
	UserID     uuid.UUID
	Symbol     string
	Strategy   trade.Strategy
	Expiration time.Time

	Strike1 decimal.Decimal
	Strike2 decimal.Decimal // spreads only

	Premium decimal.Decimal
	Days    int
	ROR     decimal.Decimal
	Opti    decimal.Decimal
}

// Open records a new position. The initial premium and tenor are frozen at
// entry; tracking fields start from them and diverge on refresh.
func (s *Service) Open(ctx context.Context, p OpenParams) (*trade.Trade, error) {
	if !p.Strategy.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown strategy %d", p.Strategy)
	}
	if p.Symbol == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "symbol is required")
	}
	if p.Strategy == trade.StrategyPutCreditSpread && p.Strike2.Sign() <= 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "spread requires a long strike")
	}

	now := time.Now()
	t := &trade.Trade{
		ID:         uuid.New(),
		UserID:     p.UserID,
		Symbol:     p.Symbol,
		OptionType: strike.OptionPut,
		Strategy:   p.Strategy,
		Expiration: p.Expiration,

		Strike1: p.Strike1,
		Strike2: p.Strike2,

		InitPremium: p.Premium,
		InitDays:    p.Days,
		Quantity:    1,

		DaysLeft:       p.Days,
		CurrentPremium: p.Premium,
		PremiumCapture: decimal.Zero,
		OTM:            decimal.Zero,

		ROR:  p.ROR,
		Opti: p.Opti,
		Note: "initiated",

		Status:    trade.StatusOpen,
		OpenedAt:  now,
		UpdatedAt: now,
	}

	if err := s.trades.Create(ctx, t); err != nil {
		return nil, errors.Wrapf(err, "open trade for %s", p.Symbol)
	}

	s.log.Infow("Trade opened",
		"trade_id", t.ID,
		"symbol", t.Symbol,
		"strategy", t.Strategy.String(),
		"strike", t.Strike1,
	)
	return t, nil
}

// List returns a user's trades in one lifecycle state.
func (s *Service) List(ctx context.Context, userID uuid.UUID, status trade.Status) ([]*trade.Trade, error) {
	return s.trades.ListByStatus(ctx, userID, status)
}

// RefreshOpen recomputes the tracking fields of every open trade a user
// holds against freshly regenerated snapshots. Trades whose contract has
// fallen out of the snapshot are skipped, not failed.
func (s *Service) RefreshOpen(ctx context.Context, userID uuid.UUID) error {
	open, err := s.trades.ListByStatus(ctx, userID, trade.StatusOpen)
	if err != nil {
		return errors.Wrap(err, "list open trades")
	}
	if len(open) == 0 {
		return nil
	}

	// One snapshot refresh per symbol regardless of how many positions
	// reference it.
	refreshed := make(map[string]bool)
	quotes := make(map[string]*marketdata.Quote)
	for _, t := range open {
		if refreshed[t.Symbol] {
			continue
		}
		refreshed[t.Symbol] = true

		if err := s.snapshots.Refresh(ctx, t.Symbol); err != nil {
			s.log.Warnw("Snapshot refresh failed, matching against previous data",
				"symbol", t.Symbol, "error", err)
		}
		quote, err := s.provider.GetQuote(ctx, t.Symbol)
		if err != nil {
			s.log.Warnw("Quote fetch failed for open trade", "symbol", t.Symbol, "error", err)
			continue
		}
		quotes[t.Symbol] = quote
	}

	failed := 0
	for _, t := range open {
		quote, ok := quotes[t.Symbol]
		if !ok {
			metrics.RecordTradeRefresh("error")
			failed++
			continue
		}

		if err := s.refreshTrade(ctx, t, quote.Last); err != nil {
			if errors.Is(err, errors.ErrStaleStrike) {
				s.log.Warnw("Trade contract missing from snapshot, skipping",
					"trade_id", t.ID, "symbol", t.Symbol, "strike", t.Strike1)
				metrics.RecordTradeRefresh("stale")
				continue
			}
			s.log.Errorw("Trade refresh failed", "trade_id", t.ID, "error", err)
			metrics.RecordTradeRefresh("error")
			failed++
			continue
		}
		metrics.RecordTradeRefresh("success")
	}

	if failed > 0 {
		return errors.Wrapf(errors.ErrInternal, "refresh failed for %d of %d open trades", failed, len(open))
	}
	return nil
}

func (s *Service) refreshTrade(ctx context.Context, t *trade.Trade, underlying decimal.Decimal) error {
	current, err := s.currentPremium(ctx, t)
	if err != nil {
		return err
	}

	capture, err := trade.CaptureRate(t.InitPremium, current)
	if err != nil {
		return err
	}

	// DaysLeft goes negative once the expiration passes; the position stays
	// visible until the user archives it.
	m := trade.Metrics{
		DaysLeft:       strike.DaysUntil(t.Expiration, time.Now()),
		CurrentPremium: current,
		PremiumCapture: capture,
		OTM:            strike.OTMPercent(underlying, t.Strike1),
	}

	return s.trades.UpdateMetrics(ctx, t.ID, m)
}

// currentPremium prices the position from the snapshot: the short leg's mid
// for cash-secured puts, the net of both legs for spreads.
func (s *Service) currentPremium(ctx context.Context, t *trade.Trade) (decimal.Decimal, error) {
	short, err := s.strikes.FindContract(ctx, t.Symbol, t.OptionType, t.Expiration, t.Strike1)
	if err != nil {
		return decimal.Zero, err
	}

	if t.Strategy != trade.StrategyPutCreditSpread {
		return short.Premium, nil
	}

	long, err := s.strikes.FindContract(ctx, t.Symbol, t.OptionType, t.Expiration, t.Strike2)
	if err != nil {
		return decimal.Zero, err
	}
	return short.Premium.Sub(long.Premium), nil
}

// Archive moves an open trade to the archived state. Archived trades keep
// their last refreshed metrics forever.
func (s *Service) Archive(ctx context.Context, id uuid.UUID) error {
	t, err := s.trades.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !t.Status.IsOpen() {
		return errors.Wrapf(errors.ErrInvalidInput, "trade %s is not open", id)
	}

	if err := s.trades.SetStatus(ctx, id, trade.StatusArchived); err != nil {
		return errors.Wrapf(err, "archive trade %s", id)
	}

	s.log.Infow("Trade archived", "trade_id", id, "symbol", t.Symbol)
	return nil
}

// Delete removes a trade entirely, regardless of state.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.trades.Delete(ctx, id)
}
