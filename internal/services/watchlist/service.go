package watchlist

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"opencalc/internal/adapters/marketdata"
	"opencalc/internal/domain/strike"
	"opencalc/internal/domain/ticker"
	"opencalc/pkg/errors"
	"opencalc/pkg/logger"
)

// Service manages the symbols a user follows
type Service struct {
	provider marketdata.Provider
	tickers  ticker.Repository
	strikes  strike.Repository
	log      *logger.Logger
}

// NewService creates a new watchlist service
func NewService(provider marketdata.Provider, tickers ticker.Repository, strikes strike.Repository, log *logger.Logger) *Service {
	return &Service{
		provider: provider,
		tickers:  tickers,
		strikes:  strikes,
		log:      log,
	}
}

// Follow starts tracking a symbol for a user. The symbol must resolve to a
// live quote; following twice surfaces ErrAlreadyExists.
func (s *Service) Follow(ctx context.Context, userID uuid.UUID, symbol string) (*ticker.Ticker, error) {
	symbol = normalize(symbol)
	if symbol == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "symbol is required")
	}

	if existing, err := s.tickers.Get(ctx, userID, symbol); err == nil && existing != nil {
		return nil, errors.Wrapf(errors.ErrAlreadyExists, "already following %s", symbol)
	} else if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	quote, err := s.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, errors.Wrapf(err, "quote lookup for %s", symbol)
	}

	now := time.Now()
	t := &ticker.Ticker{
		ID:     uuid.New(),
		UserID: userID,

		Symbol:      symbol,
		Description: quote.Description,
		Category:    quote.Type,
		LastPrice:   quote.Last,
		Volume:      quote.Volume,

		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.tickers.Create(ctx, t); err != nil {
		return nil, errors.Wrapf(err, "follow %s", symbol)
	}

	s.log.Infow("Symbol followed", "user_id", userID, "symbol", symbol)
	return t, nil
}

// Unfollow stops tracking a symbol and drops its strike snapshot. The
// snapshot is derived data and regenerates on the next refresh cycle for
// any remaining follower.
func (s *Service) Unfollow(ctx context.Context, userID uuid.UUID, symbol string) error {
	symbol = normalize(symbol)

	if err := s.tickers.Delete(ctx, userID, symbol); err != nil {
		return errors.Wrapf(err, "unfollow %s", symbol)
	}
	if err := s.strikes.DeleteBySymbol(ctx, symbol); err != nil {
		return errors.Wrapf(err, "drop snapshot for %s", symbol)
	}

	s.log.Infow("Symbol unfollowed", "user_id", userID, "symbol", symbol)
	return nil
}

// List returns everything a user follows, ranked picks first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*ticker.Ticker, error) {
	return s.tickers.ListByUser(ctx, userID)
}

// UpdateNotes replaces a user's free-form notes on a tracked symbol.
func (s *Service) UpdateNotes(ctx context.Context, userID uuid.UUID, symbol, notes string) error {
	return s.tickers.UpdateNotes(ctx, userID, normalize(symbol), notes)
}

// SetPriceTarget records a user's target price for a tracked symbol.
func (s *Service) SetPriceTarget(ctx context.Context, userID uuid.UUID, symbol string, target decimal.Decimal) error {
	if target.Sign() < 0 {
		return errors.Wrap(errors.ErrInvalidInput, "price target cannot be negative")
	}
	return s.tickers.SetPriceTarget(ctx, userID, normalize(symbol), target)
}

// SetRank reorders a symbol across every follower's list.
func (s *Service) SetRank(ctx context.Context, symbol string, rank decimal.Decimal) error {
	return s.tickers.SetRank(ctx, normalize(symbol), rank)
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
