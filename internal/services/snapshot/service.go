package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"opencalc/internal/adapters/marketdata"
	"opencalc/internal/domain/strike"
	"opencalc/internal/domain/ticker"
	"opencalc/internal/metrics"
	"opencalc/pkg/errors"
	"opencalc/pkg/logger"
)

// Expirations refreshed automatically sit roughly two weeks to two months
// out. Closer contracts decay too fast to sell; further ones tie up capital.
const (
	minRefreshDays = 13
	maxRefreshDays = 61
)

// Service rebuilds strike snapshots from live chain data. The snapshot for
// a symbol is replaced wholesale: stale rows never mix with fresh ones.
type Service struct {
	provider marketdata.Provider
	strikes  strike.Repository
	tickers  ticker.Repository
	log      *logger.Logger

	// One refresh per symbol at a time; distinct symbols proceed in parallel.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new snapshot service
func NewService(provider marketdata.Provider, strikes strike.Repository, tickers ticker.Repository, log *logger.Logger) *Service {
	return &Service{
		provider: provider,
		strikes:  strikes,
		tickers:  tickers,
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Service) symbolLock(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[symbol] = lock
	}
	return lock
}

// Refresh replaces the snapshot for one symbol. Old rows are deleted before
// the first chain fetch, so a provider failure mid-refresh leaves the
// snapshot empty rather than stale.
func (s *Service) Refresh(ctx context.Context, symbol string) error {
	lock := s.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	count, err := s.refresh(ctx, symbol)
	metrics.RecordSnapshotRefresh(symbol, count, err)
	if err != nil {
		return errors.Wrapf(err, "snapshot refresh for %s", symbol)
	}

	s.log.Infow("Snapshot refreshed", "symbol", symbol, "strikes", count)
	return nil
}

func (s *Service) refresh(ctx context.Context, symbol string) (int, error) {
	quote, err := s.provider.GetQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}

	if err := s.tickers.UpdateQuote(ctx, symbol, ticker.QuoteUpdate{
		LastPrice: quote.Last,
		Volume:    quote.Volume,
		Category:  quote.Type,
	}); err != nil {
		return 0, errors.Wrap(err, "failed to update ticker quote")
	}

	expirations, err := s.provider.GetExpirations(ctx, symbol)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	eligible := make([]expirationWindow, 0, len(expirations))
	for _, exp := range expirations {
		days := strike.DaysUntil(exp, now)
		if days > minRefreshDays && days < maxRefreshDays {
			eligible = append(eligible, expirationWindow{date: exp, days: days})
		}
	}

	if err := s.strikes.DeleteBySymbol(ctx, symbol); err != nil {
		return 0, errors.Wrap(err, "failed to clear snapshot")
	}

	total := 0
	for _, exp := range eligible {
		chain, err := s.provider.GetChain(ctx, symbol, exp.date)
		if err != nil {
			return total, err
		}

		records := scoreChain(symbol, chain, exp.date, exp.days, quote.Last, now)
		if err := s.strikes.InsertBatch(ctx, records); err != nil {
			return total, errors.Wrapf(err, "failed to store strikes for %s", exp.date.Format("2006-01-02"))
		}
		total += len(records)
	}

	return total, nil
}

// RefreshAll rebuilds the snapshot for every tracked symbol. Failures are
// logged and skipped so one bad symbol cannot starve the rest.
func (s *Service) RefreshAll(ctx context.Context) error {
	symbols, err := s.tickers.DistinctSymbols(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list tracked symbols")
	}

	var failed int
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := s.Refresh(ctx, symbol); err != nil {
			s.log.Errorw("Snapshot refresh failed", "symbol", symbol, "error", err)
			failed++
		}
	}

	if failed > 0 {
		return errors.Wrapf(errors.ErrInternal, "%d of %d snapshot refreshes failed", failed, len(symbols))
	}
	return nil
}

type expirationWindow struct {
	date time.Time
	days int
}

// scoreChain filters a raw chain through the refresh liquidity profile and
// scores what passes.
func scoreChain(symbol string, chain []strike.ContractQuote, expiration time.Time, days int, underlying decimal.Decimal, now time.Time) []strike.Record {
	records := make([]strike.Record, 0, len(chain))
	for _, q := range chain {
		if !strike.ProfileRefresh.Admit(q) {
			continue
		}
		if !strike.ProfileRefresh.AdmitMid(strike.Mid(q)) {
			continue
		}

		records = append(records, strike.Score(symbol, q, expiration, days, underlying, now))
	}
	return records
}
