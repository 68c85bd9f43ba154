package strategy

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"opencalc/internal/adapters/marketdata"
	"opencalc/internal/domain/strike"
	"opencalc/internal/domain/ticker"
	"opencalc/pkg/errors"
	"opencalc/pkg/logger"
	"opencalc/pkg/quant"
)

// Scan expirations run from one week to two months out, a wider net than
// the snapshot refresh window.
const (
	minScanDays = 6
	maxScanDays = 62
)

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
	three   = decimal.NewFromInt(3)

	// Minimum time-adjusted yield for the high-yield scan leader.
	highYieldFloor = decimal.NewFromFloat(0.30)
)

// Service builds income-strategy proposals from snapshot data and live scans
type Service struct {
	provider marketdata.Provider
	strikes  strike.Repository
	tickers  ticker.Repository
	log      *logger.Logger
}

// NewService creates a new strategy service
func NewService(provider marketdata.Provider, strikes strike.Repository, tickers ticker.Repository, log *logger.Logger) *Service {
	return &Service{
		provider: provider,
		strikes:  strikes,
		tickers:  tickers,
		log:      log,
	}
}

// PutProposal is a concrete cash-secured put suggestion for one symbol.
type PutProposal struct {
	Symbol     string
	Underlying decimal.Decimal
	Expiration time.Time
	Days       int
	Strike     decimal.Decimal
	Premium    decimal.Decimal
	ROR        decimal.Decimal // percent, time-adjusted
	Opti       decimal.Decimal
	// AcquisitionCost is the capital securing the put, strike x 100.
	AcquisitionCost decimal.Decimal
}

// CashSecuredPut proposes the best cash-secured put for a symbol from the
// current snapshot: highest composite score, highest strike on ties.
func (s *Service) CashSecuredPut(ctx context.Context, symbol string) (*PutProposal, error) {
	best, err := s.strikes.TopPut(ctx, symbol)
	if err != nil {
		return nil, err
	}

	quote, err := s.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return buildPutProposal(best, quote.Last, quant.TickCent, 2), nil
}

// WatchlistBest runs the cash-secured put selection across every symbol a
// user follows. Symbols without a viable candidate are skipped, not fatal.
func (s *Service) WatchlistBest(ctx context.Context, userID uuid.UUID) ([]PutProposal, error) {
	tracked, err := s.tickers.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	proposals := make([]PutProposal, 0, len(tracked))
	for _, tk := range tracked {
		best, err := s.strikes.TopPut(ctx, tk.Symbol)
		if errors.Is(err, errors.ErrNoCandidate) {
			s.log.Debugw("No candidate for watchlist symbol", "symbol", tk.Symbol)
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "watchlist selection for %s", tk.Symbol)
		}

		// The batch view reports yield at finer resolution than the
		// single-symbol page.
		p := buildPutProposal(best, tk.LastPrice.Round(1), quant.TickMill, 3)
		proposals = append(proposals, *p)
	}

	return proposals, nil
}

func buildPutProposal(best *strike.Record, underlying, rorTick decimal.Decimal, rorPlaces int32) *PutProposal {
	acq := quant.MustQuantize(best.Strike, quant.TickCent)
	credit := quant.MustQuantize(best.Premium, quant.TickCent)

	ror := quant.MustQuantize(credit.Div(acq).Mul(strike.TimeMultiplier(best.Days)), rorTick)
	ror = ror.Mul(hundred).Round(rorPlaces)

	return &PutProposal{
		Symbol:          best.Symbol,
		Underlying:      underlying,
		Expiration:      best.Expiration,
		Days:            best.Days,
		Strike:          best.Strike,
		Premium:         credit,
		ROR:             ror,
		Opti:            best.Opti,
		AcquisitionCost: acq.Mul(hundred),
	}
}

// SpreadProposal is a put credit spread suggestion: short the snapshot's
// best strike, long a protective strike below it.
type SpreadProposal struct {
	Symbol     string
	Underlying decimal.Decimal
	Expiration time.Time
	Days       int

	ShortStrike  decimal.Decimal
	ShortPremium decimal.Decimal
	LongStrike   decimal.Decimal
	LongPremium  decimal.Decimal

	Credit decimal.Decimal
	Margin decimal.Decimal
	ROR    decimal.Decimal // percent, time-adjusted
	Opti   decimal.Decimal
	// AcquisitionCost mirrors the cash-secured figure for comparison.
	AcquisitionCost decimal.Decimal
}

// spreadBand is how far below the short strike the long leg may sit,
// stepped by the short strike's price range.
func spreadBand(shortStrike decimal.Decimal) decimal.Decimal {
	v, _ := shortStrike.Float64()
	switch {
	case v < 5:
		return shortStrike // floor of zero
	case v < 20:
		return decimal.NewFromInt(1)
	case v < 100:
		return decimal.NewFromInt(5)
	case v < 300:
		return decimal.NewFromInt(10)
	default:
		return decimal.NewFromInt(15)
	}
}

// PutCreditSpread proposes a put credit spread for a symbol. The expiration
// comes from the overall best put; the short leg is the highest scored
// strike within it, and the long leg the lowest strike inside the band.
func (s *Service) PutCreditSpread(ctx context.Context, symbol string) (*SpreadProposal, error) {
	top, err := s.strikes.TopPut(ctx, symbol)
	if err != nil {
		return nil, err
	}

	short, err := s.strikes.TopPutByExpiration(ctx, symbol, top.Expiration)
	if err != nil {
		return nil, err
	}

	floor := short.Strike.Sub(spreadBand(short.Strike))
	long, err := s.strikes.LongCandidate(ctx, symbol, short.Expiration, floor, short.Strike)
	if err != nil {
		return nil, err
	}

	quote, err := s.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	margin := quant.MustQuantize(short.Strike.Sub(long.Strike), quant.TickCent).Mul(hundred)
	acq := quant.MustQuantize(short.Strike, quant.TickCent)
	credit := quant.MustQuantize(short.Premium.Sub(long.Premium), quant.TickCent)

	ror := quant.MustQuantize(credit.Div(acq).Mul(strike.TimeMultiplier(short.Days)), quant.TickCent)
	ror = ror.Mul(hundred)

	return &SpreadProposal{
		Symbol:          symbol,
		Underlying:      quote.Last,
		Expiration:      short.Expiration,
		Days:            short.Days,
		ShortStrike:     short.Strike,
		ShortPremium:    short.Premium,
		LongStrike:      long.Strike,
		LongPremium:     long.Premium,
		Credit:          credit,
		Margin:          margin,
		ROR:             ror,
		Opti:            short.Opti,
		AcquisitionCost: acq.Mul(hundred),
	}, nil
}

// Candidate is one scored put from a live best-of scan.
type Candidate struct {
	Expiration time.Time
	Days       int
	Strike     decimal.Decimal
	Premium    decimal.Decimal
	ROR        decimal.Decimal
	OTM        decimal.Decimal
	Opti       decimal.Decimal
}

// Leaders holds the two scan winners: the highest composite score, and the
// best blend among candidates yielding at least the high-yield floor.
// HighYield is nil when nothing clears the floor.
type Leaders struct {
	Optimal   *Candidate
	HighYield *Candidate
}

// blend weights yield double against the composite score.
func blend(opti, ror decimal.Decimal) decimal.Decimal {
	return opti.Add(ror.Mul(two)).Div(three)
}

// Consider folds one candidate into the running leaders. Pure: the receiver
// is never mutated and ties keep the earlier candidate.
func (l Leaders) Consider(c Candidate) Leaders {
	next := l

	if c.Opti.Sign() > 0 && (l.Optimal == nil || c.Opti.GreaterThan(l.Optimal.Opti)) {
		claimed := c
		next.Optimal = &claimed
	}

	if c.ROR.GreaterThanOrEqual(highYieldFloor) {
		current := decimal.Zero
		if l.HighYield != nil {
			current = blend(l.HighYield.Opti, l.HighYield.ROR)
		}
		if blend(c.Opti, c.ROR).GreaterThan(current) {
			claimed := c
			next.HighYield = &claimed
		}
	}

	return next
}

// BestOfScan scans live chains across expirations between one week and two
// months out, scoring every liquid put at or below the rounded underlying
// price, and returns the two leaders.
func (s *Service) BestOfScan(ctx context.Context, symbol string) (*Leaders, error) {
	quote, err := s.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	rounded := quant.MustQuantize(quote.Last, quant.TickNickel)

	expirations, err := s.provider.GetExpirations(ctx, symbol)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	leaders := Leaders{}

	for _, exp := range expirations {
		days := strike.DaysUntil(exp, now)
		if days <= minScanDays || days >= maxScanDays {
			continue
		}

		chain, err := s.provider.GetChain(ctx, symbol, exp)
		if err != nil {
			return nil, errors.Wrapf(err, "scan chain for %s", exp.Format("2006-01-02"))
		}

		for _, q := range chain {
			if q.OptionType != strike.OptionPut {
				continue
			}
			if !strike.ProfileScan.Admit(q) {
				continue
			}

			mid := strike.Mid(q)
			if !strike.ProfileScan.AdmitMid(mid) {
				continue
			}
			if q.Strike.GreaterThan(rounded) {
				continue
			}

			m := strike.ComputePutMetrics(mid, q.Strike, quote.Last, days)
			leaders = leaders.Consider(Candidate{
				Expiration: exp,
				Days:       days,
				Strike:     q.Strike,
				Premium:    mid,
				ROR:        m.ROR,
				OTM:        m.OTM,
				Opti:       m.Opti,
			})
		}
	}

	if leaders.Optimal == nil {
		return nil, errors.Wrapf(errors.ErrNoCandidate, "best-of scan for %s", symbol)
	}

	return &leaders, nil
}

// SnapshotPuts lists the stored puts for one expiration, strike ascending.
// Unlike Chain this reads the snapshot rather than the live chain, so it
// reflects the last refresh, not the current market.
func (s *Service) SnapshotPuts(ctx context.Context, symbol string, expiration time.Time) ([]strike.Record, error) {
	return s.strikes.PutsByExpiration(ctx, symbol, expiration)
}

// PutQuote is one put row in the manual chain view.
type PutQuote struct {
	Strike decimal.Decimal
	Mid    decimal.Decimal
	ROR    decimal.Decimal
	OTM    decimal.Decimal
	Opti   decimal.Decimal
	Volume int64
}

// CallQuote is one call row in the manual chain view. Calls carry a
// breakeven price rather than put metrics.
type CallQuote struct {
	Strike    decimal.Decimal
	Mid       decimal.Decimal
	Breakeven decimal.Decimal
	Volume    int64
}

// ChainView is the manual inspection of one expiration's chain.
type ChainView struct {
	Symbol      string
	Description string
	Underlying  decimal.Decimal
	Volume      int64
	Expiration  time.Time
	Days        int
	Puts        []PutQuote  // strike ascending
	Calls       []CallQuote // strike descending
}

// Chain builds the manual view of one expiration: relaxed liquidity floor,
// puts with full metrics ascending, calls with breakeven descending.
func (s *Service) Chain(ctx context.Context, symbol string, expiration time.Time) (*ChainView, error) {
	quote, err := s.provider.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	chain, err := s.provider.GetChain(ctx, symbol, expiration)
	if err != nil {
		return nil, err
	}

	days := strike.DaysUntil(expiration, time.Now())

	view := &ChainView{
		Symbol:      quote.Symbol,
		Description: quote.Description,
		Underlying:  quote.Last,
		Volume:      quote.Volume,
		Expiration:  expiration,
		Days:        days,
	}

	for _, q := range chain {
		if !strike.ProfileManual.Admit(q) {
			continue
		}

		mid := strike.Mid(q)
		if !strike.ProfileManual.AdmitMid(mid) {
			continue
		}

		if q.OptionType == strike.OptionPut {
			m := strike.ComputePutMetrics(mid, q.Strike, quote.Last, days)
			view.Puts = append(view.Puts, PutQuote{
				Strike: q.Strike,
				Mid:    mid,
				ROR:    m.ROR,
				OTM:    m.OTM,
				Opti:   m.Opti,
				Volume: q.Volume,
			})
		} else {
			view.Calls = append(view.Calls, CallQuote{
				Strike:    q.Strike,
				Mid:       mid,
				Breakeven: mid.Add(q.Strike),
				Volume:    q.Volume,
			})
		}
	}

	sort.Slice(view.Puts, func(i, j int) bool {
		return view.Puts[i].Strike.LessThan(view.Puts[j].Strike)
	})
	sort.Slice(view.Calls, func(i, j int) bool {
		return view.Calls[i].Strike.GreaterThan(view.Calls[j].Strike)
	})

	return view, nil
}
