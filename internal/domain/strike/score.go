package strike

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"opencalc/pkg/quant"
)

var (
	bandLower = decimal.NewFromFloat(0.80)
	bandUpper = decimal.NewFromFloat(1.05)

	two     = decimal.NewFromInt(2)
	ten     = decimal.NewFromInt(10)
	thirty  = decimal.NewFromInt(30)
	hundred = decimal.NewFromInt(100)
)

// Profile is an admission rule deciding whether a raw contract quote is
// usable. Thresholds differ between the snapshot refresh, the best-of scan
// and the manual inspection view; the three are kept distinct on purpose.
type Profile int

const (
	// ProfileRefresh guards the snapshot refresh path.
	ProfileRefresh Profile = iota
	// ProfileScan guards the cross-expiration best-of scan.
	ProfileScan
	// ProfileManual is the relaxed rule for manual chain inspection.
	ProfileManual
)

// Admit reports whether the contract clears the profile's liquidity floor.
// Illiquid, wide-spread contracts would otherwise produce misleadingly
// attractive scores.
func (p Profile) Admit(q ContractQuote) bool {
	switch p {
	case ProfileScan:
		return q.OpenInterest > 2 && q.AskSize > 1 && q.BidSize > 1
	case ProfileManual:
		return q.OpenInterest > 0 && q.AskSize > 0 && q.BidSize > 0
	default:
		return q.OpenInterest > 1 && q.BidSize*q.AskSize > 1
	}
}

// AdmitMid reports whether the quantized mid clears the profile's price
// floor. The manual view requires mid above one cent; the automated paths
// only require a positive mid.
func (p Profile) AdmitMid(mid decimal.Decimal) bool {
	if p == ProfileManual {
		return mid.GreaterThan(quant.TickCent)
	}
	return mid.Sign() > 0
}

// Mid returns the bid/ask midpoint quantized to the nickel tick.
func Mid(q ContractQuote) decimal.Decimal {
	mid := quant.MustQuantize(q.Bid.Add(q.Ask).Div(two), quant.TickNickel)
	return mid.Round(2)
}

// TimeMultiplier normalizes yield toward a 30-day reference tenor:
// days/30 below 30 days out, 30/days beyond.
func TimeMultiplier(days int) decimal.Decimal {
	d := decimal.NewFromInt(int64(days))
	if days < 30 {
		return d.Div(thirty)
	}
	return thirty.Div(d)
}

// PutMetrics carries the derived numbers for one put contract.
type PutMetrics struct {
	Mid  decimal.Decimal
	ROR  decimal.Decimal
	OTM  decimal.Decimal
	Opti decimal.Decimal
}

// ComputePutMetrics derives the time-adjusted rate of return, the
// out-of-the-money distance and the composite score for a put. Pure:
// identical inputs always yield identical output.
func ComputePutMetrics(mid, strikePrice, underlying decimal.Decimal, days int) PutMetrics {
	timeMult := TimeMultiplier(days)
	ror := quant.MustQuantize(mid.Div(strikePrice).Mul(hundred).Mul(timeMult), quant.TickCent)
	otm := quant.MustQuantize(underlying.Sub(strikePrice).Div(underlying).Mul(hundred), quant.TickCent)
	opti := quant.MustQuantize(otm.Mul(ror).Div(ten), quant.TickComposite)

	return PutMetrics{Mid: mid, ROR: ror, OTM: otm, Opti: opti}
}

// OTMPercent is the signed percentage distance between the underlying price
// and a strike, zero when they match exactly.
func OTMPercent(underlying, strikePrice decimal.Decimal) decimal.Decimal {
	if strikePrice.Equal(underlying) {
		return decimal.Zero
	}
	return quant.MustQuantize(underlying.Sub(strikePrice).Div(underlying).Mul(hundred), quant.TickCent)
}

// InBand reports whether a put strike sits inside the shallow-OTM to
// slightly-ITM band around the rounded underlying price, the acceptable
// risk zone for cash-secured puts.
func InBand(strikePrice, roundedUnderlying decimal.Decimal) bool {
	return strikePrice.GreaterThanOrEqual(roundedUnderlying.Mul(bandLower)) &&
		strikePrice.LessThanOrEqual(roundedUnderlying.Mul(bandUpper))
}

// Score turns one admitted contract quote into a snapshot Record. Puts
// inside the moneyness band get a composite score; calls and out-of-band
// puts are kept as reference data with a zero score and an ITM flag.
func Score(symbol string, q ContractQuote, expiration time.Time, days int, underlying decimal.Decimal, now time.Time) Record {
	mid := Mid(q)

	rec := Record{
		ID:           uuid.New(),
		Symbol:       symbol,
		OptionType:   q.OptionType,
		Expiration:   expiration,
		Strike:       q.Strike,
		Premium:      mid,
		Volume:       q.AverageVolume,
		Days:         days,
		Moneyness:    MoneynessITM,
		OpenInterest: q.OpenInterest,
		Opti:         decimal.Zero,
		UpdatedAt:    now,
	}

	if q.OptionType != OptionPut {
		return rec
	}

	rounded := quant.MustQuantize(underlying, quant.TickNickel)
	if !InBand(q.Strike, rounded) {
		return rec
	}

	m := ComputePutMetrics(mid, q.Strike, underlying, days)
	rec.Moneyness = MoneynessOTM
	rec.Opti = m.Opti
	return rec
}
