package quant

import (
	"math"

	"github.com/shopspring/decimal"

	"opencalc/pkg/errors"
)

// Common tick sizes used across the analytics engine.
var (
	// TickNickel is the tick for prices and premia.
	TickNickel = decimal.NewFromFloat(0.05)

	// TickCent is the tick for rates of return and capture percentages.
	TickCent = decimal.NewFromFloat(0.01)

	// TickMill is the finer rate-of-return tick used by batch scans.
	TickMill = decimal.NewFromFloat(0.001)

	// TickComposite is the tick for composite ranking scores.
	TickComposite = decimal.NewFromFloat(0.0001)
)

// Quantize rounds value to the nearest multiple of tick, then re-rounds the
// result to the decimal precision implied by the tick size. Both stages round
// half away from zero.
func Quantize(value, tick decimal.Decimal) (decimal.Decimal, error) {
	if tick.Sign() <= 0 {
		return decimal.Zero, errors.Wrapf(errors.ErrInvalidTick, "tick=%s", tick)
	}

	steps := value.Div(tick).Round(0)
	return steps.Mul(tick).Round(Places(tick)), nil
}

// MustQuantize is Quantize for call sites with constant, known-positive ticks.
// A non-positive tick is a programming-contract violation and panics.
func MustQuantize(value, tick decimal.Decimal) decimal.Decimal {
	q, err := Quantize(value, tick)
	if err != nil {
		panic(err)
	}
	return q
}

// Places returns the number of significant decimal places implied by a tick
// size, computed as -floor(log10(tick)). Tick 0.05 implies 2 places, tick
// 0.0001 implies 4.
func Places(tick decimal.Decimal) int32 {
	f, _ := tick.Float64()
	return int32(-math.Floor(math.Log10(f)))
}
