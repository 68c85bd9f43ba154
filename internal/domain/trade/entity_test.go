package trade

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opencalc/pkg/errors"
)

func TestCaptureRate(t *testing.T) {
	got, err := CaptureRate(decimal.NewFromFloat(2.00), decimal.NewFromFloat(1.00))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(50)), "capture = %s", got)

	// 0.225 of the premium captured rounds up to the next 5% step
	got, err = CaptureRate(decimal.NewFromFloat(2.00), decimal.NewFromFloat(1.55))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(25)), "capture = %s", got)
}

func TestCaptureRate_ZeroInitialPremium(t *testing.T) {
	_, err := CaptureRate(decimal.Zero, decimal.NewFromFloat(1.00))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrZeroPremium)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusOpen.IsOpen())
	assert.False(t, StatusArchived.IsOpen())
	assert.True(t, StatusOpen.Valid())
	assert.True(t, StatusArchived.Valid())
	assert.False(t, Status(3).Valid())
}

func TestStrategy(t *testing.T) {
	assert.True(t, StrategyCashSecuredPut.Valid())
	assert.True(t, StrategyPutCreditSpread.Valid())
	assert.False(t, Strategy(0).Valid())
	assert.Equal(t, "cash_secured_put", StrategyCashSecuredPut.String())
	assert.Equal(t, "put_credit_spread", StrategyPutCreditSpread.String())
}
