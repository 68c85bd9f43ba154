package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opencalc/internal/domain/strike"
	"opencalc/internal/testsupport"
	"opencalc/pkg/errors"
)

func snapshotRecord(symbol string, optionType strike.OptionType, expiration time.Time, strikePrice, opti float64, moneyness strike.Moneyness) strike.Record {
	return strike.Record{
		ID:           uuid.New(),
		Symbol:       symbol,
		OptionType:   optionType,
		Expiration:   expiration,
		Strike:       decimal.NewFromFloat(strikePrice),
		Premium:      decimal.NewFromFloat(1.25),
		Volume:       50,
		Days:         30,
		Moneyness:    moneyness,
		OpenInterest: 100,
		Opti:         decimal.NewFromFloat(opti),
		UpdatedAt:    time.Now(),
	}
}

func TestStrikeRepository_InsertAndDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewStrikeRepository(testDB.Tx())
	ctx := context.Background()

	expiration := time.Now().AddDate(0, 1, 0).Truncate(24 * time.Hour)

	records := []strike.Record{
		snapshotRecord("AAPL", strike.OptionPut, expiration, 180, 1.5, strike.MoneynessOTM),
		snapshotRecord("AAPL", strike.OptionPut, expiration, 175, 1.2, strike.MoneynessOTM),
		snapshotRecord("AAPL", strike.OptionCall, expiration, 200, 0, strike.MoneynessITM),
	}

	err := repo.InsertBatch(ctx, records)
	require.NoError(t, err)

	puts, err := repo.PutsByExpiration(ctx, "AAPL", expiration)
	require.NoError(t, err)
	assert.Len(t, puts, 2)

	err = repo.DeleteBySymbol(ctx, "AAPL")
	require.NoError(t, err)

	puts, err = repo.PutsByExpiration(ctx, "AAPL", expiration)
	require.NoError(t, err)
	assert.Empty(t, puts)
}

func TestStrikeRepository_PutsByExpiration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewStrikeRepository(testDB.Tx())
	ctx := context.Background()

	expiration := time.Now().AddDate(0, 0, 27).Truncate(24 * time.Hour)
	other := time.Now().AddDate(0, 0, 55).Truncate(24 * time.Hour)

	records := []strike.Record{
		snapshotRecord("GOOG", strike.OptionPut, expiration, 150, 1.1, strike.MoneynessOTM),
		snapshotRecord("GOOG", strike.OptionPut, expiration, 145, 0.9, strike.MoneynessOTM),
		snapshotRecord("GOOG", strike.OptionPut, other, 140, 2.0, strike.MoneynessOTM),
		snapshotRecord("GOOG", strike.OptionCall, expiration, 160, 0, strike.MoneynessOTM),
	}
	require.NoError(t, repo.InsertBatch(ctx, records))

	puts, err := repo.PutsByExpiration(ctx, "GOOG", expiration)
	require.NoError(t, err)
	require.Len(t, puts, 2)
	assert.True(t, puts[0].Strike.Equal(decimal.NewFromInt(145)))
	assert.True(t, puts[1].Strike.Equal(decimal.NewFromInt(150)))
}

func TestStrikeRepository_InsertBatch_Empty(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewStrikeRepository(testDB.Tx())

	err := repo.InsertBatch(context.Background(), nil)
	assert.NoError(t, err)
}

func TestStrikeRepository_TopPut(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewStrikeRepository(testDB.Tx())
	ctx := context.Background()

	near := time.Now().AddDate(0, 0, 21).Truncate(24 * time.Hour)
	far := time.Now().AddDate(0, 0, 49).Truncate(24 * time.Hour)

	records := []strike.Record{
		snapshotRecord("MSFT", strike.OptionPut, near, 400, 2.1, strike.MoneynessOTM),
		snapshotRecord("MSFT", strike.OptionPut, far, 395, 3.4, strike.MoneynessOTM),
		// Same opti as the winner but lower strike; the higher strike wins the tie.
		snapshotRecord("MSFT", strike.OptionPut, far, 390, 3.4, strike.MoneynessOTM),
		// Unscored reference row must never be selected.
		snapshotRecord("MSFT", strike.OptionPut, far, 430, 0, strike.MoneynessITM),
	}
	require.NoError(t, repo.InsertBatch(ctx, records))

	best, err := repo.TopPut(ctx, "MSFT")
	require.NoError(t, err)
	assert.True(t, best.Strike.Equal(decimal.NewFromInt(395)))
	assert.True(t, best.Opti.Equal(decimal.NewFromFloat(3.4)))
}

func TestStrikeRepository_TopPut_NoCandidate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewStrikeRepository(testDB.Tx())

	_, err := repo.TopPut(context.Background(), "EMPTY")
	assert.ErrorIs(t, err, errors.ErrNoCandidate)
}

func TestStrikeRepository_TopPutByExpiration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewStrikeRepository(testDB.Tx())
	ctx := context.Background()

	expiration := time.Now().AddDate(0, 0, 35).Truncate(24 * time.Hour)
	other := time.Now().AddDate(0, 0, 56).Truncate(24 * time.Hour)

	records := []strike.Record{
		snapshotRecord("NVDA", strike.OptionPut, expiration, 110, 1.0, strike.MoneynessOTM),
		snapshotRecord("NVDA", strike.OptionPut, expiration, 115, 0.8, strike.MoneynessOTM),
		snapshotRecord("NVDA", strike.OptionPut, other, 120, 5.0, strike.MoneynessOTM),
	}
	require.NoError(t, repo.InsertBatch(ctx, records))

	// Highest strike within the expiration, regardless of opti.
	best, err := repo.TopPutByExpiration(ctx, "NVDA", expiration)
	require.NoError(t, err)
	assert.True(t, best.Strike.Equal(decimal.NewFromInt(115)))
}

func TestStrikeRepository_LongCandidate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewStrikeRepository(testDB.Tx())
	ctx := context.Background()

	expiration := time.Now().AddDate(0, 0, 28).Truncate(24 * time.Hour)

	records := []strike.Record{
		snapshotRecord("AMD", strike.OptionPut, expiration, 55, 0.5, strike.MoneynessOTM),
		snapshotRecord("AMD", strike.OptionPut, expiration, 57.5, 0.7, strike.MoneynessOTM),
		snapshotRecord("AMD", strike.OptionPut, expiration, 60, 1.1, strike.MoneynessOTM),
	}
	require.NoError(t, repo.InsertBatch(ctx, records))

	// Bounds are exclusive on both ends: 55 itself must not qualify.
	long, err := repo.LongCandidate(ctx, "AMD", expiration, decimal.NewFromInt(55), decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.True(t, long.Strike.Equal(decimal.NewFromFloat(57.5)))

	_, err = repo.LongCandidate(ctx, "AMD", expiration, decimal.NewFromInt(58), decimal.NewFromInt(60))
	assert.ErrorIs(t, err, errors.ErrNoCandidate)
}

func TestStrikeRepository_FindContract(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewStrikeRepository(testDB.Tx())
	ctx := context.Background()

	expiration := time.Now().AddDate(0, 0, 42).Truncate(24 * time.Hour)

	require.NoError(t, repo.InsertBatch(ctx, []strike.Record{
		snapshotRecord("TSLA", strike.OptionPut, expiration, 250, 2.0, strike.MoneynessOTM),
	}))

	rec, err := repo.FindContract(ctx, "TSLA", strike.OptionPut, expiration, decimal.NewFromInt(250))
	require.NoError(t, err)
	assert.Equal(t, "TSLA", rec.Symbol)

	_, err = repo.FindContract(ctx, "TSLA", strike.OptionPut, expiration, decimal.NewFromInt(240))
	assert.ErrorIs(t, err, errors.ErrStaleStrike)
}
