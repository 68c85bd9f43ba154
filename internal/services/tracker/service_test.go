package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"opencalc/internal/adapters/marketdata"
	"opencalc/internal/domain/strike"
	"opencalc/internal/domain/trade"
	"opencalc/pkg/errors"
	"opencalc/pkg/logger"
)

// MockProvider is a mock for marketdata.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*marketdata.Quote), args.Error(1)
}

func (m *MockProvider) GetExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockProvider) GetChain(ctx context.Context, symbol string, expiration time.Time) ([]strike.ContractQuote, error) {
	args := m.Called(ctx, symbol, expiration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]strike.ContractQuote), args.Error(1)
}

// MockStrikeRepository is a mock for strike.Repository
type MockStrikeRepository struct {
	mock.Mock
}

func (m *MockStrikeRepository) InsertBatch(ctx context.Context, records []strike.Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockStrikeRepository) DeleteBySymbol(ctx context.Context, symbol string) error {
	args := m.Called(ctx, symbol)
	return args.Error(0)
}

func (m *MockStrikeRepository) TopPut(ctx context.Context, symbol string) (*strike.Record, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*strike.Record), args.Error(1)
}

func (m *MockStrikeRepository) TopPutByExpiration(ctx context.Context, symbol string, expiration time.Time) (*strike.Record, error) {
	args := m.Called(ctx, symbol, expiration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*strike.Record), args.Error(1)
}

func (m *MockStrikeRepository) LongCandidate(ctx context.Context, symbol string, expiration time.Time, floor, ceiling decimal.Decimal) (*strike.Record, error) {
	args := m.Called(ctx, symbol, expiration, floor, ceiling)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*strike.Record), args.Error(1)
}

func (m *MockStrikeRepository) FindContract(ctx context.Context, symbol string, optionType strike.OptionType, expiration time.Time, strikePrice decimal.Decimal) (*strike.Record, error) {
	args := m.Called(ctx, symbol, optionType, expiration, strikePrice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*strike.Record), args.Error(1)
}

func (m *MockStrikeRepository) PutsByExpiration(ctx context.Context, symbol string, expiration time.Time) ([]strike.Record, error) {
	args := m.Called(ctx, symbol, expiration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]strike.Record), args.Error(1)
}

// MockTradeRepository is a mock for trade.Repository
type MockTradeRepository struct {
	mock.Mock
}

func (m *MockTradeRepository) Create(ctx context.Context, t *trade.Trade) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTradeRepository) GetByID(ctx context.Context, id uuid.UUID) (*trade.Trade, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Trade), args.Error(1)
}

func (m *MockTradeRepository) ListByStatus(ctx context.Context, userID uuid.UUID, status trade.Status) ([]*trade.Trade, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trade.Trade), args.Error(1)
}

func (m *MockTradeRepository) UpdateMetrics(ctx context.Context, id uuid.UUID, metrics trade.Metrics) error {
	args := m.Called(ctx, id, metrics)
	return args.Error(0)
}

func (m *MockTradeRepository) SetStatus(ctx context.Context, id uuid.UUID, status trade.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTradeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTradeRepository) UsersWithOpenTrades(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockSnapshotRefresher is a mock for SnapshotRefresher
type MockSnapshotRefresher struct {
	mock.Mock
}

func (m *MockSnapshotRefresher) Refresh(ctx context.Context, symbol string) error {
	args := m.Called(ctx, symbol)
	return args.Error(0)
}

func newTestService() (*Service, *MockTradeRepository, *MockStrikeRepository, *MockProvider, *MockSnapshotRefresher) {
	trades := new(MockTradeRepository)
	strikes := new(MockStrikeRepository)
	provider := new(MockProvider)
	snapshots := new(MockSnapshotRefresher)
	return NewService(trades, strikes, provider, snapshots, logger.Get()), trades, strikes, provider, snapshots
}

func openTrade(userID uuid.UUID, symbol string, strategy trade.Strategy, expiration time.Time, strike1, strike2, initPremium float64) *trade.Trade {
	return &trade.Trade{
		ID:          uuid.New(),
		UserID:      userID,
		Symbol:      symbol,
		OptionType:  strike.OptionPut,
		Strategy:    strategy,
		Expiration:  expiration,
		Strike1:     decimal.NewFromFloat(strike1),
		Strike2:     decimal.NewFromFloat(strike2),
		InitPremium: decimal.NewFromFloat(initPremium),
		InitDays:    30,
		Quantity:    1,
		Status:      trade.StatusOpen,
	}
}

func snapRecord(symbol string, expiration time.Time, strikePrice, premium float64) *strike.Record {
	return &strike.Record{
		ID:         uuid.New(),
		Symbol:     symbol,
		OptionType: strike.OptionPut,
		Expiration: expiration,
		Strike:     decimal.NewFromFloat(strikePrice),
		Premium:    decimal.NewFromFloat(premium),
	}
}

func TestOpen(t *testing.T) {
	svc, trades, _, _, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	trades.On("Create", ctx, mock.AnythingOfType("*trade.Trade")).Return(nil)

	opened, err := svc.Open(ctx, OpenParams{
		UserID:     userID,
		Symbol:     "AAPL",
		Strategy:   trade.StrategyCashSecuredPut,
		Expiration: time.Now().AddDate(0, 0, 30),
		Strike1:    decimal.NewFromInt(95),
		Premium:    decimal.NewFromFloat(1.50),
		Days:       30,
	})
	require.NoError(t, err)

	assert.Equal(t, trade.StatusOpen, opened.Status)
	assert.Equal(t, "initiated", opened.Note)
	assert.Equal(t, 1, opened.Quantity)
	assert.Equal(t, 30, opened.DaysLeft)
	assert.True(t, opened.CurrentPremium.Equal(opened.InitPremium))
	assert.True(t, opened.PremiumCapture.IsZero())
}

func TestOpen_Validation(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Open(ctx, OpenParams{Symbol: "AAPL", Strategy: trade.Strategy(9)})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = svc.Open(ctx, OpenParams{Symbol: "", Strategy: trade.StrategyCashSecuredPut})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	// A spread without its long leg is not a spread.
	_, err = svc.Open(ctx, OpenParams{
		Symbol:   "AAPL",
		Strategy: trade.StrategyPutCreditSpread,
		Strike1:  decimal.NewFromInt(95),
	})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestRefreshOpen_CashSecuredPut(t *testing.T) {
	svc, trades, strikes, provider, snapshots := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	expiration := time.Now().AddDate(0, 0, 14)
	tr := openTrade(userID, "AAPL", trade.StrategyCashSecuredPut, expiration, 95, 0, 1.50)

	trades.On("ListByStatus", ctx, userID, trade.StatusOpen).Return([]*trade.Trade{tr}, nil)
	snapshots.On("Refresh", ctx, "AAPL").Return(nil)
	provider.On("GetQuote", ctx, "AAPL").Return(&marketdata.Quote{
		Symbol: "AAPL",
		Last:   decimal.NewFromInt(100),
	}, nil)
	strikes.On("FindContract", ctx, "AAPL", strike.OptionPut, expiration, tr.Strike1).
		Return(snapRecord("AAPL", expiration, 95, 0.90), nil)

	trades.On("UpdateMetrics", ctx, tr.ID, mock.MatchedBy(func(m trade.Metrics) bool {
		// (1.50-0.90)/1.50 = 0.40 at the nickel tick -> 40%.
		return m.CurrentPremium.Equal(decimal.NewFromFloat(0.90)) &&
			m.PremiumCapture.Equal(decimal.NewFromInt(40)) &&
			m.OTM.Equal(decimal.NewFromInt(5)) &&
			m.DaysLeft == 14
	})).Return(nil)

	require.NoError(t, svc.RefreshOpen(ctx, userID))
	trades.AssertExpectations(t)
}

func TestRefreshOpen_Spread(t *testing.T) {
	svc, trades, strikes, provider, snapshots := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	expiration := time.Now().AddDate(0, 0, 14)
	tr := openTrade(userID, "AMD", trade.StrategyPutCreditSpread, expiration, 60, 57.5, 0.70)

	trades.On("ListByStatus", ctx, userID, trade.StatusOpen).Return([]*trade.Trade{tr}, nil)
	snapshots.On("Refresh", ctx, "AMD").Return(nil)
	provider.On("GetQuote", ctx, "AMD").Return(&marketdata.Quote{
		Symbol: "AMD",
		Last:   decimal.NewFromInt(62),
	}, nil)
	strikes.On("FindContract", ctx, "AMD", strike.OptionPut, expiration, tr.Strike1).
		Return(snapRecord("AMD", expiration, 60, 0.90), nil)
	strikes.On("FindContract", ctx, "AMD", strike.OptionPut, expiration, tr.Strike2).
		Return(snapRecord("AMD", expiration, 57.5, 0.40), nil)

	trades.On("UpdateMetrics", ctx, tr.ID, mock.MatchedBy(func(m trade.Metrics) bool {
		// Net of both legs: 0.90 - 0.40.
		return m.CurrentPremium.Equal(decimal.NewFromFloat(0.50))
	})).Return(nil)

	require.NoError(t, svc.RefreshOpen(ctx, userID))
	trades.AssertExpectations(t)
}

func TestRefreshOpen_StaleStrikeSkipped(t *testing.T) {
	svc, trades, strikes, provider, snapshots := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	expiration := time.Now().AddDate(0, 0, 14)
	tr := openTrade(userID, "AAPL", trade.StrategyCashSecuredPut, expiration, 95, 0, 1.50)

	trades.On("ListByStatus", ctx, userID, trade.StatusOpen).Return([]*trade.Trade{tr}, nil)
	snapshots.On("Refresh", ctx, "AAPL").Return(nil)
	provider.On("GetQuote", ctx, "AAPL").Return(&marketdata.Quote{
		Symbol: "AAPL",
		Last:   decimal.NewFromInt(100),
	}, nil)
	strikes.On("FindContract", ctx, "AAPL", strike.OptionPut, expiration, tr.Strike1).
		Return(nil, errors.ErrStaleStrike)

	// A stale contract skips the trade without failing the run.
	require.NoError(t, svc.RefreshOpen(ctx, userID))
	trades.AssertNotCalled(t, "UpdateMetrics", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshOpen_PastExpiration(t *testing.T) {
	svc, trades, strikes, provider, snapshots := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	expiration := time.Now().AddDate(0, 0, -2)
	tr := openTrade(userID, "AAPL", trade.StrategyCashSecuredPut, expiration, 100, 0, 1.50)

	trades.On("ListByStatus", ctx, userID, trade.StatusOpen).Return([]*trade.Trade{tr}, nil)
	snapshots.On("Refresh", ctx, "AAPL").Return(nil)
	provider.On("GetQuote", ctx, "AAPL").Return(&marketdata.Quote{
		Symbol: "AAPL",
		Last:   decimal.NewFromInt(100),
	}, nil)
	strikes.On("FindContract", ctx, "AAPL", strike.OptionPut, expiration, tr.Strike1).
		Return(snapRecord("AAPL", expiration, 100, 0.05), nil)

	trades.On("UpdateMetrics", ctx, tr.ID, mock.MatchedBy(func(m trade.Metrics) bool {
		// Expired positions go negative; strike at the money reads zero.
		return m.DaysLeft == -2 && m.OTM.IsZero()
	})).Return(nil)

	require.NoError(t, svc.RefreshOpen(ctx, userID))
	trades.AssertExpectations(t)
}

func TestRefreshOpen_RefreshesSymbolOnce(t *testing.T) {
	svc, trades, strikes, provider, snapshots := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	expiration := time.Now().AddDate(0, 0, 14)
	first := openTrade(userID, "AAPL", trade.StrategyCashSecuredPut, expiration, 95, 0, 1.50)
	second := openTrade(userID, "AAPL", trade.StrategyCashSecuredPut, expiration, 90, 0, 1.20)

	trades.On("ListByStatus", ctx, userID, trade.StatusOpen).Return([]*trade.Trade{first, second}, nil)
	snapshots.On("Refresh", ctx, "AAPL").Return(nil)
	provider.On("GetQuote", ctx, "AAPL").Return(&marketdata.Quote{
		Symbol: "AAPL",
		Last:   decimal.NewFromInt(100),
	}, nil)
	strikes.On("FindContract", ctx, "AAPL", strike.OptionPut, expiration, first.Strike1).
		Return(snapRecord("AAPL", expiration, 95, 0.90), nil)
	strikes.On("FindContract", ctx, "AAPL", strike.OptionPut, expiration, second.Strike1).
		Return(snapRecord("AAPL", expiration, 90, 0.60), nil)
	trades.On("UpdateMetrics", ctx, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.RefreshOpen(ctx, userID))
	snapshots.AssertNumberOfCalls(t, "Refresh", 1)
	provider.AssertNumberOfCalls(t, "GetQuote", 1)
}

func TestRefreshOpen_ZeroInitialPremium(t *testing.T) {
	svc, trades, strikes, provider, snapshots := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	expiration := time.Now().AddDate(0, 0, 14)
	tr := openTrade(userID, "AAPL", trade.StrategyCashSecuredPut, expiration, 95, 0, 0)

	trades.On("ListByStatus", ctx, userID, trade.StatusOpen).Return([]*trade.Trade{tr}, nil)
	snapshots.On("Refresh", ctx, "AAPL").Return(nil)
	provider.On("GetQuote", ctx, "AAPL").Return(&marketdata.Quote{
		Symbol: "AAPL",
		Last:   decimal.NewFromInt(100),
	}, nil)
	strikes.On("FindContract", ctx, "AAPL", strike.OptionPut, expiration, tr.Strike1).
		Return(snapRecord("AAPL", expiration, 95, 0.90), nil)

	err := svc.RefreshOpen(ctx, userID)
	assert.ErrorIs(t, err, errors.ErrInternal)
	trades.AssertNotCalled(t, "UpdateMetrics", mock.Anything, mock.Anything, mock.Anything)
}

func TestArchive(t *testing.T) {
	svc, trades, _, _, _ := newTestService()
	ctx := context.Background()

	tr := openTrade(uuid.New(), "AAPL", trade.StrategyCashSecuredPut, time.Now(), 95, 0, 1.50)
	trades.On("GetByID", ctx, tr.ID).Return(tr, nil)
	trades.On("SetStatus", ctx, tr.ID, trade.StatusArchived).Return(nil)

	require.NoError(t, svc.Archive(ctx, tr.ID))
	trades.AssertExpectations(t)
}

func TestArchive_OnlyOpenTrades(t *testing.T) {
	svc, trades, _, _, _ := newTestService()
	ctx := context.Background()

	tr := openTrade(uuid.New(), "AAPL", trade.StrategyCashSecuredPut, time.Now(), 95, 0, 1.50)
	tr.Status = trade.StatusArchived
	trades.On("GetByID", ctx, tr.ID).Return(tr, nil)

	err := svc.Archive(ctx, tr.ID)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	trades.AssertNotCalled(t, "SetStatus", mock.Anything, mock.Anything, mock.Anything)
}
