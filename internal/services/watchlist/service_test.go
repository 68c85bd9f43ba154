package watchlist

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
	"opencalc/internal/domain/ticker"
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

// MockTickerRepository is a mock for ticker.Repository
type MockTickerRepository struct {
	mock.Mock
}

func (m *MockTickerRepository) Create(ctx context.Context, t *ticker.Ticker) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTickerRepository) Get(ctx context.Context, userID uuid.UUID, symbol string) (*ticker.Ticker, error) {
	args := m.Called(ctx, userID, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticker.Ticker), args.Error(1)
}

func (m *MockTickerRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*ticker.Ticker, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ticker.Ticker), args.Error(1)
}

func (m *MockTickerRepository) DistinctSymbols(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTickerRepository) UpdateQuote(ctx context.Context, symbol string, q ticker.QuoteUpdate) error {
	args := m.Called(ctx, symbol, q)
	return args.Error(0)
}

func (m *MockTickerRepository) UpdateNotes(ctx context.Context, userID uuid.UUID, symbol, notes string) error {
	args := m.Called(ctx, userID, symbol, notes)
	return args.Error(0)
}

func (m *MockTickerRepository) SetPriceTarget(ctx context.Context, userID uuid.UUID, symbol string, target decimal.Decimal) error {
	args := m.Called(ctx, userID, symbol, target)
	return args.Error(0)
}

func (m *MockTickerRepository) SetRank(ctx context.Context, symbol string, rank decimal.Decimal) error {
	args := m.Called(ctx, symbol, rank)
	return args.Error(0)
}

func (m *MockTickerRepository) Delete(ctx context.Context, userID uuid.UUID, symbol string) error {
	args := m.Called(ctx, userID, symbol)
	return args.Error(0)
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

func newTestService() (*Service, *MockProvider, *MockTickerRepository, *MockStrikeRepository) {
	provider := new(MockProvider)
	tickers := new(MockTickerRepository)
	strikes := new(MockStrikeRepository)
	return NewService(provider, tickers, strikes, logger.Get()), provider, tickers, strikes
}

func TestFollow(t *testing.T) {
	svc, provider, tickers, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	tickers.On("Get", ctx, userID, "AAPL").Return(nil, errors.ErrNotFound)
	provider.On("GetQuote", ctx, "AAPL").Return(&marketdata.Quote{
		Symbol:      "AAPL",
		Description: "Apple Inc",
		Last:        decimal.NewFromFloat(187.44),
		Volume:      1000000,
		Type:        "stock",
	}, nil)
	tickers.On("Create", ctx, mock.MatchedBy(func(tk *ticker.Ticker) bool {
		return tk.Symbol == "AAPL" && tk.Category == "stock" &&
			tk.LastPrice.Equal(decimal.NewFromFloat(187.44))
	})).Return(nil)

	// Lowercase input is tracked under the canonical symbol.
	followed, err := svc.Follow(ctx, userID, " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", followed.Symbol)
	tickers.AssertExpectations(t)
}

func TestFollow_AlreadyExists(t *testing.T) {
	svc, _, tickers, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	tickers.On("Get", ctx, userID, "AAPL").Return(&ticker.Ticker{Symbol: "AAPL"}, nil)

	_, err := svc.Follow(ctx, userID, "AAPL")
	assert.ErrorIs(t, err, errors.ErrAlreadyExists)
	tickers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestFollow_UnknownSymbol(t *testing.T) {
	svc, provider, tickers, _ := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	tickers.On("Get", ctx, userID, "NOPE").Return(nil, errors.ErrNotFound)
	provider.On("GetQuote", ctx, "NOPE").Return(nil, errors.ErrMalformedQuote)

	_, err := svc.Follow(ctx, userID, "NOPE")
	assert.ErrorIs(t, err, errors.ErrMalformedQuote)
	tickers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUnfollow_CascadesSnapshot(t *testing.T) {
	svc, _, tickers, strikes := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	tickers.On("Delete", ctx, userID, "AAPL").Return(nil)
	strikes.On("DeleteBySymbol", ctx, "AAPL").Return(nil)

	require.NoError(t, svc.Unfollow(ctx, userID, "aapl"))
	strikes.AssertExpectations(t)
}

func TestUnfollow_NotTracked(t *testing.T) {
	svc, _, tickers, strikes := newTestService()
	ctx := context.Background()
	userID := uuid.New()

	tickers.On("Delete", ctx, userID, "AAPL").Return(errors.ErrNotFound)

	err := svc.Unfollow(ctx, userID, "AAPL")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	strikes.AssertNotCalled(t, "DeleteBySymbol", mock.Anything, mock.Anything)
}

func TestSetPriceTarget_RejectsNegative(t *testing.T) {
	svc, _, tickers, _ := newTestService()
	ctx := context.Background()

	err := svc.SetPriceTarget(ctx, uuid.New(), "AAPL", decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	tickers.AssertNotCalled(t, "SetPriceTarget", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetRank(t *testing.T) {
	svc, _, tickers, _ := newTestService()
	ctx := context.Background()

	tickers.On("SetRank", ctx, "MSFT", decimal.NewFromInt(3)).Return(nil)
	require.NoError(t, svc.SetRank(ctx, "msft", decimal.NewFromInt(3)))
	tickers.AssertExpectations(t)
}
