package controller

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"papertrader/src/connectors"
	"papertrader/src/externalmodel"
	"papertrader/src/ledgererr"
	"papertrader/src/model"
	"papertrader/src/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBrokerage struct {
	mock.Mock
}

func (m *mockBrokerage) GetCashBalance(ctx context.Context, token string) (decimal.Decimal, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockBrokerage) GetSettledHoldings(ctx context.Context, token string) ([]externalmodel.KiteHolding, error) {
	args := m.Called(ctx, token)
	h, _ := args.Get(0).([]externalmodel.KiteHolding)
	return h, args.Error(1)
}

func (m *mockBrokerage) GetOpenPositions(ctx context.Context, token string) ([]externalmodel.KitePosition, error) {
	args := m.Called(ctx, token)
	p, _ := args.Get(0).([]externalmodel.KitePosition)
	return p, args.Error(1)
}

func newReconciler(f *fixture, broker brokerageClient) *ReconcileController {
	c := NewReconcileController(f.accounts, f.store, f.oracle, broker, f.exceptions)
	c.encryptToken = func(s string) (string, error) { return "sealed:" + s, nil }
	c.decryptToken = func(s string) (string, error) {
		if len(s) < 7 || s[:7] != "sealed:" {
			return "", errors.New("bad token")
		}
		return s[7:], nil
	}
	return c
}

func kiteHolding(symbol, exchange string, qty, t1 int64, avg, closePrice string) externalmodel.KiteHolding {
	h := externalmodel.KiteHolding{
		TradingSymbol: symbol,
		Exchange:      exchange,
		Quantity:      qty,
		T1Quantity:    t1,
		AveragePrice:  d(avg),
		ClosePrice:    d(closePrice),
	}
	return h
}

func TestSyncBrokerageReplacesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.trade(t, "alice", "BUY", "WIPRO.NS", 10, "500")
	_, err := f.accounts.AdjustCash(ctx, "alice", d("123"))
	require.NoError(t, err)

	broker := &mockBrokerage{}
	broker.On("GetCashBalance", mock.Anything, "tok").Return(d("50000"), nil)
	broker.On("GetSettledHoldings", mock.Anything, "tok").Return([]externalmodel.KiteHolding{
		kiteHolding("TCS", "NSE", 8, 2, "3000", "3100"),
		kiteHolding("ZERO", "NSE", 0, 0, "1", "1"),
	}, nil)
	broker.On("GetOpenPositions", mock.Anything, "tok").Return([]externalmodel.KitePosition{
		{TradingSymbol: "TCS", Exchange: "NSE", Product: "CNC", Quantity: 5, AveragePrice: d("3200")},
		{TradingSymbol: "INFY", Exchange: "NSE", Product: "MIS", Quantity: 50, AveragePrice: d("1500")},
		{TradingSymbol: "ITC", Exchange: "BSE", Product: "NRML", Quantity: 20, AveragePrice: d("400"), ClosePrice: d("410")},
	}, nil)

	f.oracle.set("TCS.NS", "3300")

	rec := newReconciler(f, broker)
	res, err := rec.SyncBrokerage(ctx, "alice", "tok")
	require.NoError(t, err)
	broker.AssertExpectations(t)

	assert.Equal(t, SyncStatusSuccess, res.Status)
	assert.Equal(t, 2, res.HoldingsSynced)
	assert.True(t, res.Cash.Equal(d("50000")))
	// 50000 + 15*3300 + 20*400 (ITC unpriced, avg fallback)
	assert.True(t, res.NewPortfolioValue.Equal(d("107500")), res.NewPortfolioValue.String())

	holdings, err := f.store.ListHoldings(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, holdings, 2)

	byID := map[string]model.Holding{}
	for _, h := range holdings {
		byID[h.SecurityID] = h
	}
	assert.NotContains(t, byID, "WIPRO.NS")
	assert.Equal(t, int64(15), byID["TCS.NS"].Quantity)
	assert.Equal(t, int64(20), byID["ITC.NS"].Quantity)

	acc := f.account(t, "alice")
	assert.True(t, acc.Cash.Equal(d("50000")))
	assert.True(t, acc.DayStartPortfolioValue.Equal(d("107500")))
	assert.True(t, acc.NetCashFlowToday.IsZero())
	assert.True(t, acc.BrokerageSyncedOnce)
	assert.Equal(t, "sealed:tok", acc.BrokerageToken)
	assert.Equal(t, "2025-01-02", acc.LastDayPnlReset)
}

func TestSyncBrokerageAuthExpiredUnlinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.trade(t, "alice", "BUY", "WIPRO.NS", 10, "500")
	require.NoError(t, f.store.RunTransaction(ctx, "alice", func(tx repository.LedgerTx) error {
		acc, err := tx.GetAccount(ctx, "alice")
		if err != nil {
			return err
		}
		acc.BrokerageSyncedOnce = true
		acc.BrokerageToken = "sealed:old"
		return tx.SaveAccount(ctx, acc)
	}))

	broker := &mockBrokerage{}
	broker.On("GetCashBalance", mock.Anything, "old").
		Return(decimal.Zero, fmt.Errorf("kite /user/margins: %w", connectors.ErrBrokerageAuth))

	rec := newReconciler(f, broker)
	_, err := rec.AutoSync(ctx, "alice")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledgererr.ErrExternalAuthExpired))
	broker.AssertNotCalled(t, "GetSettledHoldings", mock.Anything, mock.Anything)

	acc := f.account(t, "alice")
	assert.Empty(t, acc.BrokerageToken)
	assert.False(t, acc.BrokerageSyncedOnce)
	assert.True(t, acc.Cash.Equal(d("995000")))

	h, err := f.store.GetHolding(ctx, "alice", "WIPRO.NS")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, int64(10), h.Quantity)
}

func TestSyncBrokerageOtherFailureLeavesLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.trade(t, "alice", "BUY", "WIPRO.NS", 10, "500")

	broker := &mockBrokerage{}
	broker.On("GetCashBalance", mock.Anything, "tok").Return(d("1"), nil)
	broker.On("GetSettledHoldings", mock.Anything, "tok").Return(nil, errors.New("HTTP 502"))

	rec := newReconciler(f, broker)
	_, err := rec.SyncBrokerage(ctx, "alice", "tok")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ledgererr.ErrExternalAuthExpired))

	acc := f.account(t, "alice")
	assert.True(t, acc.Cash.Equal(d("995000")))
	assert.False(t, acc.BrokerageSyncedOnce)

	holdings, err := f.store.ListHoldings(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, holdings, 1)
}

func TestSyncBrokerageClampsNegativeCash(t *testing.T) {
	f := newFixture(t)

	broker := &mockBrokerage{}
	broker.On("GetCashBalance", mock.Anything, "tok").Return(d("-250.5"), nil)
	broker.On("GetSettledHoldings", mock.Anything, "tok").Return([]externalmodel.KiteHolding{}, nil)
	broker.On("GetOpenPositions", mock.Anything, "tok").Return([]externalmodel.KitePosition{}, nil)

	res, err := newReconciler(f, broker).SyncBrokerage(context.Background(), "alice", "tok")
	require.NoError(t, err)
	assert.True(t, res.Cash.IsZero())
	assert.Zero(t, res.HoldingsSynced)
	assert.False(t, f.account(t, "alice").Cash.IsNegative())
}

func TestSyncBrokerageRequiresToken(t *testing.T) {
	f := newFixture(t)
	broker := &mockBrokerage{}

	_, err := newReconciler(f, broker).SyncBrokerage(context.Background(), "alice", " ")
	assert.True(t, errors.Is(err, ledgererr.ErrInvalidInput))
	broker.AssertExpectations(t)
}

func TestAutoSyncWithoutStoredSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.Ensure(ctx, "alice")
	require.NoError(t, err)

	_, err = newReconciler(f, &mockBrokerage{}).AutoSync(ctx, "alice")
	assert.True(t, errors.Is(err, ledgererr.ErrExternalAuthExpired))

	_, err = newReconciler(f, &mockBrokerage{}).AutoSync(ctx, "nobody")
	assert.True(t, errors.Is(err, ledgererr.ErrExternalAuthExpired))
}
