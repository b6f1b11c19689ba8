package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"papertrader/src/database"
	"papertrader/src/ledgererr"
	"papertrader/src/model"
	"papertrader/src/pricing"
	"papertrader/src/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testConfig() Config {
	return Config{
		StartingCash:         d("1000000"),
		MaxAdjustCash:        d("1000000"),
		TradeHistoryLimit:    15,
		WatchlistLimit:       20,
		MarketTimezone:       "Asia/Kolkata",
		PortfolioInfoWorkers: 10,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenLocal(fmt.Sprintf("file:ctrl_%s?mode=memory&cache=shared", name), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// fakeOracle serves fixed prices; ids without a price are unavailable.
type fakeOracle struct {
	mu        sync.Mutex
	prices    map[string]decimal.Decimal
	prevClose map[string]decimal.Decimal
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		prices:    map[string]decimal.Decimal{},
		prevClose: map[string]decimal.Decimal{},
	}
}

func (o *fakeOracle) set(id, price string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[id] = d(price)
}

func (o *fakeOracle) GetPrice(_ context.Context, id string) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, ok := o.prices[id]
	if !ok {
		return decimal.Zero, ledgererr.PriceUnavailable(id, nil)
	}
	return p, nil
}

func (o *fakeOracle) GetFreshPrice(ctx context.Context, id string) (decimal.Decimal, error) {
	return o.GetPrice(ctx, id)
}

func (o *fakeOracle) GetPrices(_ context.Context, ids []string) map[string]decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := map[string]decimal.Decimal{}
	for _, id := range ids {
		if p, ok := o.prices[id]; ok {
			out[id] = p
		}
	}
	return out
}

func (o *fakeOracle) GetQuoteInfo(ctx context.Context, id string) (*pricing.QuoteInfo, error) {
	p, err := o.GetPrice(ctx, id)
	if err != nil {
		return nil, err
	}
	info := &pricing.QuoteInfo{SecurityID: id, Price: p, Currency: "INR"}

	o.mu.Lock()
	defer o.mu.Unlock()
	if pc, ok := o.prevClose[id]; ok {
		info.PreviousClose = &pc
	}
	return info, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(dur time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(dur)
}

type recordingExceptions struct {
	mu   sync.Mutex
	rows []*model.Exception
}

func (r *recordingExceptions) Create(_ context.Context, exc *model.Exception) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, exc)
	return nil
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	payloads []interface{}
}

func (b *recordingBroadcaster) Broadcast(topic string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, payload)
}

type fixture struct {
	store      repository.LedgerStore
	oracle     *fakeOracle
	clock      *testClock
	exceptions *recordingExceptions
	accounts   *AccountController
	trades     *TradeController
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewLocalLedgerStore(newTestDB(t))
	oracle := newFakeOracle()
	exceptions := &recordingExceptions{}
	cfg := testConfig()

	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	clock := &testClock{now: time.Date(2025, 1, 2, 10, 0, 0, 0, ist)}

	accounts := NewAccountController(store, oracle, exceptions, cfg)
	accounts.SetClock(clock.Now)

	return &fixture{
		store:      store,
		oracle:     oracle,
		clock:      clock,
		exceptions: exceptions,
		accounts:   accounts,
		trades:     NewTradeController(accounts, store, oracle, exceptions, cfg),
	}
}

func (f *fixture) account(t *testing.T, userID string) *model.Account {
	t.Helper()
	acc, err := f.store.GetAccount(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, acc)
	return acc
}

func (f *fixture) trade(t *testing.T, userID, action, ticker string, qty int64, price string) *TradeResult {
	t.Helper()
	f.oracle.set(ticker, price)
	res, err := f.trades.Execute(context.Background(), TradeRequest{
		UserID:     userID,
		SecurityID: ticker,
		Quantity:   qty,
		Action:     action,
	})
	require.NoError(t, err)
	return res
}
