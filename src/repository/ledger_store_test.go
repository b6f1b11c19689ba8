package repository

// Behavioural tests shared by both ledger backends. The Postgres store runs
// against SQLite here (row locking is a no-op there); its SQL is covered by
// the sqlmock tests in postgres_store_test.go.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"papertrader/src/database"
	"papertrader/src/ledgererr"
	"papertrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newTestDB opens an isolated in-memory SQLite database and migrates it.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenLocal(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func forEachBackend(t *testing.T, fn func(t *testing.T, store LedgerStore)) {
	t.Run("local", func(t *testing.T) {
		fn(t, NewLocalLedgerStore(newTestDB(t)))
	})
	t.Run("postgres", func(t *testing.T) {
		fn(t, NewPostgresLedgerStore(newTestDB(t)))
	})
}

func seedAccount(t *testing.T, store LedgerStore, userID string, cash string) {
	t.Helper()
	require.NoError(t, store.SaveAccount(context.Background(), &model.Account{
		UserID:                 userID,
		Cash:                   d(cash),
		InitialCash:            d(cash),
		DayStartPortfolioValue: d(cash),
		LastDayPnlReset:        "2025-01-02",
		AccountInitialized:     true,
	}))
}

func TestAccountRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store LedgerStore) {
		ctx := context.Background()

		acc, err := store.GetAccount(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, acc)

		seedAccount(t, store, "u1", "1000000")

		acc, err = store.GetAccount(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, acc)
		assert.True(t, acc.Cash.Equal(d("1000000")))

		acc.Cash = d("5.5")
		require.NoError(t, store.SaveAccount(ctx, acc))

		acc, err = store.GetAccount(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, acc.Cash.Equal(d("5.5")))

		ids, err := store.ListAccountIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, ids)
	})
}

func TestCreateAccountKeepsExistingRow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store LedgerStore) {
		ctx := context.Background()

		created, err := store.CreateAccount(ctx, &model.Account{UserID: "u1", Cash: d("1000000"), AccountInitialized: true})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = store.CreateAccount(ctx, &model.Account{UserID: "u1", Cash: d("1"), AccountInitialized: true})
		require.NoError(t, err)
		assert.False(t, created)

		acc, err := store.GetAccount(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, acc.Cash.Equal(d("1000000")))

		err = store.RunTransaction(ctx, "u1", func(tx LedgerTx) error {
			created, err := tx.CreateAccount(ctx, &model.Account{UserID: "u1", Cash: d("2")})
			assert.False(t, created)
			return err
		})
		require.NoError(t, err)
	})
}

func TestHoldingLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store LedgerStore) {
		ctx := context.Background()
		seedAccount(t, store, "u1", "1000")

		require.NoError(t, store.SaveHolding(ctx, &model.Holding{UserID: "u1", SecurityID: "TCS.NS", Quantity: 10, AvgPrice: d("100")}))
		require.NoError(t, store.SaveHolding(ctx, &model.Holding{UserID: "u1", SecurityID: "TCS.NS", Quantity: 12, AvgPrice: d("101")}))

		h, err := store.GetHolding(ctx, "u1", "TCS.NS")
		require.NoError(t, err)
		require.NotNil(t, h)
		assert.Equal(t, int64(12), h.Quantity)
		assert.Equal(t, model.ProductTypeCNC, h.ProductType)

		assert.Error(t, store.SaveHolding(ctx, &model.Holding{UserID: "u1", SecurityID: "ITC.NS", Quantity: 0, AvgPrice: d("1")}))

		require.NoError(t, store.DeleteHolding(ctx, "u1", "TCS.NS"))
		h, err = store.GetHolding(ctx, "u1", "TCS.NS")
		require.NoError(t, err)
		assert.Nil(t, h)
	})
}

func TestResetHoldingsWipesAndSetsCash(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store LedgerStore) {
		ctx := context.Background()
		seedAccount(t, store, "u1", "1000")
		seedAccount(t, store, "u2", "1000")

		for _, sec := range []string{"A.NS", "B.NS"} {
			require.NoError(t, store.SaveHolding(ctx, &model.Holding{UserID: "u1", SecurityID: sec, Quantity: 1, AvgPrice: d("1")}))
		}
		require.NoError(t, store.SaveHolding(ctx, &model.Holding{UserID: "u2", SecurityID: "A.NS", Quantity: 1, AvgPrice: d("1")}))

		require.NoError(t, store.ResetHoldings(ctx, "u1", d("42")))

		holdings, err := store.ListHoldings(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, holdings)

		acc, err := store.GetAccount(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, acc.Cash.Equal(d("42")))

		other, err := store.ListHoldings(ctx, "u2")
		require.NoError(t, err)
		assert.Len(t, other, 1)

		err = store.ResetHoldings(ctx, "nobody", d("1"))
		assert.True(t, errors.Is(err, ledgererr.ErrInvalidInput))
	})
}

func TestRunTransactionRollsBackOnError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store LedgerStore) {
		ctx := context.Background()
		seedAccount(t, store, "u1", "1000")

		boom := errors.New("boom")
		err := store.RunTransaction(ctx, "u1", func(tx LedgerTx) error {
			acc, err := tx.GetAccount(ctx, "u1")
			if err != nil {
				return err
			}
			acc.Cash = d("1")
			if err := tx.SaveAccount(ctx, acc); err != nil {
				return err
			}
			if err := tx.SaveHolding(ctx, &model.Holding{UserID: "u1", SecurityID: "X.NS", Quantity: 1, AvgPrice: d("1")}); err != nil {
				return err
			}
			if err := tx.AppendHistory(ctx, &model.HistoryEntry{UserID: "u1", Action: model.ActionBuy, SecurityID: "X.NS", Quantity: 1, Price: d("1"), TotalValue: d("1")}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		acc, err := store.GetAccount(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, acc.Cash.Equal(d("1000")))

		holdings, err := store.ListHoldings(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, holdings)

		history, err := store.ListHistory(ctx, "u1", 10)
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestRunTransactionReadsOwnWrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store LedgerStore) {
		ctx := context.Background()
		seedAccount(t, store, "u1", "1000")
		require.NoError(t, store.SaveHolding(ctx, &model.Holding{UserID: "u1", SecurityID: "OLD.NS", Quantity: 5, AvgPrice: d("2")}))

		err := store.RunTransaction(ctx, "u1", func(tx LedgerTx) error {
			if err := tx.ResetHoldings(ctx, "u1", d("77")); err != nil {
				return err
			}
			if err := tx.SaveHolding(ctx, &model.Holding{UserID: "u1", SecurityID: "NEW.NS", Quantity: 3, AvgPrice: d("9")}); err != nil {
				return err
			}

			acc, err := tx.GetAccount(ctx, "u1")
			require.NoError(t, err)
			assert.True(t, acc.Cash.Equal(d("77")))

			old, err := tx.GetHolding(ctx, "u1", "OLD.NS")
			require.NoError(t, err)
			assert.Nil(t, old)

			list, err := tx.ListHoldings(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "NEW.NS", list[0].SecurityID)
			return nil
		})
		require.NoError(t, err)

		list, err := store.ListHoldings(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "NEW.NS", list[0].SecurityID)
	})
}

func TestHistoryListAndTrim(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store LedgerStore) {
		ctx := context.Background()
		seedAccount(t, store, "u1", "1000")

		for i := 1; i <= 20; i++ {
			require.NoError(t, store.AppendHistory(ctx, &model.HistoryEntry{
				UserID:     "u1",
				Action:     model.ActionBuy,
				SecurityID: "TCS.NS",
				Quantity:   int64(i),
				Price:      d("1"),
				TotalValue: decimal.NewFromInt(int64(i)),
			}))
		}

		deleted, err := store.TrimHistory(ctx, "u1", 15)
		require.NoError(t, err)
		assert.Equal(t, int64(5), deleted)

		entries, err := store.ListHistory(ctx, "u1", 100)
		require.NoError(t, err)
		require.Len(t, entries, 15)
		assert.Equal(t, int64(20), entries[0].Quantity)
		assert.Equal(t, int64(6), entries[14].Quantity)
		assert.NotEmpty(t, entries[0].TradeID)

		deleted, err = store.TrimHistory(ctx, "u1", 15)
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})
}

func TestWatchlistSet(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store LedgerStore) {
		ctx := context.Background()

		require.NoError(t, store.AddWatchlist(ctx, "u1", "INFY.NS"))
		require.NoError(t, store.AddWatchlist(ctx, "u1", "INFY.NS"))
		require.NoError(t, store.AddWatchlist(ctx, "u1", "TCS.NS"))

		entries, err := store.ListWatchlist(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		removed, err := store.RemoveWatchlist(ctx, "u1", "INFY.NS")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.RemoveWatchlist(ctx, "u1", "INFY.NS")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

// Concurrent debits of the same account must never overdraw it.
func TestLocalStoreSerialisesSameAccount(t *testing.T) {
	store := NewLocalLedgerStore(newTestDB(t))
	ctx := context.Background()
	seedAccount(t, store, "u1", "1000")

	debit := func() error {
		return store.RunTransaction(ctx, "u1", func(tx LedgerTx) error {
			acc, err := tx.GetAccount(ctx, "u1")
			if err != nil {
				return err
			}
			cost := d("300")
			if acc.Cash.LessThan(cost) {
				return ledgererr.InsufficientFunds("X.NS", cost, acc.Cash, cost)
			}
			acc.Cash = acc.Cash.Sub(cost)
			return tx.SaveAccount(ctx, acc)
		})
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if debit() == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)

	acc, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, acc.Cash.Equal(d("100")))
}

func TestNewLedgerStore(t *testing.T) {
	db := newTestDB(t)

	s, err := NewLedgerStore(database.BackendLocal, db)
	require.NoError(t, err)
	assert.Equal(t, database.BackendLocal, s.Backend())

	s, err = NewLedgerStore(database.BackendPostgres, db)
	require.NoError(t, err)
	assert.Equal(t, database.BackendPostgres, s.Backend())

	_, err = NewLedgerStore("mongo", db)
	assert.Error(t, err)
}
