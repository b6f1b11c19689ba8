package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"papertrader/src/controller"
	"papertrader/src/database"
	"papertrader/src/externalmodel"
	"papertrader/src/pricing"
	"papertrader/src/repository"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

type staticSource struct {
	prices map[string]float64
}

func (s *staticSource) GetQuote(_ context.Context, symbol string) (*externalmodel.Quote, error) {
	p, ok := s.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("no quote for %s", symbol)
	}
	return &externalmodel.Quote{Symbol: symbol, RegularMarketPrice: &p}, nil
}

func (s *staticSource) GetQuotes(ctx context.Context, symbols []string) (map[string]externalmodel.Quote, error) {
	out := map[string]externalmodel.Quote{}
	for _, sym := range symbols {
		if q, err := s.GetQuote(ctx, sym); err == nil {
			out[sym] = *q
		}
	}
	return out, nil
}

func newTestServices(t *testing.T) Services {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenLocal(fmt.Sprintf("file:srv_%s?mode=memory&cache=shared", name), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := repository.NewLocalLedgerStore(db)
	oracle := pricing.NewOracle(&staticSource{prices: map[string]float64{"TCS.NS": 100}}, nil, pricing.RetryPolicy{MaxAttempts: 1}, nil)
	exceptions := repository.NewExceptionRepositoryWithDB(db)

	cfg := controller.Config{
		StartingCash:         decimal.NewFromInt(1000000),
		MaxAdjustCash:        decimal.NewFromInt(1000000),
		TradeHistoryLimit:    15,
		WatchlistLimit:       20,
		MarketTimezone:       "Asia/Kolkata",
		PortfolioInfoWorkers: 10,
	}

	accounts := controller.NewAccountController(store, oracle, exceptions, cfg)
	trades := controller.NewTradeController(accounts, store, oracle, exceptions, cfg)
	hub := NewTradeHub()
	trades.SetBroadcaster(hub)

	return Services{
		Accounts: accounts,
		Trades:   trades,
		Hub:      hub,
	}
}

func TestHealthcheckAndMetrics(t *testing.T) {
	srv := httptest.NewServer(NewRouter(newTestServices(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthcheck")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mresp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	assert.Equal(t, http.StatusOK, mresp.StatusCode)
}

func TestTradeOverHTTPIsBroadcast(t *testing.T) {
	s := newTestServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Hub.Run(ctx)

	srv := httptest.NewServer(NewRouter(s))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/trades"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.Hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/trade/alice", "application/json",
		strings.NewReader(`{"ticker":"TCS","quantity":2,"action":"BUY"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result controller.TradeResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "TCS.NS", result.SecurityID)
	assert.True(t, result.NewCash.Equal(decimal.NewFromInt(999800)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string                 `json:"type"`
		Data controller.TradeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, controller.TopicTrades, msg.Type)
	assert.Equal(t, result.TradeID, msg.Data.TradeID)
}

func TestPortfolioRouteRequiresUser(t *testing.T) {
	srv := httptest.NewServer(NewRouter(newTestServices(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/portfolio/alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	long := strings.Repeat("x", 200)
	resp2, err := http.Get(srv.URL + "/api/portfolio/" + long)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestBroadcastNeverBlocks(t *testing.T) {
	hub := NewTradeHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Broadcast(controller.TopicTrades, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked without a running hub")
	}
}

func TestStoppedHubRejectsLateClients(t *testing.T) {
	hub := NewTradeHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	returned := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(returned)
		hub.HandleWS(w, r)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleWS blocked after the hub stopped")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, hub.ClientCount())
}
