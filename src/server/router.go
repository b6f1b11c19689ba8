package server

import (
	"net/http"
	"time"

	"papertrader/src/auth"
	"papertrader/src/controller"
	"papertrader/src/handler"
	"papertrader/src/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"
)

// Services are the controllers exposed over HTTP.
type Services struct {
	Accounts  *controller.AccountController
	Trades    *controller.TradeController
	Reconcile *controller.ReconcileController
	Hub       *TradeHub
}

func NewRouter(s Services) http.Handler {
	r := chi.NewRouter()

	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})
	r.Handle("/metrics", metrics.Handler())

	if s.Hub != nil {
		r.Get("/ws/trades", s.Hub.HandleWS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/stock/price/{ticker}", handler.StockPriceHandler(s.Accounts))

		r.Group(func(r chi.Router) {
			r.Use(auth.UserFromPath)

			r.Get("/portfolio/{userID}", handler.PortfolioHandler(s.Accounts))
			r.Get("/history/{userID}", handler.HistoryHandler(s.Accounts))
			r.Post("/trade/{userID}", handler.TradeHandler(s.Trades))
			r.Post("/adjust-cash/{userID}", handler.AdjustCashHandler(s.Accounts))
			r.Post("/sync/{userID}", handler.SyncHandler(s.Reconcile))

			r.Get("/watchlist/{userID}", handler.WatchlistHandler(s.Accounts))
			r.Post("/watchlist/{userID}", handler.AddWatchlistHandler(s.Accounts))
			r.Delete("/watchlist/{userID}/{ticker}", handler.RemoveWatchlistHandler(s.Accounts))
		})
	})

	return r
}
