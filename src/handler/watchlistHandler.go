package handler

import (
	"context"
	"net/http"

	"papertrader/src/controller"
	"papertrader/src/ledgererr"

	"github.com/go-chi/chi/v5"
)

type watchlistService interface {
	AddToWatchlist(ctx context.Context, userID string, tickers []string) (*controller.WatchlistAddResult, error)
	RemoveFromWatchlist(ctx context.Context, userID, raw string) (string, error)
	Watchlist(ctx context.Context, userID string) ([]controller.WatchlistItem, error)
}

type watchlistResponse struct {
	Watchlist []controller.WatchlistItem `json:"watchlist"`
}

type watchlistPayload struct {
	Tickers []string `json:"tickers"`
	Ticker  string   `json:"ticker,omitempty"`
}

type watchlistAddResponse struct {
	Message string `json:"message"`
	*controller.WatchlistAddResult
}

func WatchlistHandler(svc watchlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFrom(w, r)
		if !ok {
			return
		}

		items, err := svc.Watchlist(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, watchlistResponse{Watchlist: items})
	}
}

// AddWatchlistHandler accepts {"tickers": [...]} or {"ticker": "..."}.
func AddWatchlistHandler(svc watchlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFrom(w, r)
		if !ok {
			return
		}

		var payload watchlistPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, r, err)
			return
		}
		tickers := payload.Tickers
		if payload.Ticker != "" {
			tickers = append(tickers, payload.Ticker)
		}

		res, err := svc.AddToWatchlist(r.Context(), userID, tickers)
		if err != nil {
			if le, ok := ledgererr.AsError(err); ok && res != nil {
				writeJSON(w, le.HTTPStatus(), watchlistAddResponse{Message: le.Error(), WatchlistAddResult: res})
				return
			}
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, watchlistAddResponse{Message: "watchlist updated", WatchlistAddResult: res})
	}
}

func RemoveWatchlistHandler(svc watchlistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFrom(w, r)
		if !ok {
			return
		}

		removed, err := svc.RemoveFromWatchlist(r.Context(), userID, chi.URLParam(r, "ticker"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "removed", "ticker": removed})
	}
}
