package handler

import (
	"context"
	"net/http"

	"papertrader/src/controller"

	"github.com/go-chi/chi/v5"
)

type tradeService interface {
	Execute(ctx context.Context, req controller.TradeRequest) (*controller.TradeResult, error)
}

// TradeHandler executes a BUY or SELL at the current market price.
func TradeHandler(svc tradeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFrom(w, r)
		if !ok {
			return
		}

		var req controller.TradeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		req.UserID = userID

		res, err := svc.Execute(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func StockPriceHandler(svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quote, err := svc.StockPrice(r.Context(), chi.URLParam(r, "ticker"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, quote)
	}
}
