package handler

import (
	"context"
	"net/http"

	"papertrader/src/controller"
	"papertrader/src/model"

	"github.com/shopspring/decimal"
)

type accountService interface {
	GetPortfolio(ctx context.Context, userID string) (*controller.PortfolioView, error)
	AdjustCash(ctx context.Context, userID string, newCash decimal.Decimal) (*controller.AdjustCashResult, error)
	History(ctx context.Context, userID string) ([]model.HistoryEntry, error)
	StockPrice(ctx context.Context, raw string) (*controller.StockQuote, error)
}

// PortfolioHandler returns the valued portfolio of the user in the path.
func PortfolioHandler(svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFrom(w, r)
		if !ok {
			return
		}

		view, err := svc.GetPortfolio(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type historyResponse struct {
	History []model.HistoryEntry `json:"history"`
}

func HistoryHandler(svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFrom(w, r)
		if !ok {
			return
		}

		entries, err := svc.History(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, historyResponse{History: entries})
	}
}

type adjustCashPayload struct {
	Cash *decimal.Decimal `json:"cash"`
}

// AdjustCashHandler overwrites the user's cash balance.
func AdjustCashHandler(svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFrom(w, r)
		if !ok {
			return
		}

		var payload adjustCashPayload
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, r, err)
			return
		}
		if payload.Cash == nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "cash is required"})
			return
		}

		res, err := svc.AdjustCash(r.Context(), userID, *payload.Cash)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
