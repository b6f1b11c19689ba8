package handler

import (
	"context"
	"net/http"

	"papertrader/src/controller"
)

type syncService interface {
	SyncBrokerage(ctx context.Context, userID, token string) (*controller.SyncResult, error)
	AutoSync(ctx context.Context, userID string) (*controller.SyncResult, error)
}

type syncPayload struct {
	Token string `json:"token"`
}

// SyncHandler reconciles the paper account with the brokerage. Without a
// token in the body the stored session is used.
func SyncHandler(svc syncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userFrom(w, r)
		if !ok {
			return
		}

		var payload syncPayload
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &payload); err != nil {
				writeError(w, r, err)
				return
			}
		}

		var (
			res *controller.SyncResult
			err error
		)
		if payload.Token != "" {
			res, err = svc.SyncBrokerage(r.Context(), userID, payload.Token)
		} else {
			res, err = svc.AutoSync(r.Context(), userID)
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
