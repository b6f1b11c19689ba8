package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"papertrader/src/auth"
	"papertrader/src/ledgererr"

	logger "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error  string           `json:"error"`
	Detail *ledgererr.Error `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// writeError maps ledger errors onto status codes. Server-side faults get a
// generic message; the cause is already logged and captured.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	le, ok := ledgererr.AsError(err)
	if !ok {
		logger.WithError(err).WithField("path", r.URL.Path).Error("unhandled request error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
		return
	}

	status := le.HTTPStatus()
	if status >= http.StatusInternalServerError {
		writeJSON(w, status, errorResponse{Error: http.StatusText(status), Detail: &ledgererr.Error{Kind: le.Kind}})
		return
	}

	writeJSON(w, status, errorResponse{Error: le.Error(), Detail: le})
}

func decodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return ledgererr.InvalidInput("invalid payload: %v", err)
	}
	return nil
}

var errNoUser = errors.New("user not found in request context")

func userFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		logger.WithError(errNoUser).WithField("path", r.URL.Path).Warn("rejecting request")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user id is required"})
		return "", false
	}
	return userID, true
}
