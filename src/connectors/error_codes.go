package connectors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrQuoteNotFound is returned when the market-data source has no price
	// for a symbol.
	ErrQuoteNotFound = errors.New("quote not found")

	// ErrBrokerageAuth is returned when the brokerage rejects the access
	// token (expired or revoked session).
	ErrBrokerageAuth = errors.New("brokerage session expired")
)

// KiteErrorTypes maps Kite Connect error_type values to short descriptions.
var KiteErrorTypes = map[string]string{
	"TokenException":      "session expired or invalidated, login again",
	"UserException":       "user account related error",
	"OrderException":      "order related error",
	"InputException":      "missing or invalid parameters",
	"MarginException":     "insufficient funds for the order",
	"HoldingException":    "insufficient holdings for the order",
	"NetworkException":    "brokerage could not reach the exchange",
	"DataException":       "brokerage internal data error",
	"GeneralException":    "unclassified brokerage error",
	"PermissionException": "api key lacks permission for this call",
}

// GetKiteErrorMsg returns a human-readable message for a Kite error_type.
func GetKiteErrorMsg(errorType string) string {
	if msg, ok := KiteErrorTypes[errorType]; ok {
		return msg
	}
	return fmt.Sprintf("UNKNOWN_KITE_ERROR_%s", errorType)
}

// isKiteAuthFailure reports whether a Kite reply means the token is no
// longer usable.
func isKiteAuthFailure(status int, errorType string) bool {
	if errorType == "TokenException" {
		return true
	}
	return status == http.StatusForbidden || status == http.StatusUnauthorized
}
