// Package ledgererr holds the rejection and fault taxonomy shared by the
// ledger, the trade path and the HTTP layer.
package ledgererr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindPriceUnavailable    Kind = "price_unavailable"
	KindInsufficientFunds   Kind = "insufficient_funds"
	KindInsufficientShares  Kind = "insufficient_shares"
	KindExternalAuthExpired Kind = "external_auth_expired"
	KindStoreUnavailable    Kind = "store_unavailable"
)

// Sentinels for errors.Is; matching is by Kind only.
var (
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrPriceUnavailable    = &Error{Kind: KindPriceUnavailable}
	ErrInsufficientFunds   = &Error{Kind: KindInsufficientFunds}
	ErrInsufficientShares  = &Error{Kind: KindInsufficientShares}
	ErrExternalAuthExpired = &Error{Kind: KindExternalAuthExpired}
	ErrStoreUnavailable    = &Error{Kind: KindStoreUnavailable}
)

// Error is a structured rejection. The optional fields carry what a caller
// needs to retry with corrected input (e.g. a smaller quantity).
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`

	SecurityID string           `json:"ticker,omitempty"`
	Price      *decimal.Decimal `json:"current_price,omitempty"`

	AvailableCash *decimal.Decimal `json:"available_cash,omitempty"`
	Required      *decimal.Decimal `json:"required,omitempty"`
	Shortfall     *decimal.Decimal `json:"shortfall,omitempty"`

	AvailableShares *int64 `json:"available_shares,omitempty"`
	RequestedShares *int64 `json:"requested_shares,omitempty"`

	Err error `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// HTTPStatus maps the kind to the status code returned by the API.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidInput, KindInsufficientFunds, KindInsufficientShares:
		return http.StatusBadRequest
	case KindPriceUnavailable:
		return http.StatusNotFound
	case KindExternalAuthExpired:
		return http.StatusUnauthorized
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func PriceUnavailable(securityID string, err error) *Error {
	return &Error{
		Kind:       KindPriceUnavailable,
		Message:    fmt.Sprintf("could not get price for %s", securityID),
		SecurityID: securityID,
		Err:        err,
	}
}

func InsufficientFunds(securityID string, price, cash, required decimal.Decimal) *Error {
	shortfall := required.Sub(cash)
	return &Error{
		Kind:          KindInsufficientFunds,
		Message:       fmt.Sprintf("Insufficient funds. Need %s, have %s", required.StringFixed(2), cash.StringFixed(2)),
		SecurityID:    securityID,
		Price:         &price,
		AvailableCash: &cash,
		Required:      &required,
		Shortfall:     &shortfall,
	}
}

func InsufficientShares(securityID string, price decimal.Decimal, available, requested int64) *Error {
	return &Error{
		Kind:            KindInsufficientShares,
		Message:         fmt.Sprintf("Insufficient shares. Have %d, selling %d of %s", available, requested, securityID),
		SecurityID:      securityID,
		Price:           &price,
		AvailableShares: &available,
		RequestedShares: &requested,
	}
}

func ExternalAuthExpired(err error) *Error {
	return &Error{
		Kind:    KindExternalAuthExpired,
		Message: "brokerage session expired, please re-authenticate",
		Err:     err,
	}
}

func StoreUnavailable(op string, err error) *Error {
	return &Error{
		Kind:    KindStoreUnavailable,
		Message: fmt.Sprintf("ledger store unavailable during %s", op),
		Err:     err,
	}
}

// AsError extracts the structured error, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}
