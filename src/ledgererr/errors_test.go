package ledgererr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsufficientFundsCarriesContext(t *testing.T) {
	err := InsufficientFunds("INFY.NS", decimal.NewFromInt(1500), decimal.NewFromInt(1000), decimal.NewFromInt(3000))

	require.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.False(t, errors.Is(err, ErrInsufficientShares))
	assert.True(t, err.Shortfall.Equal(decimal.NewFromInt(2000)))
	assert.True(t, err.Price.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, "Insufficient funds. Need 3000.00, have 1000.00", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.HTTPStatus())
}

func TestIsThroughWrapping(t *testing.T) {
	base := StoreUnavailable("RunTransaction", errors.New("connection refused"))
	wrapped := fmt.Errorf("execute trade: %w", base)

	assert.True(t, errors.Is(wrapped, ErrStoreUnavailable))
	assert.True(t, IsKind(wrapped, KindStoreUnavailable))

	e, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, e.HTTPStatus())
	assert.Contains(t, e.Error(), "connection refused")
}

func TestHTTPStatusByKind(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{InvalidInput("bad quantity %d", -1), http.StatusBadRequest},
		{InsufficientShares("TCS.NS", decimal.NewFromInt(10), 1, 2), http.StatusBadRequest},
		{PriceUnavailable("XYZ.NS", nil), http.StatusNotFound},
		{ExternalAuthExpired(nil), http.StatusUnauthorized},
		{&Error{Kind: "unknown"}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.HTTPStatus(), string(tc.err.Kind))
	}
}
