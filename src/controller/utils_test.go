package controller

import (
	"context"
	"errors"
	"testing"

	"papertrader/src/ledgererr"
	"papertrader/src/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturePersistsException(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewExceptionRepositoryWithDB(db)
	ctx := context.Background()

	Capture(ctx, repo, "TradeController", "Execute", "alice", "error", errors.New("disk full"), map[string]interface{}{
		"ticker": "TCS.NS",
	})
	Capture(ctx, repo, "TradeController", "Execute", "alice", "error", nil, nil)

	rows, err := repo.FindLatest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TradeController", rows[0].Component)
	assert.Equal(t, "Execute", rows[0].Operation)
	assert.Equal(t, "alice", rows[0].UserID)
	assert.Equal(t, "disk full", rows[0].Message)
	assert.JSONEq(t, `{"ticker":"TCS.NS"}`, rows[0].Context)
	assert.NotEmpty(t, rows[0].Stack)
}

func TestCaptureFault(t *testing.T) {
	ctx := context.Background()

	t.Run("business rejection is not captured", func(t *testing.T) {
		rec := &recordingExceptions{}
		in := ledgererr.InvalidInput("bad")
		out := captureFault(ctx, rec, "c", "op", "u", in, nil)
		assert.Same(t, in, out)
		assert.Empty(t, rec.rows)
	})

	t.Run("store fault is captured as is", func(t *testing.T) {
		rec := &recordingExceptions{}
		in := ledgererr.StoreUnavailable("op", errors.New("down"))
		out := captureFault(ctx, rec, "c", "op", "u", in, nil)
		assert.Same(t, in, out)
		assert.Len(t, rec.rows, 1)
	})

	t.Run("unknown error becomes store unavailable", func(t *testing.T) {
		rec := &recordingExceptions{}
		out := captureFault(ctx, rec, "c", "op", "u", errors.New("driver: bad conn"), nil)
		assert.True(t, errors.Is(out, ledgererr.ErrStoreUnavailable))
		assert.Len(t, rec.rows, 1)
	})
}
