package executors

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRoller struct {
	calls atomic.Int32
	err   error
}

func (r *countingRoller) RolloverAll(ctx context.Context) (int, error) {
	r.calls.Add(1)
	return 0, r.err
}

func withManualTicker(t *testing.T) chan time.Time {
	t.Helper()
	old := newTicker
	ch := make(chan time.Time)
	newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return ch, func() {}
	}
	t.Cleanup(func() { newTicker = old })
	return ch
}

func TestStartLoopRunsOnStartAndEachTick(t *testing.T) {
	ticks := withManualTicker(t)
	t.Setenv("ROLLOVER_RUN_ON_START", "true")

	r := &countingRoller{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- StartLoop(ctx, r) }()

	require.Eventually(t, func() bool { return r.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ticks <- time.Now()
	ticks <- time.Now()
	require.Eventually(t, func() bool { return r.calls.Load() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestStartLoopKeepsGoingAfterFailedPass(t *testing.T) {
	ticks := withManualTicker(t)
	t.Setenv("ROLLOVER_RUN_ON_START", "false")

	r := &countingRoller{err: errors.New("db down")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- StartLoop(ctx, r) }()

	ticks <- time.Now()
	ticks <- time.Now()
	require.Eventually(t, func() bool { return r.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestStartLoopRejectsBadConfig(t *testing.T) {
	assert.Error(t, StartLoop(context.Background(), nil))

	t.Setenv("ROLLOVER_LOOP_PERIOD", "0s")
	assert.Error(t, StartLoop(context.Background(), &countingRoller{}))
}
