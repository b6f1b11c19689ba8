package executors

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
)

// roller is the part of the account controller the loop drives.
type roller interface {
	RolloverAll(ctx context.Context) (int, error)
}

// newTicker is swapped in tests to drive ticks by hand.
var newTicker = func(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// StartLoop pre-warms the day P&L baseline of every account so the first
// request of the day does not pay for the rollover. It returns when ctx is
// cancelled.
func StartLoop(ctx context.Context, accounts roller) error {
	config := GetConfig()

	if accounts == nil {
		return errors.New("rollover loop needs an account controller")
	}
	if config.LoopPeriod <= 0 {
		return errors.New("ROLLOVER_LOOP_PERIOD must be positive")
	}

	tick, stop := newTicker(config.LoopPeriod) // Set up a ticker that fires periodically
	defer stop()

	logger.WithField("period", config.LoopPeriod.String()).Info("rollover loop started")

	if config.RunOnStart {
		runPass(ctx, accounts)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("rollover loop stopped")
			return nil

		case <-tick:
			runPass(ctx, accounts)
		}
	}
}

func runPass(ctx context.Context, accounts roller) {
	start := time.Now()

	failed, err := accounts.RolloverAll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.WithError(err).Error("rollover pass failed")
		}
		return
	}

	entry := logger.WithFields(map[string]interface{}{
		"failed":   failed,
		"duration": time.Since(start).String(),
	})
	if failed > 0 {
		entry.Warn("rollover pass finished with failures")
		return
	}
	entry.Debug("rollover pass finished")
}
