package pricing

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
)

// Clock abstracts time so retry delays and cache expiry can be faked.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy is a fixed-delay retry.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: time.Second}

// Do calls fn until it succeeds or the attempts are exhausted, sleeping
// Delay between attempts. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, clock Clock, op string, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if clock == nil {
		clock = SystemClock
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		logger.WithFields(map[string]interface{}{
			"op":      op,
			"attempt": attempt,
			"delay":   p.Delay.String(),
		}).WithError(err).Warn("Attempt failed, retrying")

		if sleepErr := clock.Sleep(ctx, p.Delay); sleepErr != nil {
			return sleepErr
		}
	}

	return err
}
