// Package ledger exposes ledger operations as one-shot commands so an
// operator can inspect or repair an account without the HTTP API.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"papertrader/src/controller"
	"papertrader/src/engine"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const commandTimeout = 60 * time.Second

// Runner executes a single ledger operation and prints the JSON result.
type Runner struct {
	Out io.Writer
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

func (r *Runner) run(fn func(ctx context.Context, eng *engine.Engine) (interface{}, error)) error {
	eng, err := engine.New()
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res, err := fn(ctx, eng)
	if err != nil {
		return err
	}
	return printJSON(r.out(), res)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Runner) Trade(userID, action, ticker string, quantity int64) error {
	return r.run(func(ctx context.Context, eng *engine.Engine) (interface{}, error) {
		return eng.Trades.Execute(ctx, controller.TradeRequest{
			UserID:     userID,
			SecurityID: ticker,
			Quantity:   quantity,
			Action:     action,
		})
	})
}

func (r *Runner) Portfolio(userID string) error {
	return r.run(func(ctx context.Context, eng *engine.Engine) (interface{}, error) {
		return eng.Accounts.GetPortfolio(ctx, userID)
	})
}

func (r *Runner) History(userID string) error {
	return r.run(func(ctx context.Context, eng *engine.Engine) (interface{}, error) {
		return eng.Accounts.History(ctx, userID)
	})
}

func (r *Runner) AdjustCash(userID, amount string) error {
	cash, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("invalid cash amount %q: %w", amount, err)
	}
	return r.run(func(ctx context.Context, eng *engine.Engine) (interface{}, error) {
		return eng.Accounts.AdjustCash(ctx, userID, cash)
	})
}

// Sync reconciles against the brokerage. An empty token reuses the stored
// session.
func (r *Runner) Sync(userID, token string) error {
	return r.run(func(ctx context.Context, eng *engine.Engine) (interface{}, error) {
		if token == "" {
			return eng.Reconcile.AutoSync(ctx, userID)
		}
		return eng.Reconcile.SyncBrokerage(ctx, userID, token)
	})
}

// Rollover forces a day rollover for one user, or for every account when
// userID is empty.
func (r *Runner) Rollover(userID string) error {
	return r.run(func(ctx context.Context, eng *engine.Engine) (interface{}, error) {
		if userID != "" {
			return eng.Accounts.ForceRollover(ctx, userID)
		}
		failed, err := eng.Accounts.RolloverAll(ctx)
		if err != nil {
			return nil, err
		}
		logrus.WithField("failed", failed).Info("Rollover pass finished")
		return map[string]int{"failed": failed}, nil
	})
}
