package executor

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"papertrader/src/engine"
	"papertrader/src/executors"

	"github.com/sirupsen/logrus"
)

// Executor runs the background rollover loop as a standalone process.
type Executor struct{}

func (t *Executor) Start() error {
	config := GetConfig()
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	eng, err := engine.New()
	if err != nil {
		logrus.WithError(err).Error("Failed to initialise ledger engine")
		return err
	}
	defer eng.Close()

	logrus.WithField("app", config.AppName).Info("Starting rollover executor")

	if err := executors.StartLoop(ctx, eng.Accounts); err != nil {
		logrus.WithError(err).Error("Failed to start rollover loop")
		return err
	}

	return nil
}
