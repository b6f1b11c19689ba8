package serve

import (
	"context"

	"papertrader/src/engine"
	"papertrader/src/executors"
	"papertrader/src/server"

	"github.com/sirupsen/logrus"
)

// Server runs the HTTP API, the trade feed and, optionally, the rollover
// loop in one process.
type Server struct {
	WithRolloverLoop bool
}

func (s *Server) Start() error {
	cfg := server.GetConfig()

	eng, err := engine.New()
	if err != nil {
		logrus.WithError(err).Error("Failed to initialise ledger engine")
		return err
	}
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := server.NewTradeHub()
	go hub.Run(ctx)
	eng.Trades.SetBroadcaster(hub)

	if s.WithRolloverLoop {
		go func() {
			if err := executors.StartLoop(ctx, eng.Accounts); err != nil {
				logrus.WithError(err).Error("Rollover loop exited")
			}
		}()
	}

	router := server.NewRouter(server.Services{
		Accounts:  eng.Accounts,
		Trades:    eng.Trades,
		Reconcile: eng.Reconcile,
		Hub:       hub,
	})

	server.StartServer(cfg.Port, router, cancel)
	return nil
}
