package main

import (
	"errors"
	"fmt"
	"os"

	"papertrader/cmd/executor"
	"papertrader/cmd/ledger"
	"papertrader/cmd/serve"
	"papertrader/src/database"
	"papertrader/src/utils"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Papertrader CMD"
	app.Usage = "The paper trading ledger command line interface"
	app.Version = Version

	app.Before = func(_ *cli.Context) error {
		cfg := database.GetConfig()
		utils.SetupLogger(cfg.LogLevel, cfg.LogFormat)
		return nil
	}

	app.Commands = []cli.Command{
		serveCMD,
		executorCMD,
		tradeCMD,
		portfolioCMD,
		historyCMD,
		adjustCashCMD,
		syncCMD,
		rolloverCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var userFlag = cli.StringFlag{
	Name:  "user, u",
	Usage: "ledger user id",
}

var (
	serveCMD = cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP API",
		Action: serveAction,
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "no-rollover",
				Usage: "do not run the rollover loop in-process",
			},
		},
		Description: `Run the HTTP API and the live trade feed`,
	}
	executorCMD = cli.Command{
		Name:        "executor",
		Usage:       "run the rollover loop",
		Action:      executorAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the day rollover loop as a standalone process`,
	}
	tradeCMD = cli.Command{
		Name:   "trade",
		Usage:  "execute a paper trade",
		Action: tradeAction,
		Flags: []cli.Flag{
			userFlag,
			cli.StringFlag{Name: "action, a", Usage: "BUY or SELL"},
			cli.StringFlag{Name: "ticker, t", Usage: "ticker or company name"},
			cli.Int64Flag{Name: "quantity, q", Usage: "number of shares"},
		},
		Description: `Execute a BUY or SELL at the live price`,
	}
	portfolioCMD = cli.Command{
		Name:        "portfolio",
		Usage:       "print a portfolio valuation",
		Action:      portfolioAction,
		Flags:       []cli.Flag{userFlag},
		Description: `Print holdings, P&L and summary for a user`,
	}
	historyCMD = cli.Command{
		Name:        "history",
		Usage:       "print recent trades",
		Action:      historyAction,
		Flags:       []cli.Flag{userFlag},
		Description: `Print the most recent trades for a user, newest first`,
	}
	adjustCashCMD = cli.Command{
		Name:   "adjust-cash",
		Usage:  "set the cash balance",
		Action: adjustCashAction,
		Flags: []cli.Flag{
			userFlag,
			cli.StringFlag{Name: "cash, c", Usage: "new cash balance"},
		},
		Description: `Set the cash balance and record the change as a cash flow`,
	}
	syncCMD = cli.Command{
		Name:   "sync",
		Usage:  "reconcile with the brokerage",
		Action: syncAction,
		Flags: []cli.Flag{
			userFlag,
			cli.StringFlag{Name: "token", Usage: "brokerage access token; the stored session is used when empty"},
		},
		Description: `Replace the ledger with the brokerage's cash and holdings`,
	}
	rolloverCMD = cli.Command{
		Name:        "rollover",
		Usage:       "force a day rollover",
		Action:      rolloverAction,
		Flags:       []cli.Flag{userFlag},
		Description: `Force a day rollover for one user, or every account when --user is omitted`,
	}
)

func requireUser(c *cli.Context) (string, error) {
	user := c.String("user")
	if user == "" {
		return "", errors.New("--user is required")
	}
	return user, nil
}

func serveAction(c *cli.Context) error {
	logrus.Info("Starting serve CMD")

	s := &serve.Server{WithRolloverLoop: !c.Bool("no-rollover")}
	if err := s.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func executorAction(_ *cli.Context) error {
	logrus.Info("Starting executor CMD")

	rollover := &executor.Executor{}
	if err := rollover.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func tradeAction(c *cli.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	return (&ledger.Runner{}).Trade(user, c.String("action"), c.String("ticker"), c.Int64("quantity"))
}

func portfolioAction(c *cli.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	return (&ledger.Runner{}).Portfolio(user)
}

func historyAction(c *cli.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	return (&ledger.Runner{}).History(user)
}

func adjustCashAction(c *cli.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	return (&ledger.Runner{}).AdjustCash(user, c.String("cash"))
}

func syncAction(c *cli.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	return (&ledger.Runner{}).Sync(user, c.String("token"))
}

func rolloverAction(c *cli.Context) error {
	return (&ledger.Runner{}).Rollover(c.String("user"))
}
