package main

import (
	"fmt"
	"os"
	"time"

	"papertrader/cmd/serve"
	"papertrader/src/database"
	"papertrader/src/utils"

	logger "github.com/sirupsen/logrus"
)

var (
	APP_NAME = os.Getenv("APP_NAME")
)

func main() {
	dbCfg := database.GetConfig()
	utils.SetupLogger(dbCfg.LogLevel, dbCfg.LogFormat)
	defer handlePanic()

	s := &serve.Server{WithRolloverLoop: true}
	if err := s.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		//nolint
		time.Sleep(time.Second * 5)
	}
}
