package controller

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"time"

	"papertrader/src/ledgererr"
	"papertrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	// avgPriceScale matches the numeric(20,4) columns.
	avgPriceScale = 4
	moneyScale    = 2
)

// Capture records a system exception, logs it locally, and optionally
// persists it in the database.
func Capture(
	ctx context.Context,
	repo exceptionRepository,
	component string,
	operation string,
	userID string,
	level string,
	err error,
	contextData map[string]interface{},
) {

	if err == nil {
		return
	}

	var ctxJSON string
	if contextData != nil {
		if b, e := json.Marshal(contextData); e == nil {
			ctxJSON = string(b)
		}
	}

	exc := &model.Exception{
		Component: component,
		Operation: operation,
		UserID:    userID,
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		Level:     level,
		Context:   ctxJSON,
		CreatedAt: time.Now(),
	}

	// Local log
	logger.WithFields(map[string]interface{}{
		"component": component,
		"operation": operation,
		"user_id":   userID,
		"level":     level,
	}).WithError(err).Error("System exception captured")

	// Persist in database
	if repo != nil {
		if e := repo.Create(ctx, exc); e != nil {
			logger.WithError(e).Error("Failed to persist exception")
		}
	}
}

// captureFault persists err when it is a backend fault or something the
// taxonomy does not know. Business rejections are returned untouched.
func captureFault(
	ctx context.Context,
	repo exceptionRepository,
	component, operation, userID string,
	err error,
	contextData map[string]interface{},
) error {

	le, ok := ledgererr.AsError(err)
	if ok && le.Kind != ledgererr.KindStoreUnavailable {
		return err
	}

	// The store may be the thing that is down; do not block on it.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	Capture(persistCtx, repo, component, operation, userID, "error", err, contextData)

	if !ok {
		return ledgererr.StoreUnavailable(operation, err)
	}
	return err
}

func roundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(moneyScale)
}
