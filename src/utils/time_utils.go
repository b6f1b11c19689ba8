package utils

import (
	"time"

	"papertrader/src/model"

	logger "github.com/sirupsen/logrus"
)

// LoadLocation falls back to UTC when the zone database lacks name.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.WithField("timezone", name).WithError(err).Warn("Unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}

// TradingDay is the calendar date of t in loc, as YYYY-MM-DD.
func TradingDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(model.DateLayout)
}
