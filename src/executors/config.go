package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	LoopPeriod time.Duration `envconfig:"ROLLOVER_LOOP_PERIOD" default:"5m"`
	// RunOnStart triggers a pass before the first tick.
	RunOnStart bool `envconfig:"ROLLOVER_RUN_ON_START" default:"true"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
