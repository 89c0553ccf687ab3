package feedsim

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Stop after this many batches; 0 runs until interrupted.
	MaxBatches int `envconfig:"FEED_MAX_BATCHES" default:"0"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
