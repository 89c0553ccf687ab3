package token

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppID string `envconfig:"APP_ID" default:"neotrade-neo-rules"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
