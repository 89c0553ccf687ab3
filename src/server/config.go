package server

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"PORT" default:"9898"`
	// SERVER_PORT wins over PORT when both are set.
	ServerPort string `envconfig:"SERVER_PORT"`
	// Tenant of every identity and ledger served by this process.
	AppID string `envconfig:"APP_ID" default:"neotrade-neo-rules"`
	// Comma separated browser origins allowed to call the API.
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	if config.ServerPort != "" {
		config.Port = config.ServerPort
	}
	return &config
}
