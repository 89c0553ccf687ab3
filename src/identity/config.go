package identity

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// bcrypt work factor for stored credentials.
	BcryptCost int `envconfig:"IDENTITY_BCRYPT_COST" default:"10"`
	// How long a verified credential skips bcrypt; 0 disables.
	CacheTTL time.Duration `envconfig:"IDENTITY_CACHE_TTL" default:"1m"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
