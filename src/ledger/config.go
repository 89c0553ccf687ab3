package ledger

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// local | nats
	Notifier string `envconfig:"LEDGER_NOTIFIER" default:"local"`
	NatsURL  string `envconfig:"NATS_URL" default:"nats://127.0.0.1:4222"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}

// NewNotifier builds the change notifier selected by cfg. The returned func
// releases its connection.
func NewNotifier(cfg *Config) (Notifier, func(), error) {
	switch strings.ToLower(cfg.Notifier) {
	case "", "local":
		return NewLocalNotifier(), func() {}, nil
	case "nats":
		n, err := DialNatsNotifier(cfg.NatsURL)
		if err != nil {
			return nil, nil, err
		}
		return n, n.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported ledger notifier %q", cfg.Notifier)
}
