package feed

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Interval time.Duration `envconfig:"FEED_INTERVAL" default:"1500ms"`
	// 0 seeds from the clock.
	Seed int64 `envconfig:"FEED_SEED" default:"0"`
	// "SYMBOL:CLASS:PRICE;..." - empty uses the default watchlist.
	Watchlist string `envconfig:"FEED_WATCHLIST"`
	// none | binance
	QuoteSource string `envconfig:"FEED_QUOTE_SOURCE" default:"none"`
	// "SYMBOL=BASE_QUOTE;..." maps watchlist symbols to exchange pairs.
	QuotePairs string `envconfig:"FEED_QUOTE_PAIRS"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
