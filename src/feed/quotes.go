package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"neotrade/src/model"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"
)

// ErrNoQuote means the source does not price the symbol.
var ErrNoQuote = errors.New("no quote for symbol")

// QuoteSource supplies real market prices behind the simulated feed.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// tickerAPI is the part of goex.API the quote source uses.
type tickerAPI interface {
	GetTicker(pair goex.CurrencyPair) (*goex.Ticker, error)
}

// GoexQuoteSource reads last prices from an exchange through goex.
type GoexQuoteSource struct {
	api   tickerAPI
	pairs map[string]goex.CurrencyPair
}

func NewGoexQuoteSource(api tickerAPI, pairs map[string]goex.CurrencyPair) *GoexQuoteSource {
	return &GoexQuoteSource{api: api, pairs: pairs}
}

// NewBinanceQuoteSource uses the public Binance spot API.
func NewBinanceQuoteSource(pairs map[string]goex.CurrencyPair) *GoexQuoteSource {
	api := binance.NewWithConfig(&goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	})
	return NewGoexQuoteSource(api, pairs)
}

func (g *GoexQuoteSource) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	pair, ok := g.pairs[symbol]
	if !ok {
		return decimal.Zero, ErrNoQuote
	}
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	ticker, err := g.api.GetTicker(pair)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ticker %s: %w", pair.String(), err)
	}
	if ticker == nil || ticker.Last <= 0 {
		return decimal.Zero, fmt.Errorf("ticker %s: no last price", pair.String())
	}
	return decimal.NewFromFloat(ticker.Last).Round(2), nil
}

// ParseQuotePairs reads "SYMBOL=BASE_QUOTE" entries separated by ';'.
func ParseQuotePairs(raw string) (map[string]goex.CurrencyPair, error) {
	pairs := make(map[string]goex.CurrencyPair)
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		symbol, pair, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid quote pair %q", entry)
		}
		base, quote, ok := strings.Cut(strings.TrimSpace(pair), "_")
		if !ok || base == "" || quote == "" {
			return nil, fmt.Errorf("invalid currency pair %q", pair)
		}
		pairs[strings.TrimSpace(symbol)] = goex.NewCurrencyPair(
			goex.Currency{Symbol: strings.ToUpper(base)},
			goex.Currency{Symbol: strings.ToUpper(quote)},
		)
	}
	return pairs, nil
}

// NewFromConfig builds the simulator described by the FEED_* settings.
func NewFromConfig(cfg *Config) (*Simulator, error) {
	watchlist := model.DefaultWatchlist()
	if strings.TrimSpace(cfg.Watchlist) != "" {
		var err error
		if watchlist, err = model.ParseWatchlist(cfg.Watchlist); err != nil {
			return nil, err
		}
	}

	var opts []Option
	if cfg.Seed != 0 {
		opts = append(opts, WithRandom(NewSeededRandom(cfg.Seed)))
	}

	switch strings.ToLower(cfg.QuoteSource) {
	case "", "none":
	case "binance":
		pairs, err := ParseQuotePairs(cfg.QuotePairs)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithQuoteSource(NewBinanceQuoteSource(pairs)))
	default:
		return nil, fmt.Errorf("unsupported quote source %q", cfg.QuoteSource)
	}

	return NewSimulator(watchlist, opts...), nil
}
