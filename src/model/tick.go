package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InstrumentClass string

const (
	InstrumentClassIndex InstrumentClass = "INDEX"
	InstrumentClassMCX   InstrumentClass = "MCX"
)

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// Instrument is one entry of the watchlist.
type Instrument struct {
	Symbol    string          `json:"symbol"`
	Class     InstrumentClass `json:"type"`
	OpenPrice decimal.Decimal `json:"open_price"`
}

// Tick is one synthetic price update for one instrument.
type Tick struct {
	Symbol   string          `json:"symbol"`
	Class    InstrumentClass `json:"type"`
	Price    decimal.Decimal `json:"price"`
	Delta    decimal.Decimal `json:"delta"`
	Change   decimal.Decimal `json:"change"`
	Pct      decimal.Decimal `json:"pct"`
	Trend    Trend           `json:"trend"`
	Sequence uint64          `json:"seq"`
	At       time.Time       `json:"at"`
}

// DefaultWatchlist mirrors the terminal's initial instruments.
func DefaultWatchlist() []Instrument {
	return []Instrument{
		{Symbol: "NIFTY 50 (Index)", Class: InstrumentClassIndex, OpenPrice: decimal.RequireFromString("22453.20")},
		{Symbol: "BANK NIFTY (Index)", Class: InstrumentClassIndex, OpenPrice: decimal.RequireFromString("47285.10")},
		{Symbol: "GOLD (MCX)", Class: InstrumentClassMCX, OpenPrice: decimal.RequireFromString("62450.00")},
		{Symbol: "CRUDEOIL (MCX)", Class: InstrumentClassMCX, OpenPrice: decimal.RequireFromString("6450.00")},
	}
}

// ParseWatchlist reads "SYMBOL:CLASS:PRICE" entries separated by ';'.
// Symbols may contain spaces and parentheses but not ':' or ';'.
func ParseWatchlist(raw string) ([]Instrument, error) {
	var out []Instrument
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid watchlist entry %q", entry)
		}
		class := InstrumentClass(strings.ToUpper(strings.TrimSpace(parts[1])))
		if class != InstrumentClassIndex && class != InstrumentClassMCX {
			return nil, fmt.Errorf("invalid instrument class %q", parts[1])
		}
		price, err := decimal.NewFromString(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("invalid price for %q: %w", parts[0], err)
		}
		out = append(out, Instrument{
			Symbol:    strings.TrimSpace(parts[0]),
			Class:     class,
			OpenPrice: price,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("watchlist is empty")
	}
	return out, nil
}
