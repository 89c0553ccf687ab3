// Package feed simulates the live price feed of the watchlist.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"neotrade/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const subscriberBuffer = 4

var (
	hundred    = decimal.NewFromInt(100)
	half       = decimal.RequireFromString("0.5")
	amplitudes = map[model.InstrumentClass]decimal.Decimal{
		model.InstrumentClassIndex: decimal.NewFromInt(10),
		model.InstrumentClassMCX:   decimal.NewFromInt(2),
	}
)

// Amplitude is the full width of the per-tick move for a class; each delta
// lies within +/- Amplitude/2.
func Amplitude(class model.InstrumentClass) decimal.Decimal {
	if a, ok := amplitudes[class]; ok {
		return a
	}
	return amplitudes[model.InstrumentClassMCX]
}

type Simulator struct {
	rnd    Random
	now    func() time.Time
	quotes QuoteSource
	log    *logger.Entry

	mu          sync.Mutex
	instruments []model.Instrument
	ticks       []model.Tick
	seq         uint64
	subs        map[uint64]chan []model.Tick
	nextSub     uint64
}

type Option func(*Simulator)

func WithRandom(r Random) Option {
	return func(s *Simulator) { s.rnd = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulator) { s.now = now }
}

// WithQuoteSource refreshes opening prices from a real market source when Run starts.
func WithQuoteSource(q QuoteSource) Option {
	return func(s *Simulator) { s.quotes = q }
}

func NewSimulator(watchlist []model.Instrument, opts ...Option) *Simulator {
	s := &Simulator{
		rnd:  NewRandom(),
		now:  time.Now,
		log:  logger.WithField("component", "feed"),
		subs: make(map[uint64]chan []model.Tick),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.instruments = append([]model.Instrument(nil), watchlist...)
	s.reset()
	return s
}

// reset puts every instrument back at its opening price. Callers hold mu or
// own s exclusively.
func (s *Simulator) reset() {
	at := s.now()
	s.ticks = make([]model.Tick, len(s.instruments))
	for i, inst := range s.instruments {
		s.ticks[i] = model.Tick{
			Symbol:   inst.Symbol,
			Class:    inst.Class,
			Price:    inst.OpenPrice,
			Delta:    decimal.Zero,
			Change:   decimal.Zero,
			Pct:      decimal.Zero,
			Trend:    model.TrendUp,
			Sequence: s.seq,
			At:       at,
		}
	}
}

// Step moves every instrument once and publishes the batch.
func (s *Simulator) Step() []model.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	at := s.now()
	for i := range s.ticks {
		prev := s.ticks[i]
		delta := decimal.NewFromFloat(s.rnd.Float64()).Sub(half).Mul(Amplitude(prev.Class)).Round(2)
		change := prev.Change.Add(delta)

		trend := model.TrendDown
		if delta.IsPositive() {
			trend = model.TrendUp
		}

		pct := decimal.Zero
		if !prev.Price.IsZero() {
			pct = change.Div(prev.Price).Mul(hundred).Round(2)
		}

		s.ticks[i] = model.Tick{
			Symbol:   prev.Symbol,
			Class:    prev.Class,
			Price:    prev.Price.Add(delta),
			Delta:    delta,
			Change:   change,
			Pct:      pct,
			Trend:    trend,
			Sequence: s.seq,
			At:       at,
		}
	}

	batch := s.copyTicks()
	for id, ch := range s.subs {
		select {
		case ch <- batch:
		default:
			s.log.WithField("subscriber", id).Debug("subscriber is behind, dropping tick batch")
		}
	}
	return batch
}

// Run steps the feed every interval until ctx is cancelled. time.Ticker drops
// ticks for a slow receiver, so batches are never duplicated or reordered.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) error {
	if s.quotes != nil {
		if err := s.RefreshQuotes(ctx); err != nil {
			s.log.WithError(err).Warn("quote refresh failed, keeping configured prices")
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.WithFields(logger.Fields{
		"interval":    interval.String(),
		"instruments": len(s.instruments),
	}).Info("price feed started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("price feed stopped")
			return nil
		case <-ticker.C:
			s.Step()
		}
	}
}

// RefreshQuotes restarts the session from the latest market prices of the
// instruments the quote source knows.
func (s *Simulator) RefreshQuotes(ctx context.Context) error {
	if s.quotes == nil {
		return nil
	}

	s.mu.Lock()
	symbols := make([]string, len(s.instruments))
	for i, inst := range s.instruments {
		symbols[i] = inst.Symbol
	}
	s.mu.Unlock()

	prices := make(map[string]decimal.Decimal)
	for _, symbol := range symbols {
		price, err := s.quotes.Quote(ctx, symbol)
		if errors.Is(err, ErrNoQuote) {
			continue
		}
		if err != nil {
			return err
		}
		prices[symbol] = price
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.instruments {
		if price, ok := prices[s.instruments[i].Symbol]; ok {
			s.instruments[i].OpenPrice = price
		}
	}
	s.reset()

	s.log.WithField("quoted", len(prices)).Info("opening prices refreshed")
	return nil
}

// Subscribe registers for tick batches. Batches are dropped, not queued, when
// the receiver falls behind. cancel must be called to release the channel.
func (s *Simulator) Subscribe() (<-chan []model.Tick, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan []model.Tick, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers is the number of live subscriptions.
func (s *Simulator) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Price returns the current price of symbol.
func (s *Simulator) Price(symbol string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.ticks {
		if t.Symbol == symbol {
			return t.Price, true
		}
	}
	return decimal.Zero, false
}

// Prices maps every symbol to its current price.
func (s *Simulator) Prices() map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(s.ticks))
	for _, t := range s.ticks {
		out[t.Symbol] = t.Price
	}
	return out
}

// Snapshot returns the latest tick of every instrument in watchlist order.
func (s *Simulator) Snapshot() []model.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyTicks()
}

func (s *Simulator) copyTicks() []model.Tick {
	return append([]model.Tick(nil), s.ticks...)
}
