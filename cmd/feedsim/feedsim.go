// Package feedsim runs the price feed on its own and logs every tick.
package feedsim

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"neotrade/src/feed"
	"neotrade/src/model"

	"github.com/sirupsen/logrus"
)

type FeedSim struct {
	Log *logrus.Entry
}

func (f *FeedSim) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	return f.Run(ctx, feed.GetConfig(), GetConfig())
}

func (f *FeedSim) Run(ctx context.Context, feedCfg *feed.Config, cfg *Config) error {
	sim, err := feed.NewFromConfig(feedCfg)
	if err != nil {
		f.Log.WithError(err).Error("Failed to build price feed")
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticks, unsubscribe := sim.Subscribe()
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx, feedCfg.Interval) }()

	batches := 0
	for {
		select {
		case err := <-done:
			return err
		case batch := <-ticks:
			f.logBatch(batch)
			batches++
			if cfg.MaxBatches > 0 && batches >= cfg.MaxBatches {
				cancel()
				return <-done
			}
		}
	}
}

func (f *FeedSim) logBatch(batch []model.Tick) {
	for _, t := range batch {
		f.Log.WithFields(logrus.Fields{
			"seq":    t.Sequence,
			"symbol": t.Symbol,
			"price":  t.Price.StringFixed(2),
			"change": t.Change.StringFixed(2),
			"pct":    t.Pct.StringFixed(2),
			"trend":  t.Trend,
		}).Info("tick")
	}
}
