package server

import (
	"fmt"

	"neotrade/src/feed"
	"neotrade/src/identity"
	"neotrade/src/insight"
	"neotrade/src/ledger"
	"neotrade/src/placement"
	"neotrade/src/repository"

	"gorm.io/gorm"
)

// App holds the wired application services.
type App struct {
	Identity  *identity.Provider
	Feed      *feed.Simulator
	Ledger    *ledger.Ledger
	Placement *placement.Service
	Orders    *repository.OrderRepository
	Insight   *insight.Service

	closers []func()
}

type Options struct {
	AppID    string
	DB       *gorm.DB
	Identity *identity.Config
	Feed     *feed.Config
	Ledger   *ledger.Config
	Insight  *insight.Config
}

func NewApp(opts Options) (*App, error) {
	sim, err := feed.NewFromConfig(opts.Feed)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}

	notifier, closeNotifier, err := ledger.NewNotifier(opts.Ledger)
	if err != nil {
		return nil, fmt.Errorf("ledger notifier: %w", err)
	}

	provider := identity.NewProvider(opts.AppID, repository.NewUserRepositoryWithDB(opts.DB))
	if opts.Identity != nil {
		if opts.Identity.BcryptCost > 0 {
			provider = provider.WithCost(opts.Identity.BcryptCost)
		}
		provider = provider.WithCacheTTL(opts.Identity.CacheTTL)
	}

	orders := (&repository.OrderRepository{}).WithDB(opts.DB)
	l := ledger.New(orders, notifier)

	return &App{
		Identity:  provider,
		Feed:      sim,
		Ledger:    l,
		Placement: placement.NewService(l),
		Orders:    orders,
		Insight: insight.NewService(
			insight.NewClient(opts.Insight),
			repository.NewExceptionRepositoryWithDB(opts.DB),
		),
		closers: []func(){closeNotifier},
	}, nil
}

func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}
