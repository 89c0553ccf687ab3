package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"neotrade/src/database"
	"neotrade/src/feed"
	"neotrade/src/identity"
	"neotrade/src/insight"
	"neotrade/src/ledger"

	logger "github.com/sirupsen/logrus"
)

// StartServer serves handler on port until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, port string, handler http.Handler) error {
	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server crashed")
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}

// Run starts the price feed and the HTTP server and blocks until ctx is done.
func Run(ctx context.Context, cfg *Config, app *App, feedInterval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		if err := app.Feed.Run(ctx, feedInterval); err != nil {
			logger.WithError(err).Error("price feed stopped with error")
		}
	}()

	err := StartServer(ctx, cfg.Port, NewRouter(app, cfg.AllowedOrigins))
	cancel()
	<-feedDone
	return err
}

// Serve wires the application from the environment and runs it until ctx is done.
func Serve(ctx context.Context) error {
	cfg := GetConfig()

	if err := database.InitMainDB(); err != nil {
		return err
	}

	feedCfg := feed.GetConfig()
	app, err := NewApp(Options{
		AppID:    cfg.AppID,
		DB:       database.MainDB,
		Identity: identity.GetConfig(),
		Feed:     feedCfg,
		Ledger:   ledger.GetConfig(),
		Insight:  insight.GetConfig(),
	})
	if err != nil {
		return err
	}
	defer app.Close()

	return Run(ctx, cfg, app, feedCfg.Interval)
}
