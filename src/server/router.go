package server

import (
	"net/http"

	"neotrade/src/auth"
	"neotrade/src/handler"
	"neotrade/src/stream"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	logger "github.com/sirupsen/logrus"
)

// NewRouter mounts the terminal API on top of the application services.
// Browsers from allowedOrigins may call it cross-origin.
func NewRouter(app *App, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})
	r.Post("/session", handler.SessionHandler(app.Identity))
	r.Get("/ticks", handler.TicksHandler(app.Feed))
	// the socket resolves its own identity so ticks flow before sign-in completes
	r.Handle("/ws", stream.NewHandler(app.Feed, app.Ledger, app.Identity))

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(app.Identity))

		r.Post("/orders", handler.PlaceOrderHandler(app.Placement, app.Feed))
		r.Post("/orders/reverse", handler.ReverseOrderHandler(app.Placement, app.Feed))
		r.Get("/orders", handler.SearchOrdersHandler(app.Orders))
		r.Get("/positions", handler.PositionsHandler(app.Ledger, app.Feed))
		r.Get("/rules/{symbol}", handler.RulesHandler(app.Ledger))
		r.Post("/insights", handler.InsightsHandler(app.Insight))
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
