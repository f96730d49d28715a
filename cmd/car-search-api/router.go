// Package main provides the API router setup.
package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Thomaz-Klifson/car-search/cmd/car-search-api/handlers"
	"github.com/Thomaz-Klifson/car-search/cmd/car-search-api/middleware"
	"github.com/Thomaz-Klifson/car-search/internal/api/rpc"
	"github.com/Thomaz-Klifson/car-search/internal/app"
	"github.com/Thomaz-Klifson/car-search/internal/observability"
)

const defaultRequestTimeout = 15 * time.Second

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, a *app.App) http.Handler {
	cfg := a.Config

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.TurnID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	requestTimeout := cfg.Server.ReadTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	healthHandler := handlers.NewHealthHandler(logger, cfg.Observability.ServiceName, a.Catalog, a.Driver != nil)
	chatHandler := handlers.NewChatHandler(logger, a)
	searchHandler := handlers.NewSearchHandler(logger, a.Catalog, a.Executor, a.Orchestrator, a.Presenter)

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Chat turns are bounded by the driver's own turn timeout.
	r.Post("/api/chat", chatHandler.Chat)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", chatHandler.Chat)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))

			r.Route("/cars", func(r chi.Router) {
				r.Post("/search", searchHandler.Search)
				r.Post("/similar", searchHandler.Similar)
				r.Post("/advise", searchHandler.Advise)
				r.Get("/locations", searchHandler.Locations)
			})

			r.Route("/query", func(r chi.Router) {
				r.Post("/parse", searchHandler.ParseQuery)
				r.Post("/fallback", searchHandler.Fallback)
			})
		})
	})

	// Connect RPC
	svc := rpc.NewSearchService(logger, a.Executor, a.Catalog, a.Orchestrator, a.Presenter)
	path, rpcHandler := rpc.NewSearchServiceHandler(svc)
	r.Mount(strings.TrimSuffix(path, "/"), rpcHandler)

	return r
}
