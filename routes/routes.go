package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/upb/persona-relay/app"
	"github.com/upb/persona-relay/handlers"
	"github.com/upb/persona-relay/middleware"
	"github.com/upb/persona-relay/utils"
)

const (
	minRequestTimeout    = 5 * time.Second
	requestTimeoutMargin = 2 * time.Second
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	if deps.MetricsRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	askHandler := handlers.NewAskHandler(deps.Dispatcher, deps.Logger)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		if deps.AuthMiddleware != nil {
			r.Use(deps.AuthMiddleware.RequireAuth)
		}

		r.Get("/status", handlers.StatusHandler(deps))
		r.Get("/persona", handlers.PersonaHandler(deps))

		// A message may walk every provider; leave room for all of their timeouts
		r.With(chimiddleware.Timeout(requestTimeout(deps))).Post("/ask", askHandler.HandleAsk)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusNotFound, "endpoint not found", nil)
	})

	return r
}

// requestTimeout is the sum of the per-provider timeouts plus a small margin
// for the handler itself
func requestTimeout(deps *app.Dependencies) time.Duration {
	budget := deps.Config.AttemptBudget()
	if budget <= 0 {
		return minRequestTimeout
	}
	return budget + requestTimeoutMargin
}
