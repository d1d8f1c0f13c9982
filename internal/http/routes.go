package http

import (
	"context"

	"web_accessibility_analyzer/internal/http/handlers"
	"web_accessibility_analyzer/internal/http/middleware"
	"web_accessibility_analyzer/internal/http/ws"
	"web_accessibility_analyzer/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// RouteDeps carries what the API routes are served from. A nil Limiter
// disables submission rate limiting.
type RouteDeps struct {
	Service *service.AnalysisService
	Hub     *ws.Hub
	Limiter *middleware.SubmitRateLimiter
}

func initRoutes(_ context.Context, r *Router, deps RouteDeps) {
	r.httpRouter.Use(middleware.MetricsMiddleware)
	r.httpRouter.Use(middleware.RequestIDLoggerMiddleware(r.log))
	// the dashboard is served from its own origin
	r.httpRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "x-request-id"},
		ExposedHeaders: []string{"x-request-id"},
		MaxAge:         300,
	}))

	// Routes
	r.httpRouter.Get("/ready", handlers.NewReadyHandler(deps.Service).Handle)

	analysisHandler := handlers.NewAnalysisHandler(deps.Service, r.log)
	r.httpRouter.Route("/api/analyses", func(api chi.Router) {
		if deps.Limiter != nil {
			api.With(deps.Limiter.Middleware).Post("/", analysisHandler.Create)
		} else {
			api.Post("/", analysisHandler.Create)
		}
		api.Get("/", analysisHandler.List)
		api.Get("/stream", deps.Hub.ServeHTTP)
		api.Get("/{id}", analysisHandler.Get)
		api.Delete("/{id}", analysisHandler.Delete)
	})
}
