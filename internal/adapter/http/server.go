package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
	"github.com/couchcryptid/smart-irrigation-service/internal/farm"
	"github.com/couchcryptid/smart-irrigation-service/internal/observability"
	"github.com/couchcryptid/smart-irrigation-service/internal/pipeline"
)

// Advisor answers recommendation and weather queries.
type Advisor interface {
	Advise(ctx context.Context, req pipeline.Request) (pipeline.Advice, error)
	Weather(ctx context.Context, lat, lon float64) (domain.WeatherReport, bool, error)
}

// Deps are the collaborators behind the API routes.
type Deps struct {
	Advisor        Advisor
	Farms          *farm.Registry
	Rates          domain.CostRates
	Ready          sharedobs.ReadinessChecker
	Metrics        *observability.Metrics
	AllowedOrigins []string
}

// Server exposes the irrigation API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API routes mounted.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		logger: logger,
	}
	s.mountRoutes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      gzhttp.GzipHandler(s.router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// mountRoutes registers middleware then routes. Order matters: the
// recoverer is outermost so panics in any later layer become 500s.
func (s *Server) mountRoutes() {
	s.router.Use(s.recoverer)
	s.router.Use(requestID)
	s.router.Use(s.requestLogger)
	s.router.Use(newCORS(s.deps.AllowedOrigins))

	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", sharedobs.LivenessHandler())
	s.router.Get("/readyz", sharedobs.ReadinessHandler(s.deps.Ready))
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/farms", s.handleListFarms)
		r.Get("/farms/{id}", s.handleGetFarm)
		r.Get("/farms/{id}/ndvi", s.handleFarmNDVI)
		r.Get("/farms/{id}/savings", s.handleFarmSavings)
		r.Get("/weather/{lat}/{lon}", s.handleWeather)
		r.Post("/calculate-irrigation", s.handleCalculate)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "route not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// AlwaysReady is a readiness checker for deployments without a batch pipeline.
type AlwaysReady struct{}

func (AlwaysReady) CheckReadiness(context.Context) error { return nil }
