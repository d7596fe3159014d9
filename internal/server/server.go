// Package server wires the HTTP surface: route registration, cross-cutting
// middleware (CORS, security headers, rate limiting) and the JSON
// request/response contracts around the prediction pipeline.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/belens/belens-api/internal/config"
	"github.com/belens/belens-api/internal/metrics"
	"github.com/belens/belens-api/internal/pipeline"
)

// Pipeline is the orchestrator capability the handlers drive.
type Pipeline interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, *pipeline.StageError)
}

// IdentityResolver resolves the history endpoint's caller.
type IdentityResolver = pipeline.IdentityResolver

// HistoryStore reads back a principal's persisted predictions.
type HistoryStore interface {
	History(ctx context.Context, uid string) ([]map[string]any, error)
}

// Server owns the router and its dependencies.
type Server struct {
	cfg      *config.Config
	log      zerolog.Logger
	pipeline Pipeline
	resolver IdentityResolver
	history  HistoryStore
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	router   chi.Router
	now      func() time.Time
}

func New(cfg *config.Config, log zerolog.Logger, pl Pipeline, resolver IdentityResolver, history HistoryStore, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		pipeline: pl,
		resolver: resolver,
		history:  history,
		metrics:  m,
		gatherer: gatherer,
		now:      time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(requestLogger(s.log))
	if s.metrics != nil {
		r.Use(countRequests(s.metrics))
	}

	r.Get("/", s.handleHealth)

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Admission control sits in front of the pipeline: fixed per-IP quotas
	// per window, checked before any pipeline work starts.
	r.Group(func(api chi.Router) {
		api.Use(httprate.LimitByIP(s.cfg.RateLimit.PerDay, 24*time.Hour))
		api.Use(httprate.LimitByIP(s.cfg.RateLimit.PerHour, time.Hour))
		api.Post("/predict", s.handlePredict)
		api.Get("/history", s.handleHistory)
	})

	return r
}
