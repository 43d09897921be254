// Package api exposes the topology engine over HTTP and a websocket event
// stream.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-topology/pkg/api/middleware"
	"github.com/dd0wney/cluso-topology/pkg/engine"
	"github.com/dd0wney/cluso-topology/pkg/events"
	"github.com/dd0wney/cluso-topology/pkg/health"
	"github.com/dd0wney/cluso-topology/pkg/logging"
	"github.com/dd0wney/cluso-topology/pkg/metrics"
)

// DefaultMetricsInterval is how often system gauges are refreshed.
const DefaultMetricsInterval = 10 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics enables HTTP metrics and the /metrics endpoint.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Server) { s.metricsRegistry = m }
}

// WithHealth serves /health, /health/ready and /health/live.
func WithHealth(hc *health.HealthChecker) Option {
	return func(s *Server) { s.healthChecker = hc }
}

// WithEvents serves the /ws change stream from bus.
func WithEvents(bus *events.Bus) Option {
	return func(s *Server) { s.bus = bus }
}

// WithCORS sets the cross-origin policy. It also decides which origins
// may open the websocket stream.
func WithCORS(cfg *middleware.CORSConfig) Option {
	return func(s *Server) { s.corsConfig = cfg }
}

// WithVersion sets the version reported by /api/version.
func WithVersion(version, commit string) Option {
	return func(s *Server) {
		s.version = version
		s.commit = commit
	}
}

// Server represents the HTTP API server
type Server struct {
	engine          *engine.Engine
	bus             *events.Bus
	healthChecker   *health.HealthChecker
	metricsRegistry *metrics.Registry
	corsConfig      *middleware.CORSConfig
	logger          logging.Logger
	router          chi.Router
	startTime       time.Time
	version         string
	commit          string
}

// NewServer creates a server answering for eng.
func NewServer(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:     eng,
		corsConfig: middleware.DefaultCORSConfig(),
		startTime:  time.Now(),
		version:    "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("api"))
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.PanicRecovery(s.logger))
	if s.metricsRegistry != nil {
		r.Use(middleware.Metrics(s.metricsRegistry))
	}
	r.Use(middleware.CORS(s.corsConfig))

	if s.healthChecker != nil {
		for path, h := range map[string]http.HandlerFunc{
			"/health":       s.healthChecker.HTTPHandler(),
			"/health/ready": s.healthChecker.ReadinessHandler(),
			"/health/live":  s.healthChecker.LivenessHandler(),
		} {
			r.Get(path, h)
			r.Head(path, h)
		}
	}
	if s.metricsRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metricsRegistry.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	}
	if s.bus != nil {
		r.Get("/ws", s.handleStream)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.BodySizeLimit(middleware.DefaultMaxBodyBytes))

		r.Get("/version", s.handleVersion)
		r.Get("/topology", s.handleTopology)
		r.Post("/topology/new", s.handleNewTopology)
		r.Get("/graph", s.handleGraph)

		r.Post("/networks", withRequest(s, s.createNetwork))
		r.Post("/hosts", withRequest(s, s.createHost))
		r.Post("/links", withRequest(s, s.createLink))
		r.Delete("/elements/{id}", s.handleRemoveElement)

		r.Route("/iotool", func(r chi.Router) {
			r.Post("/load", withRequest(s, s.loadTopology))
			r.Post("/store", withRequest(s, s.storeTopology))
			r.Post("/drop", withRequest(s, s.dropTopology))
			r.Get("/status", s.handleIOToolStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

// RunMetricsLoop refreshes the system gauges until ctx is done.
func (s *Server) RunMetricsLoop(ctx context.Context, interval time.Duration) error {
	if s.metricsRegistry == nil {
		<-ctx.Done()
		return nil
	}
	if interval <= 0 {
		interval = DefaultMetricsInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.metricsRegistry.UpdateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.metricsRegistry.UpdateSystemMetrics()
		}
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, VersionResponse{Version: s.version, Commit: s.commit})
}
