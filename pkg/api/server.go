// Package api exposes the routing daemon over HTTP: link and rule
// management, topology inspection, status, history, metrics, health and a
// websocket event stream.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/audiolink/audiolinkd/pkg/events"
	"github.com/audiolink/audiolinkd/pkg/graphql"
	"github.com/audiolink/audiolinkd/pkg/health"
	"github.com/audiolink/audiolinkd/pkg/history"
	"github.com/audiolink/audiolinkd/pkg/linker"
	"github.com/audiolink/audiolinkd/pkg/logging"
	"github.com/audiolink/audiolinkd/pkg/metrics"
	"github.com/audiolink/audiolinkd/pkg/rules"
	"github.com/audiolink/audiolinkd/pkg/scheduler"
	"github.com/audiolink/audiolinkd/pkg/status"
	"github.com/audiolink/audiolinkd/pkg/topology"
)

const defaultBodyLimit = 1 << 20 // 1 MiB

// Server is the HTTP API server.
type Server struct {
	logger   logging.Logger
	provider topology.Provider
	cache    *topology.SnapshotCache
	store    *rules.Store
	tracker  *status.Tracker
	engine   *linker.Engine
	sched    *scheduler.Scheduler
	checker  *health.HealthChecker
	metrics  *metrics.Registry
	bus      *events.Bus
	history  *history.Store

	graphqlHandler *graphql.GraphQLHandler
	wsHandler      *events.WSHandler

	auth      AuthConfig
	bodyLimit int64
	startTime time.Time
	version   string
	port      int
}

// Options wires the server's collaborators. Provider, Store, Tracker and
// Engine are required; everything else is optional and the corresponding
// endpoints degrade gracefully when absent.
type Options struct {
	Logger    logging.Logger
	Provider  topology.Provider
	Cache     *topology.SnapshotCache
	Rules     *rules.Store
	Tracker   *status.Tracker
	Engine    *linker.Engine
	Scheduler *scheduler.Scheduler
	Health    *health.HealthChecker
	Metrics   *metrics.Registry
	Bus       *events.Bus
	History   *history.Store
	Auth      AuthConfig
	BodyLimit int64
	Version   string
	Port      int
}

// NewServer creates an API server over the given collaborators.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.DefaultRegistry()
	}
	if opts.Health == nil {
		opts.Health = health.NewHealthChecker()
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = defaultBodyLimit
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		logger:    opts.Logger,
		provider:  opts.Provider,
		cache:     opts.Cache,
		store:     opts.Rules,
		tracker:   opts.Tracker,
		engine:    opts.Engine,
		sched:     opts.Scheduler,
		checker:   opts.Health,
		metrics:   opts.Metrics,
		bus:       opts.Bus,
		history:   opts.History,
		auth:      opts.Auth,
		bodyLimit: opts.BodyLimit,
		startTime: time.Now(),
		version:   opts.Version,
		port:      opts.Port,
	}

	schema, err := graphql.GenerateSchema(graphql.Backend{
		Snapshot: s.snapshot,
		Rules:    opts.Rules,
		Status:   opts.Tracker,
	})
	if err != nil {
		s.logger.Warn("failed to generate GraphQL schema", logging.Error(err))
	} else {
		s.graphqlHandler = graphql.NewGraphQLHandler(schema)
	}

	if opts.Bus != nil {
		s.wsHandler = events.NewWSHandler(opts.Bus, s.logger)
	}

	return s
}

// snapshot returns the current topology view, through the cache when one is
// configured.
func (s *Server) snapshot() (*topology.Snapshot, error) {
	if s.cache != nil {
		return s.cache.Get()
	}
	return s.provider.Snapshot()
}

// Routes builds the request mux with every endpoint registered.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health and metrics
	mux.HandleFunc("/health", s.checker.HTTPHandler())
	mux.HandleFunc("/ready", s.checker.ReadinessHandler())
	mux.HandleFunc("/live", s.checker.LivenessHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))

	// GraphQL endpoint
	mux.HandleFunc("/graphql", s.handleGraphQL)

	// Link endpoints
	mux.HandleFunc("/api/v1/links", s.handleLinks)
	mux.HandleFunc("/api/v1/links/apply", s.requireAuth(s.handleApplyRule))
	mux.HandleFunc("/api/v1/links/batch", s.requireAuth(s.handleBatchRules))
	mux.HandleFunc("/api/v1/links/default", s.handleDefaultRules)
	mux.HandleFunc("/api/v1/links/apply-defaults", s.requireAuth(s.handleApplyDefaults))
	mux.HandleFunc("/api/v1/links/status", s.handleLinksStatus)

	// Rule endpoints
	mux.HandleFunc("/api/v1/rules", s.handleRules)

	// Topology endpoints
	mux.HandleFunc("/api/v1/nodes", s.handleNodes)
	mux.HandleFunc("/api/v1/ports", s.handlePorts)
	mux.HandleFunc("/api/v1/graph.dot", s.handleGraphDOT)

	// Run history
	mux.HandleFunc("/api/v1/history", s.handleHistory)

	// Websocket event stream
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	return mux
}

// Handler returns the mux wrapped in the full middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.Routes()
	h = s.bodySizeLimitMiddleware(h, s.bodyLimit)
	h = s.corsMiddleware(h)
	h = s.metricsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.requestIDMiddleware(h)
	h = s.panicRecoveryMiddleware(h)
	return h
}

// Start runs the HTTP server until it fails. Used standalone; the daemon
// wraps Handler in a graceful server instead.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting",
		logging.String("addr", addr),
		logging.String("version", s.version))

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if s.graphqlHandler == nil {
		s.respondError(w, http.StatusServiceUnavailable, "GraphQL endpoint not available")
		return
	}
	s.graphqlHandler.ServeHTTP(w, r)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.wsHandler == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Event stream not available")
		return
	}
	s.wsHandler.ServeHTTP(w, r)
}

// Helper methods

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

// decodeJSON decodes the request body into v, answering 400 itself on
// failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
