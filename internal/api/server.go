// Package api provides the HTTP API server of the cluster monitor.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/narvanalabs/solr-monitor/internal/api/handlers"
	"github.com/narvanalabs/solr-monitor/internal/api/health"
	"github.com/narvanalabs/solr-monitor/internal/api/middleware"
	"github.com/narvanalabs/solr-monitor/internal/cluster"
	"github.com/narvanalabs/solr-monitor/internal/stream"
	"github.com/narvanalabs/solr-monitor/pkg/config"
)

// Version is the current version of the API server.
// This should be set at build time using ldflags.
var Version = "dev"

// requestTimeout bounds every non-streaming request. It is above the longest
// configured probe chain so probes time out before the request does.
const requestTimeout = 60 * time.Second

// Server represents the HTTP API server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	service       *cluster.Service
	broker        *stream.Broker
	poller        *stream.Poller
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new API server with the given dependencies.
func NewServer(cfg *config.Config, svc *cluster.Service, topo health.TopologyReporter, broker *stream.Broker, poller *stream.Poller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		service:       svc,
		broker:        broker,
		poller:        poller,
		config:        cfg,
		logger:        logger,
		healthChecker: health.NewChecker(topo, Version),
	}

	s.setupRouter()
	// Shutdown may run before Start.
	s.httpServer = &http.Server{
		Addr:        cfg.Addr(),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	clusterHandler := handlers.NewClusterHandler(s.service, s.logger)
	datacenterHandler := handlers.NewDatacenterHandler(s.service, s.logger)
	passthroughHandler := handlers.NewPassthroughHandler(s.service, s.logger)
	streamHandler := handlers.NewStreamHandler(s.broker, s.poller, s.logger)

	// Long-lived streams are not subject to the request timeout.
	r.Get("/cluster/stream", streamHandler.SSE)
	r.Get("/cluster/ws", streamHandler.WebSocket)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))

		r.Get("/health", s.healthChecker.Handler())

		r.Route("/cluster", func(r chi.Router) {
			r.Get("/nodes", clusterHandler.ListNodes)
			r.Get("/nodes/{nodeID}", clusterHandler.GetNode)
			r.Get("/zookeeper", clusterHandler.Zookeeper)
			r.Get("/zookeeper/{datacenter}/details", clusterHandler.ZookeeperDetails)
		})

		r.Route("/datacenters", func(r chi.Router) {
			r.Get("/", datacenterHandler.List)
			r.Get("/summary", datacenterHandler.Summary)
			r.Get("/{datacenter}", datacenterHandler.Get)
		})

		r.Get("/system/info", passthroughHandler.SystemInfo)
		r.Get("/admin/cores", passthroughHandler.Cores)

		r.Get("/security/{resource}", passthroughHandler.Security)
		r.Post("/security/{resource}", passthroughHandler.Security)
	})

	s.router = r
}

// Start starts the HTTP server and blocks until ctx is done or the server fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server. Open snapshot streams are
// ended first so they do not hold the shutdown open.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	if s.broker != nil {
		s.broker.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
