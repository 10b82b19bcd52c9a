// Package httpapi serves the HTTP façade: master-tool discovery, operation
// execution, stats, and health probes. Visibility filtering and rate
// limiting are applied here at the edge; the registry underneath stays
// policy-free.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/filter"
	"webmcpd/internal/infra/registry"
	"webmcpd/internal/infra/telemetry"
)

const (
	// APIPathMasterTools is the root of the tool-facing API.
	APIPathMasterTools = "/mcp/master-tools"
	// APIPathHealthz reports component liveness.
	APIPathHealthz = "/healthz"
	// APIPathReadyz reports whether the server accepts traffic.
	APIPathReadyz = "/readyz"
	// APIPathVersion reports the daemon build identity.
	APIPathVersion = "/version"
)

// Options configures the façade server.
type Options struct {
	ListenAddress string
	ShutdownGrace time.Duration

	// AuthToken guards operations that declare RequiresAuth. Empty means
	// those operations are open.
	AuthToken string

	// Version and Build identify the daemon on /version.
	Version string
	Build   string

	Registry *registry.Registry
	Filter   *filter.Filter

	// Limiter is optional; nil disables rate limiting.
	Limiter *filter.RateLimiter

	// Health is optional; nil makes /healthz report a bare ok.
	Health *telemetry.HealthTracker

	Logger  *zap.Logger
	Metrics domain.Metrics
}

// Server is the HTTP façade in front of the master-tool registry.
type Server struct {
	opts    Options
	logger  *zap.Logger
	metrics domain.Metrics
	router  *mux.Router
	httpSrv *http.Server
	addr    atomic.Value
	ready   atomic.Bool
	done    chan struct{}
}

// NewServer builds the façade with its routes and middleware wired.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewNoopMetrics()
	}
	s := &Server{
		opts:    opts,
		logger:  opts.Logger.Named("httpapi"),
		metrics: opts.Metrics,
		done:    make(chan struct{}),
	}
	s.router = s.buildRouter()
	return s
}

// Middleware order matters: the first Use is the outermost wrapper.
// Recovery sits innermost so the log and metrics layers still observe the
// 500 it writes.
func (s *Server) buildRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(accessLogMiddleware(s.logger))
	router.Use(metricsMiddleware(s.metrics))
	router.Use(recoveryMiddleware(s.logger))

	router.HandleFunc(APIPathHealthz, s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc(APIPathReadyz, s.handleReadyz).Methods(http.MethodGet)
	router.HandleFunc(APIPathVersion, s.handleVersion).Methods(http.MethodGet)

	api := router.PathPrefix(APIPathMasterTools).Subrouter()
	if s.opts.Limiter != nil {
		api.Use(rateLimitMiddleware(s.opts.Limiter, s.logger))
	}
	api.HandleFunc("", s.handleListTools).Methods(http.MethodGet)
	// Static segments before {tool}: mux matches routes in registration
	// order, and "registry" must not be taken for a tool name.
	api.HandleFunc("/registry/stats", s.handleRegistryStats).Methods(http.MethodGet)
	api.HandleFunc("/{tool}", s.handleGetTool).Methods(http.MethodGet)
	api.HandleFunc("/{tool}/stats", s.handleToolStats).Methods(http.MethodGet)
	api.HandleFunc("/{tool}/operations/{operation}", s.handleGetOperation).Methods(http.MethodGet)
	api.HandleFunc("/{tool}/operations/{operation}/execute", s.handleExecute).Methods(http.MethodPost)
	return router
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr reports the bound listen address once Start has succeeded. Useful
// when ListenAddress was ":0".
func (s *Server) Addr() string {
	if v, ok := s.addr.Load().(string); ok {
		return v
	}
	return ""
}

// Start binds the listener and serves in the background. The bind happens
// synchronously so configuration errors surface at startup, not in a log
// line after the fact. Cancelling ctx drains the server: /readyz flips to
// 503 first, then in-flight requests get ShutdownGrace to finish.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.opts.ListenAddress, err)
	}
	s.addr.Store(listener.Addr().String())
	s.httpSrv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.ready.Store(true)
	s.logger.Info("http facade listening", zap.String("address", listener.Addr().String()))

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http facade serve failed", zap.Error(err))
		}
	}()
	go func() {
		defer close(s.done)
		<-ctx.Done()
		s.ready.Store(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownGrace())
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http facade shutdown incomplete", zap.Error(err))
			return
		}
		s.logger.Info("http facade stopped")
	}()
	return nil
}

// Done is closed once the server has finished shutting down.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) shutdownGrace() time.Duration {
	if s.opts.ShutdownGrace > 0 {
		return s.opts.ShutdownGrace
	}
	return domain.DefaultShutdownGraceSeconds * time.Second
}
