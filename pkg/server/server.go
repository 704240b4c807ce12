// Package server hosts a coffeeshop agent over HTTP: the A2A JSON-RPC
// endpoint, the well-known agent card, health and Prometheus metrics, with
// optional bearer auth in front of the protocol endpoint.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thangchung/coffeeshop-agent/pkg/auth"
)

// Paths that stay reachable without a bearer token.
var authExcludedPaths = []string{a2asrv.WellKnownAgentCardPath, "/health", "/metrics"}

// Server hosts a single agent executor.
type Server struct {
	card     *a2a.AgentCard
	executor a2asrv.AgentExecutor

	taskStore   a2asrv.TaskStore
	validator   auth.TokenValidator
	requireAuth bool
	logger      *slog.Logger

	extraHandlers map[string]http.Handler
	httpServer    *http.Server
}

type Option func(*Server)

// WithTaskStore persists tasks instead of the SDK's in-memory store.
func WithTaskStore(store a2asrv.TaskStore) Option {
	return func(s *Server) { s.taskStore = store }
}

// WithAuth validates bearer tokens on the protocol endpoint and bridges the
// claims into the executor's call context.
func WithAuth(validator auth.TokenValidator, requireAuth bool) Option {
	return func(s *Server) {
		s.validator = validator
		s.requireAuth = requireAuth
	}
}

// WithHandler mounts an extra handler, e.g. the catalog MCP endpoint.
func WithHandler(path string, h http.Handler) Option {
	return func(s *Server) { s.extraHandlers[path] = h }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func New(card *a2a.AgentCard, executor a2asrv.AgentExecutor, opts ...Option) *Server {
	s := &Server{
		card:          card,
		executor:      executor,
		logger:        slog.Default(),
		extraHandlers: make(map[string]http.Handler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler assembles the chi router.
func (s *Server) Handler() http.Handler {
	var handlerOpts []a2asrv.RequestHandlerOption
	if s.taskStore != nil {
		handlerOpts = append(handlerOpts, a2asrv.WithTaskStore(s.taskStore))
	}
	if s.validator != nil {
		handlerOpts = append(handlerOpts, a2asrv.WithCallInterceptor(auth.NewInterceptor(s.requireAuth)))
	}
	jsonRPC := a2asrv.NewJSONRPCHandler(a2asrv.NewHandler(s.executor, handlerOpts...))
	cardHandler := a2asrv.NewStaticAgentCardHandler(s.card)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	if s.validator != nil {
		r.Use(auth.MiddlewareWithExclusions(s.validator, authExcludedPaths))
		s.logger.Info("bearer authentication enabled", "excluded_paths", authExcludedPaths)
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get(a2asrv.WellKnownAgentCardPath, cardHandler.ServeHTTP)
	r.Post("/", jsonRPC.ServeHTTP)

	for path, h := range s.extraHandlers {
		r.Handle(path, h)
	}

	return r
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("HTTP server starting", "address", addr, "agent", s.card.Name)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops the server, waiting up to five seconds for in-flight work.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.logger.Info("HTTP server shutting down", "agent", s.card.Name)
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
