package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ironsheep/edge-map-service/internal/config"
	"github.com/ironsheep/edge-map-service/internal/pipeline"
)

// Server serves the edge-map API.
type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	log      *zap.Logger
	metrics  *Metrics

	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
}

// New wires routes and middleware. metrics should be the same instance the
// pipeline was given as its observer; nil creates a private one.
func New(cfg *config.Config, p *pipeline.Pipeline, log *zap.Logger, metrics *Metrics) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}

	s := &Server{
		cfg:      cfg,
		pipeline: p,
		log:      log,
		metrics:  metrics,
		router:   mux.NewRouter(),
	}
	s.routes()
	s.handler = s.withRequestContext(s.router)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.instrument)

	r.HandleFunc("/api/edges", s.handleEdges).Methods(http.MethodPost)
	r.HandleFunc("/api/hello", s.handleHello).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	// mux skips Use middleware for these, so they are instrumented directly
	r.NotFoundHandler = s.instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendErrorResponse(w, r, "not_found", fmt.Sprintf("No route for %s", r.URL.Path), http.StatusNotFound)
	}))
	r.MethodNotAllowedHandler = s.instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendErrorResponse(w, r, "method_not_allowed", fmt.Sprintf("Method %s not allowed", r.Method), http.StatusMethodNotAllowed)
	}))
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is done, then drains
// in-flight requests for up to ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server",
			zap.String("addr", s.httpServer.Addr),
			zap.String("backend", s.pipeline.Backend()))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down", zap.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
