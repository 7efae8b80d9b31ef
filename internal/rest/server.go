// Package rest implements YarDB's HTTP/OData resource layer (§4.4): content
// negotiation, conditional requests, the OData envelope, and the chi router
// wiring every URL shape in §4.4.1 onto the concurrency-guarded engine.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"yardb/internal/concurrency"
)

// Config holds the server's network configuration.
type Config struct {
	Port int
}

// Server owns the HTTP listener and the API's chi router.
type Server struct {
	config Config
	guard  *concurrency.Guard
	logger *zap.Logger
	router *chi.Mux
	server *http.Server
}

// NewServer builds a Server bound to the given concurrency-guarded engine.
func NewServer(config Config, guard *concurrency.Guard, logger *zap.Logger) *Server {
	s := &Server{config: config, guard: guard, logger: logger}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	a := &api{guard: s.guard}

	r := chi.NewRouter()
	r.Use(func(h http.Handler) http.Handler { return RecoveryMiddleware(s.logger, h) })
	r.Use(func(h http.Handler) http.Handler { return LoggingMiddleware(s.logger, h) })
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	}))

	r.NotFound(a.handleNotFound)
	r.MethodNotAllowed(a.handleMethodNotAllowed)

	r.Get("/", a.handleListCollections)
	r.Head("/", a.handleListCollections)
	r.Get("/_reindex", a.handleReindex)
	r.Post("/_reindex", a.handleReindex)

	r.Route("/_db/{collection}", func(r chi.Router) {
		r.Get("/", a.handleDBConfigGet)
		r.Put("/", a.handleDBConfigPut)
		r.Patch("/", a.handleDBConfigPatch)
	})

	r.Route("/{collection}", func(r chi.Router) {
		r.Get("/", a.handleCollectionGet)
		r.Head("/", a.handleCollectionGet)
		r.Post("/", a.handleCollectionPost)
		r.Delete("/", a.handleCollectionDelete)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.handleDocGet)
			r.Head("/", a.handleDocGet)
			r.Put("/", a.handleDocPut)
			r.Patch("/", a.handleDocPatch)
			r.Delete("/", a.handleDocDelete)
		})
	})

	return r
}

// Start serves HTTP until an interrupt or SIGTERM, then drains in-flight
// requests and closes the engine before returning.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.Int("port", s.config.Port))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-stop:
		s.logger.Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", zap.Error(err))
		return err
	}

	if err := s.guard.Close(); err != nil {
		s.logger.Error("engine close error", zap.Error(err))
		return err
	}

	s.logger.Info("stopped")
	return nil
}

// Handler exposes the router directly, for tests that serve it from their
// own listener (e.g. httptest.NewServer) instead of Start.
func (s *Server) Handler() http.Handler {
	return s.router
}
