// Package server exposes the task operations over HTTP with gin.
//
// Import rules:
//   - CAN import: internal/tracker, internal/domain, internal/errors, internal/constants
//   - MUST NOT import: internal/cli
package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mrz1836/taskclock/internal/constants"
	"github.com/mrz1836/taskclock/internal/tracker"
)

// Server is the taskclock HTTP server.
type Server struct {
	svc    *tracker.Service
	router *gin.Engine
	http   *http.Server
	logger zerolog.Logger
}

// New creates a Server for svc listening on addr.
func New(svc *tracker.Service, addr string, logger zerolog.Logger) *Server {
	if addr == "" {
		addr = constants.DefaultServerAddress
	}

	router := gin.New()
	s := &Server{
		svc:    svc,
		router: router,
		logger: logger.With().Str("component", "server").Logger(),
	}

	router.Use(requestID(), accessLog(s.logger), recovery(s.logger))

	router.GET("/", s.handleIndex)
	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleIndex)
	}

	router.POST("/toggle-task/:id", s.handleToggle)
	router.POST("/add-task", s.handleAdd)
	router.DELETE("/delete-task/:id", s.handleDelete)
	router.PUT("/rename-task/:id", s.handleRename)
	router.PUT("/update-duration/:id", s.handleUpdateDuration)
	router.PUT("/update-timing/:id", s.handleUpdateTiming)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// ListenAndServe serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
