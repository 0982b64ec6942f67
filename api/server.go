// Package api exposes the chat service over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oceanward/reefguide/internal/chat"
	"github.com/oceanward/reefguide/internal/log"
	"github.com/oceanward/reefguide/internal/session"
)

const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 120 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Pinger verifies a dependency is reachable, used by readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionReader serves the session inspection endpoints.
type SessionReader interface {
	Get(ctx context.Context, id string) (*session.Data, error)
	Expire(ctx context.Context, id uuid.UUID) error
	UpdateProfile(ctx context.Context, id uuid.UUID, update session.DiverProfile) error
}

// Server wires HTTP routes to the chat orchestrator and session store.
type Server struct {
	orchestrator *chat.Orchestrator
	sessions     SessionReader
	db           Pinger
	logger       log.Logger
	production   bool
}

// NewServer creates an API server. production controls whether error
// details are withheld from responses.
func NewServer(orchestrator *chat.Orchestrator, sessions SessionReader, db Pinger, logger log.Logger, production bool) *Server {
	return &Server{
		orchestrator: orchestrator,
		sessions:     sessions,
		db:           db,
		logger:       logger,
		production:   production,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleExpireSession)
	mux.HandleFunc("PATCH /api/sessions/{id}/profile", s.handleUpdateProfile)

	return chain(mux,
		s.recoveryMiddleware,
		s.loggingMiddleware,
	)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
