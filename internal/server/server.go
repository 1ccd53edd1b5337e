// Package server exposes the lifecycle engine over HTTP. Actor identity comes
// from request headers; an optional static bearer token gates all routes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"loom/internal/config"
	"loom/internal/engine"
	"loom/internal/export"
	"loom/internal/identity"
	"loom/internal/logging"
	"loom/internal/review"
)

// Server owns the HTTP listener and routes requests into the engine.
type Server struct {
	bind   string
	token  string
	logger *slog.Logger

	engine *engine.Engine
	flow   *review.Flow
	gate   *export.Gate

	listener net.Listener
	server   *http.Server
}

// New wires the API surface around an engine. The bind address and bearer
// token come from configuration; an empty token disables authentication.
func New(cfg *config.Config, eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logging.WithComponent(logger, "api-server"),
		engine: eng,
		flow:   review.NewFlow(eng),
		gate:   export.NewGate(eng.Store()),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", srv.auth(srv.handleHealth))
	mux.HandleFunc("/api/packets", srv.auth(srv.handlePackets))
	mux.HandleFunc("/api/packets/", srv.auth(srv.handlePacket))
	mux.HandleFunc("/api/units", srv.auth(srv.handleUnits))
	mux.HandleFunc("/api/units/", srv.auth(srv.handleUnitAction))
	mux.HandleFunc("/api/review/queue", srv.auth(srv.handleReviewQueue))
	mux.HandleFunc("/api/export", srv.auth(srv.handleExport))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start begins serving on the configured bind address. The server shuts down
// when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// auth validates the static bearer token when one is configured.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	if s.token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") != s.token {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// actorFromRequest reads the caller's identity headers. The API trusts the
// fronting proxy to have authenticated the actor; it only authorizes.
func actorFromRequest(r *http.Request) (identity.Actor, error) {
	id := strings.TrimSpace(r.Header.Get("X-Actor-Id"))
	roleRaw := strings.TrimSpace(r.Header.Get("X-Actor-Role"))
	if id == "" || roleRaw == "" {
		return identity.Actor{}, errors.New("missing actor headers")
	}
	role, ok := identity.ParseRole(roleRaw)
	if !ok {
		return identity.Actor{}, fmt.Errorf("unknown role %q", roleRaw)
	}
	return identity.Actor{ID: id, Role: role}, nil
}

func (s *Server) requireActor(w http.ResponseWriter, r *http.Request) (identity.Actor, bool) {
	actor, err := actorFromRequest(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return identity.Actor{}, false
	}
	return actor, true
}

// statusForError maps the engine's error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrIllegalTransition), errors.Is(err, engine.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("error", err.Error()))
		s.writeError(w, status, "internal error")
		return
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
