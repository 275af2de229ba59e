// ABOUTME: Server orchestrator that wires the store, registry, relay routers and HTTP surface
// ABOUTME: Manages startup, health endpoints and graceful shutdown lifecycle

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/2389/wallboard-relay/internal/auth"
	"github.com/2389/wallboard-relay/internal/config"
	"github.com/2389/wallboard-relay/internal/registry"
	"github.com/2389/wallboard-relay/internal/relay"
	"github.com/2389/wallboard-relay/internal/store"
	"github.com/2389/wallboard-relay/internal/transport"
)

// Server orchestrates the wallboard-relay components: the SQLite store,
// the connection registry, the relay routers, the websocket transport and
// the REST API, all behind one HTTP listener.
type Server struct {
	config     *config.Config
	store      store.Store
	registry   *registry.Registry
	presence   *relay.Presence
	status     *relay.StatusRouter
	messages   *relay.MessageRouter
	verifier   *auth.JWTVerifier
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates the store from config and environment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("WALLBOARD_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New creates a fully wired Server from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	st, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   cfg,
		store:    st,
		registry: registry.New(logger),
		verifier: auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL),
		logger:   logger.With("component", "server"),
	}
	s.presence = relay.NewPresence(s.registry, logger)
	s.status = relay.NewStatusRouter(s.registry, st, logger)
	s.messages = relay.NewMessageRouter(s.registry, st, logger)

	wsHandler := transport.NewHandler(transport.Options{
		Registry:        s.registry,
		Presence:        s.presence,
		Status:          s.status,
		Messages:        s.messages,
		Verifier:        s.verifier,
		Store:           st,
		AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
		MaxMessageBytes: cfg.WebSocket.MaxMessageBytes,
		Logger:          logger,
	})

	s.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           s.routes(wsHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// routes assembles the HTTP mux: health, websocket entry and the REST API.
func (s *Server) routes(wsHandler http.Handler) http.Handler {
	requireAuth := auth.HTTPAuthMiddleware(s.verifier)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)
	mux.Handle("GET /ws", wsHandler)

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.Handle("POST /api/auth/logout", requireAuth(http.HandlerFunc(s.handleLogout)))

	mux.Handle("GET /api/agents/team/{teamID}", requireAuth(http.HandlerFunc(s.handleTeamAgents)))
	mux.Handle("PUT /api/agents/{code}/status", requireAuth(http.HandlerFunc(s.handleUpdateStatus)))
	mux.Handle("GET /api/agents/{code}/history", requireAuth(http.HandlerFunc(s.handleStatusHistory)))

	mux.Handle("POST /api/messages/send", requireAuth(http.HandlerFunc(s.handleSendMessage)))
	mux.Handle("GET /api/messages/agent/{code}", requireAuth(http.HandlerFunc(s.handleAgentMessages)))
	mux.Handle("PUT /api/messages/{id}/read", requireAuth(http.HandlerFunc(s.handleMarkRead)))

	return mux
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	s.logger.Info("http server listening", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case serverErr = <-errCh:
		s.logger.Error("server failed", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the database is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unreachable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d clients connected)", s.registry.Len())
}
