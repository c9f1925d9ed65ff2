package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	deskerrors "github.com/vango-dev/deskroute/internal/errors"
	"github.com/vango-dev/deskroute/pkg/middleware"
	"github.com/vango-dev/deskroute/pkg/registry"
)

// Server is the HTTP/WebSocket server hosting desk sessions.
type Server struct {
	sessions *SessionManager
	config   *ServerConfig
	registry atomic.Pointer[registry.Registry]

	upgrader websocket.Upgrader
	handler  http.Handler

	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server. A nil config means DefaultServerConfig(); unset
// fields of a non-nil config take their defaults.
func New(config *ServerConfig, logger *slog.Logger) *Server {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	if err := config.ValidateConfig(); err != nil {
		logger.Error("config validation failed", "error", err)
	}

	s := &Server{
		sessions: NewSessionManager(config.SessionConfig, config.Middleware, config.MaxSessions, logger),
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
	}
	s.registry.Store(registry.Empty())
	s.sessions.SetOnSessionCreate(func(*Session) { middleware.RecordSessionOpen() })
	s.sessions.SetOnSessionClose(func(*Session) { middleware.RecordSessionClose() })
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/resolve", s.handleResolve)
		r.Get("/routes", s.handleRoutes)
		r.Get("/sessions", s.handleSessions)
	})
	r.Get("/ws", s.HandleWebSocket)
	if s.config.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.config.MetricsHandler)
	}
	return r
}

// SetRegistry installs reg for new sessions and re-resolves every live
// session against it.
func (s *Server) SetRegistry(reg *registry.Registry) {
	if reg == nil {
		reg = registry.Empty()
	}
	s.registry.Store(reg)

	n := 0
	s.sessions.ForEach(func(sess *Session) bool {
		sess.SetRegistry(reg)
		n++
		return true
	})
	s.logger.Info("registry updated", "slugs", reg.Len(), "sessions", n)
}

// Registry returns the current registry.
func (s *Server) Registry() *registry.Registry {
	return s.registry.Load()
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// HandleWebSocket upgrades the connection and runs a session on it until
// the client disconnects. The session starts at ?path= when given.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.sessions.Full() {
		http.Error(w, ErrMaxSessionsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(s.config.SessionConfig.MaxMessageSize)

	initial := r.URL.Query().Get("path")
	if initial == "" {
		initial = s.config.SessionConfig.InitialPath
	}

	session, err := s.sessions.Create(conn, s.Registry(), initial)
	if err != nil {
		s.logger.Warn("session rejected", "error", err)
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second),
		)
		conn.Close()
		return
	}

	session.Start()
	session.ReadLoop()
	s.sessions.Close(session.ID)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		err := deskerrors.New(deskerrors.CodeArgumentsRequired).
			WithDetail("The path query parameter is required").
			WithExample("/api/resolve?path=/app/todo")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(err.FormatJSON()))
		return
	}
	writeJSON(w, http.StatusOK, Resolve(s.Registry(), s.config.SessionConfig.Mode, path, s.logger))
}

func (s *Server) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	slugs := s.Registry().Slugs()
	if slugs == nil {
		slugs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"slugs": slugs})
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("response write failed", "error", err)
	}
}

// Run listens on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.config.ValidateConfig(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes all sessions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.sessions.Shutdown(ctx); err != nil {
		s.logger.Warn("session shutdown incomplete", "error", err)
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
