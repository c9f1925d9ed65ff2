package server

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/deskroute/pkg/registry"
	"github.com/vango-dev/deskroute/pkg/router"
)

// SessionManager manages all active sessions.
// It handles session creation, lookup and lifecycle callbacks.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	config      *SessionConfig
	middleware  []router.Middleware
	maxSessions int

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peakSessions int

	onSessionCreate func(*Session)
	onSessionClose  func(*Session)

	logger *slog.Logger
}

// NewSessionManager creates a session manager. maxSessions of 0 means
// no limit.
func NewSessionManager(config *SessionConfig, mw []router.Middleware, maxSessions int, logger *slog.Logger) *SessionManager {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		config:      config,
		middleware:  mw,
		maxSessions: maxSessions,
		logger:      logger,
	}
}

// Create creates a session for conn whose router starts at initial with reg.
func (sm *SessionManager) Create(conn *websocket.Conn, reg *registry.Registry, initial string) (*Session, error) {
	sm.mu.Lock()
	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		sm.mu.Unlock()
		return nil, ErrMaxSessionsReached
	}

	session := newSession(conn, reg, initial, sm.config, sm.middleware, sm.logger)
	sm.sessions[session.ID] = session
	sm.totalCreated.Add(1)
	if len(sm.sessions) > sm.peakSessions {
		sm.peakSessions = len(sm.sessions)
	}
	active := len(sm.sessions)
	sm.mu.Unlock()

	if sm.onSessionCreate != nil {
		sm.onSessionCreate(session)
	}
	sm.logger.Info("session created",
		"session_id", session.ID,
		"url", initial,
		"active_sessions", active)

	return session, nil
}

// Full reports whether the session limit is reached.
func (sm *SessionManager) Full() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions
}

// Get retrieves a session by ID.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Close closes a session by ID and removes it from the manager.
func (sm *SessionManager) Close(id string) {
	sm.mu.Lock()
	session, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()

	if !ok {
		return
	}
	session.Close()
	sm.totalClosed.Add(1)
	if sm.onSessionClose != nil {
		sm.onSessionClose(session)
	}
	sm.logger.Info("session removed",
		"session_id", id,
		"active_sessions", sm.Count())
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ForEach calls fn for every session until it returns false.
// fn runs without the manager lock held.
func (sm *SessionManager) ForEach(fn func(*Session) bool) {
	sm.mu.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.RUnlock()

	for _, s := range sessions {
		if !fn(s) {
			break
		}
	}
}

// Shutdown closes all sessions concurrently, or gives up when ctx is done.
func (sm *SessionManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.sessions = make(map[string]*Session)
	sm.mu.Unlock()

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
			sm.totalClosed.Add(1)
			if sm.onSessionClose != nil {
				sm.onSessionClose(s)
			}
		}(session)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-ctx.Done():
		return ctx.Err()
	}

	sm.logger.Info("session manager shutdown", "closed_sessions", len(sessions))
	return nil
}

// Stats returns aggregated session statistics.
func (sm *SessionManager) Stats() ManagerStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return ManagerStats{
		Active:       len(sm.sessions),
		TotalCreated: sm.totalCreated.Load(),
		TotalClosed:  sm.totalClosed.Load(),
		Peak:         sm.peakSessions,
	}
}

// ManagerStats contains aggregated session manager statistics.
type ManagerStats struct {
	Active       int    `json:"active"`
	TotalCreated uint64 `json:"totalCreated"`
	TotalClosed  uint64 `json:"totalClosed"`
	Peak         int    `json:"peak"`
}

// SetOnSessionCreate sets the callback for session creation.
func (sm *SessionManager) SetOnSessionCreate(fn func(*Session)) {
	sm.onSessionCreate = fn
}

// SetOnSessionClose sets the callback for session close.
func (sm *SessionManager) SetOnSessionClose(fn func(*Session)) {
	sm.onSessionClose = fn
}
