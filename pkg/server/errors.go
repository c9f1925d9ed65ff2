package server

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned by Send and Dispatch after Close.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrMaxSessionsReached is returned by SessionManager.Create when
	// ServerConfig.MaxSessions router sessions are already open.
	ErrMaxSessionsReached = errors.New("server: router session limit reached")
)

// SessionError records which router session and message op failed.
type SessionError struct {
	SessionID string
	Op        string
	URL       string
	Err       error
}

func (e *SessionError) Error() string {
	msg := fmt.Sprintf("server: session %s", e.SessionID)
	if e.Op != "" {
		msg += " op " + e.Op
	}
	if e.URL != "" {
		msg += " at " + e.URL
	}
	return msg + ": " + e.Err.Error()
}

func (e *SessionError) Unwrap() error { return e.Err }

// NewSessionError wraps err with the session's id and current URL.
func NewSessionError(s *Session, op string, err error) *SessionError {
	return &SessionError{SessionID: s.ID, Op: op, URL: s.URL(), Err: err}
}
