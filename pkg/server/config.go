package server

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/vango-dev/deskroute/pkg/location"
	"github.com/vango-dev/deskroute/pkg/router"
)

// SessionConfig holds configuration for individual sessions.
type SessionConfig struct {
	// ReadTimeout is the maximum time to wait for a message from the client.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// MaxMessageSize is the maximum size of an incoming message.
	// Default: 16KB.
	MaxMessageSize int64

	// SendQueue is the size of the outgoing message buffer.
	// Default: 64.
	SendQueue int

	// Mode is the URL mode of session routers.
	// Default: location.ModePath.
	Mode location.Mode

	// SettleDelay overrides router.DefaultSettleDelay when positive.
	SettleDelay time.Duration

	// InitialPath is the location a session starts at when the client
	// does not pass ?path=. Default: "/app".
	InitialPath string
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 16 * 1024,
		SendQueue:      64,
		Mode:           location.ModePath,
		InitialPath:    "/app",
	}
}

// Clone returns a copy of the SessionConfig.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ServerConfig holds configuration for the HTTP/WebSocket server.
type ServerConfig struct {
	// Address is the address to listen on (e.g., ":8000" or "localhost:8000").
	// Default: "localhost:8000".
	Address string

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// SessionConfig is the configuration for individual sessions.
	// Default: DefaultSessionConfig().
	SessionConfig *SessionConfig

	// MaxSessions is the maximum number of concurrent sessions.
	// 0 means no limit.
	MaxSessions int

	// Middleware wraps every routing turn of every session router.
	Middleware []router.Middleware

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 10 seconds.
	ReadHeaderTimeout time.Duration
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           "localhost:8000",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       SameOriginCheck,
		SessionConfig:     DefaultSessionConfig(),
		ShutdownTimeout:   30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// withDefaults fills unset fields from DefaultServerConfig.
func (c *ServerConfig) withDefaults() *ServerConfig {
	defaults := DefaultServerConfig()
	if c == nil {
		return defaults
	}
	out := *c
	if out.Address == "" {
		out.Address = defaults.Address
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = defaults.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = defaults.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = defaults.CheckOrigin
	}
	if out.SessionConfig == nil {
		out.SessionConfig = defaults.SessionConfig
	} else {
		sc := out.SessionConfig.Clone()
		d := defaults.SessionConfig
		if sc.ReadTimeout == 0 {
			sc.ReadTimeout = d.ReadTimeout
		}
		if sc.WriteTimeout == 0 {
			sc.WriteTimeout = d.WriteTimeout
		}
		if sc.MaxMessageSize == 0 {
			sc.MaxMessageSize = d.MaxMessageSize
		}
		if sc.SendQueue == 0 {
			sc.SendQueue = d.SendQueue
		}
		if sc.InitialPath == "" {
			sc.InitialPath = d.InitialPath
		}
		out.SessionConfig = sc
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	return &out
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host matches the Host header.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// WithAddress returns a copy of c listening on addr.
func (c *ServerConfig) WithAddress(addr string) *ServerConfig {
	out := *c
	out.Address = addr
	return &out
}

// ValidateConfig reports configuration that cannot work.
func (c *ServerConfig) ValidateConfig() error {
	if c.MaxSessions < 0 {
		return errors.New("server: MaxSessions must not be negative")
	}
	if c.SessionConfig != nil && c.SessionConfig.MaxMessageSize < 0 {
		return errors.New("server: MaxMessageSize must not be negative")
	}
	return nil
}
