package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/deskroute/internal/errors"
	"github.com/vango-dev/deskroute/pkg/location"
	"github.com/vango-dev/deskroute/pkg/registry"
	"github.com/vango-dev/deskroute/pkg/route"
	"github.com/vango-dev/deskroute/pkg/router"
)

// Session is one client connection and the router it drives.
type Session struct {
	ID        string
	CreatedAt time.Time

	conn   *websocket.Conn
	config *SessionConfig
	loc    *location.Memory
	router *router.Router

	// Work for the event loop; every router call of the session runs there.
	events chan func()
	send   chan ServerMessage

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool

	unsubscribe func()
	logger      *slog.Logger
}

// newSession creates a session whose location starts at initial.
// conn may be nil in tests that drive the session directly.
func newSession(conn *websocket.Conn, reg *registry.Registry, initial string, config *SessionConfig, mw []router.Middleware, logger *slog.Logger) *Session {
	id := uuid.NewString()
	logger = logger.With("session_id", id)
	ctx, cancel := context.WithCancel(context.Background())

	opts := []router.Option{
		router.WithRegistry(reg),
		router.WithMode(config.Mode),
		router.WithLogger(logger),
		router.WithMiddleware(mw...),
	}
	if config.SettleDelay > 0 {
		opts = append(opts, router.WithSettleDelay(config.SettleDelay))
	}

	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		conn:      conn,
		config:    config,
		loc:       location.NewMemory(initial),
		events:    make(chan func(), config.SendQueue),
		send:      make(chan ServerMessage, config.SendQueue),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		logger:    logger,
	}
	s.router = router.New(s.loc, opts...)
	s.unsubscribe = s.router.OnChange(func(c router.Change) {
		_ = s.Send(changeMessage(c, s.loc.URL()))
	})
	return s
}

// Router returns the session's router.
func (s *Session) Router() *router.Router {
	return s.router
}

// URL returns the session's current location.
func (s *Session) URL() string {
	return s.loc.URL()
}

// Start runs the writer and event loops and routes the initial location.
func (s *Session) Start() {
	go s.WriteLoop()
	go s.EventLoop()
	s.Dispatch(func() {
		s.router.Route(s.ctx)
	})
}

// Dispatch queues fn on the session's event loop. It is dropped when the
// session is closed.
func (s *Session) Dispatch(fn func()) {
	select {
	case s.events <- fn:
	case <-s.done:
	}
}

// EventLoop runs dispatched work one item at a time until the session closes.
func (s *Session) EventLoop() {
	for {
		select {
		case fn := <-s.events:
			fn()
		case <-s.done:
			return
		}
	}
}

// ReadLoop reads client messages until the connection fails or the
// session closes. It blocks.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}
		s.HandleMessage(data)
	}
}

// HandleMessage decodes a client message and dispatches it.
func (s *Session) HandleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(errors.New(errors.CodeMessageInvalid).Wrap(err), "")
		return
	}
	s.Dispatch(func() { s.handle(msg) })
}

func (s *Session) handle(msg ClientMessage) {
	switch msg.Op {
	case OpNavigate:
		s.navigate(msg)
	case OpBack:
		s.loc.Back()
	case OpRename:
		s.rename(msg)
	case OpPrevious:
		_ = s.Send(previousMessage(s.router.PreviousRoute()))
	default:
		s.sendError(errors.New(errors.CodeUnknownOperation).
			WithDetail(fmt.Sprintf("Operation %q is not supported", msg.Op)), msg.ID)
	}
}

func (s *Session) navigate(msg ClientMessage) {
	var opts []router.NavigateOption
	if msg.Replace {
		opts = append(opts, router.WithReplace())
	}
	if o := routeOptions(msg.Options); o != nil {
		opts = append(opts, router.WithRouteOptions(o))
	}

	var done <-chan struct{}
	switch {
	case msg.Route != nil:
		done = s.router.NavigateTo(s.ctx, route.FromParts(msg.Route), opts...)
	case msg.Path != "":
		done = s.router.NavigateToPath(s.ctx, msg.Path, opts...)
	default:
		s.sendError(errors.New(errors.CodeMessageInvalid).
			WithDetail("navigate needs a path or a route"), msg.ID)
		return
	}
	s.settle(msg.ID, done)
}

// rename records a document rename. When the renamed document is open,
// the session moves to the new name and the old sub-path re-routes.
func (s *Session) rename(msg ClientMessage) {
	if msg.DocType == "" || msg.Old == "" || msg.New == "" {
		s.sendError(errors.New(errors.CodeMessageInvalid).
			WithDetail("rename needs doctype, old and new"), msg.ID)
		return
	}

	s.router.RecordRename(msg.DocType, msg.Old, msg.New)

	cur := s.router.CurrentRoute()
	if cur.Kind != route.KindForm || cur.DocType != msg.DocType || cur.DocName != msg.Old {
		s.settle(msg.ID, nil)
		return
	}
	s.settle(msg.ID, s.router.SetReRoute(s.ctx, route.Form(msg.DocType, msg.New)))
}

// settle reports a settled navigation to clients that asked for it.
// A nil done settles immediately.
func (s *Session) settle(id string, done <-chan struct{}) {
	if id == "" {
		return
	}
	if done == nil {
		_ = s.Send(ServerMessage{Op: OpSettled, ID: id})
		return
	}
	go func() {
		select {
		case <-done:
			_ = s.Send(ServerMessage{Op: OpSettled, ID: id})
		case <-s.done:
		}
	}()
}

// SetRegistry installs reg and re-resolves the current location.
func (s *Session) SetRegistry(reg *registry.Registry) {
	s.Dispatch(func() {
		s.router.SetRegistry(reg)
		s.router.Route(s.ctx)
	})
}

func (s *Session) sendError(err *errors.Error, id string) {
	s.logger.Debug("rejected client message", "code", err.Code, "error", err)
	_ = s.Send(errorMessage(err, id))
}

// Send queues msg for the client.
func (s *Session) Send(msg ServerMessage) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	select {
	case s.send <- msg:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// WriteLoop writes queued messages until the session closes.
func (s *Session) WriteLoop() {
	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Error("write error", "error", NewSessionError(s, msg.Op, err))
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// Close stops the session and closes its connection.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}

	s.cancel()
	close(s.done)
	s.unsubscribe()
	s.router.Close()

	if s.conn != nil {
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
	}

	s.logger.Info("session closed",
		"url", s.loc.URL(),
		"navigations", len(s.router.History()),
		"duration", time.Since(s.CreatedAt))
}

// IsClosed returns whether the session is closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done returns a channel that's closed when the session is done.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
