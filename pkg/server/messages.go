package server

import (
	"net/url"

	"github.com/vango-dev/deskroute/internal/errors"
	"github.com/vango-dev/deskroute/pkg/route"
	"github.com/vango-dev/deskroute/pkg/router"
)

// Client operations.
const (
	OpNavigate = "navigate"
	OpBack     = "back"
	OpRename   = "rename"
	OpPrevious = "previous"
)

// Server operations.
const (
	OpChange  = "change"
	OpSettled = "settled"
	OpError   = "error"
)

// ClientMessage is a message sent by a session client.
type ClientMessage struct {
	Op string `json:"op"`

	// ID, when set, is echoed in the settled message.
	ID string `json:"id,omitempty"`

	// Navigate: either a path or a route's canonical parts.
	Path    string            `json:"path,omitempty"`
	Route   []string          `json:"route,omitempty"`
	Replace bool              `json:"replace,omitempty"`
	Options map[string]string `json:"options,omitempty"`

	// Rename.
	DocType string `json:"doctype,omitempty"`
	Old     string `json:"old,omitempty"`
	New     string `json:"new,omitempty"`
}

// ServerMessage is a message sent to a session client.
type ServerMessage struct {
	Op string `json:"op"`
	ID string `json:"id,omitempty"`

	Route    *route.Route `json:"route,omitempty"`
	Previous *route.Route `json:"previous,omitempty"`
	Kind     string       `json:"kind,omitempty"`
	SubPath  string       `json:"subPath,omitempty"`
	Layout   string       `json:"layout,omitempty"`
	Options  url.Values   `json:"options,omitempty"`
	URL      string       `json:"url,omitempty"`

	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func changeMessage(c router.Change, u string) ServerMessage {
	rt, prev := c.Route, c.Previous
	return ServerMessage{
		Op:       OpChange,
		Route:    &rt,
		Previous: &prev,
		Kind:     rt.Kind.String(),
		SubPath:  c.SubPath,
		Layout:   c.Layout,
		Options:  c.Options,
		URL:      u,
	}
}

func previousMessage(rt route.Route) ServerMessage {
	return ServerMessage{Op: OpPrevious, Route: &rt, Kind: rt.Kind.String()}
}

func errorMessage(err *errors.Error, id string) ServerMessage {
	return ServerMessage{
		Op:      OpError,
		ID:      id,
		Code:    err.Code,
		Message: err.Message,
		Detail:  err.Detail,
	}
}

// routeOptions converts message options to URL values.
func routeOptions(opts map[string]string) url.Values {
	if len(opts) == 0 {
		return nil
	}
	values := make(url.Values, len(opts))
	for k, v := range opts {
		values.Set(k, v)
	}
	return values
}
