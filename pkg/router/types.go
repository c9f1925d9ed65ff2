package router

import (
	"context"
	"net/url"
	"time"

	"github.com/vango-dev/deskroute/pkg/route"
)

// View is what the rendering collaborator receives for a navigation.
type View struct {
	// Route is the resolved route.
	Route route.Route

	// SubPath is the decoded URL sub-path the route was resolved from.
	SubPath string

	// Layout is the doctype layout selected by the slug, if any.
	Layout string

	// Options are the route options of this navigation.
	Options url.Values
}

// Renderer shows the view for a resolved route.
type Renderer interface {
	Render(ctx context.Context, v View)
}

// RendererFunc is a function adapter for Renderer.
type RendererFunc func(ctx context.Context, v View)

// Render implements Renderer.
func (f RendererFunc) Render(ctx context.Context, v View) {
	f(ctx, v)
}

// Titler is implemented by renderers that can set the document title.
// The router uses it to restore the title saved for a sub-path.
type Titler interface {
	SetTitle(title string)
}

// Change is passed to listeners after every navigation.
type Change struct {
	Route    route.Route
	Previous route.Route
	SubPath  string
	Layout   string
	Options  url.Values
}

// Listener is notified after a navigation has been rendered.
type Listener func(Change)

// Navigation describes one routing turn as it passes through middleware.
type Navigation struct {
	ctx context.Context

	// SubPath is the decoded sub-path read from the location.
	SubPath string

	// Route is the resolved route. It is set once the chain reaches the
	// router and stays zero for re-routed navigations.
	Route route.Route

	// Layout is the doctype layout of the resolved route.
	Layout string

	// Rerouted is set when the sub-path was redirected by the re-route
	// table instead of being resolved.
	Rerouted bool

	// Started is when the turn began.
	Started time.Time
}

// Context returns the navigation's context.
func (n *Navigation) Context() context.Context {
	if n.ctx == nil {
		return context.Background()
	}
	return n.ctx
}

// SetContext replaces the context handed to the renderer, e.g. to carry a
// trace span.
func (n *Navigation) SetContext(ctx context.Context) {
	n.ctx = ctx
}

// Middleware wraps a routing turn.
type Middleware interface {
	// Handle processes the navigation and optionally calls next.
	// Returning without calling next skips resolution and rendering.
	Handle(nav *Navigation, next func() error) error
}

// MiddlewareFunc is a function adapter for Middleware.
type MiddlewareFunc func(nav *Navigation, next func() error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(nav *Navigation, next func() error) error {
	return f(nav, next)
}

// Link describes a clicked anchor for FollowLink.
type Link struct {
	// Href is the raw href attribute.
	Href string

	// SameHost reports whether the link points at the current host.
	SameHost bool

	// HasHandler is set when the anchor has its own click handler.
	HasHandler bool

	// NewTab is set when a modifier key asks for a new tab.
	NewTab bool
}
