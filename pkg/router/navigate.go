package router

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/deskroute/pkg/location"
	"github.com/vango-dev/deskroute/pkg/registry"
	"github.com/vango-dev/deskroute/pkg/route"
	"github.com/vango-dev/deskroute/pkg/routepath"
)

// NavigateOptions configures navigation behavior.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing.
	Replace bool

	// RouteOptions are handed to the destination view.
	RouteOptions url.Values
}

// NavigateOption is a functional option for NavigateTo.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// WithRouteOptions passes options to the destination view.
func WithRouteOptions(opts url.Values) NavigateOption {
	return func(o *NavigateOptions) {
		o.RouteOptions = opts
	}
}

// NavigateTo navigates to a structured route. See NavigateToPath.
func (r *Router) NavigateTo(ctx context.Context, rt route.Route, opts ...NavigateOption) <-chan struct{} {
	return r.navigate(ctx, r.slugSegments(rt), opts)
}

// NavigateToPath navigates to a slash-joined path such as "todo/TODO-0001"
// or "/app/todo/view/report". Segments are decoded, a leading "app" or
// "desk" is dropped, and each segment is re-encoded into the URL.
//
// The URL is pushed (or replaced) and, if it changed, the routing turn
// runs before NavigateToPath returns. The returned channel closes after
// the settle delay once all Track-ed work has finished, or when ctx is
// done. Navigation itself cannot be cancelled.
func (r *Router) NavigateToPath(ctx context.Context, path string, opts ...NavigateOption) <-chan struct{} {
	return r.navigate(ctx, pathSegments(path), opts)
}

func (r *Router) navigate(ctx context.Context, segments []string, opts []NavigateOption) <-chan struct{} {
	var options NavigateOptions
	for _, opt := range opts {
		opt(&options)
	}

	target := r.makeURL(segments)
	changed := r.currentURL() != target

	r.mu.Lock()
	if options.RouteOptions != nil {
		if changed {
			r.queued = cloneOptions(options.RouteOptions)
		} else {
			r.options = cloneOptions(options.RouteOptions)
		}
	}
	r.mu.Unlock()

	if changed {
		if options.Replace {
			r.loc.Replace(target)
		} else {
			r.loc.Push(target)
		}
		r.Route(ctx)
	}

	return r.settled(ctx)
}

// settled returns a channel closed after the settle delay and once no
// tracked work is pending.
func (r *Router) settled(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		timer := time.NewTimer(r.settle)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
		r.pending.wait(ctx)
	}()
	return done
}

// Track registers post-navigation work, such as a data fetch started by
// the new view. Navigation signals wait for it; call the returned
// function when the work is done.
func (r *Router) Track() (done func()) {
	return r.pending.add()
}

// URLFor returns the URL that resolves to rt.
func (r *Router) URLFor(rt route.Route) string {
	return r.makeURL(r.slugSegments(rt))
}

// currentURL returns the part of the location this router writes.
func (r *Router) currentURL() string {
	if r.mode == location.ModeHash {
		return r.loc.Hash()
	}
	return r.loc.Pathname()
}

// makeURL encodes segments into a path or hash URL.
func (r *Router) makeURL(segments []string) string {
	encoded := routepath.EncodeSegments(segments)
	if r.mode == location.ModeHash {
		return "#" + encoded
	}
	if encoded == "" {
		return "/" + routepath.AppPrefix
	}
	return "/" + routepath.AppPrefix + "/" + encoded
}

// slugSegments converts a structured route to its URL segments.
func (r *Router) slugSegments(rt route.Route) []string {
	switch rt.Kind {
	case route.KindHome:
		return nil
	case route.KindWorkspace:
		return []string{registry.Slug(rt.Workspace)}
	case route.KindList:
		if rt.View == "" || strings.EqualFold(rt.View, route.HeadList) {
			return []string{registry.Slug(rt.DocType)}
		}
		segments := []string{registry.Slug(rt.DocType), viewToken, strings.ToLower(rt.View)}
		return append(segments, rt.Extra...)
	case route.KindForm:
		segments := []string{registry.Slug(rt.DocType)}
		if rt.DocName != "" && !(rt.DocName == rt.DocType && r.Registry().IsSingle(rt.DocType)) {
			segments = append(segments, rt.DocName)
		}
		return segments
	case route.KindTree:
		return []string{registry.Slug(rt.DocType), viewToken, "tree"}
	case route.KindPage:
		return rt.Segments
	default:
		return rt.Parts()
	}
}

// pathSegments splits a navigation path into decoded segments without
// the desk prefix.
func pathSegments(path string) []string {
	segments := []string{path}
	if strings.Contains(path, "/") {
		segments = routepath.DecodeSegments(strings.Split(path, "/"))
	}
	if len(segments) > 0 && segments[0] == "" {
		segments = segments[1:]
	}
	if len(segments) > 0 && (segments[0] == routepath.AppPrefix || segments[0] == "desk") {
		segments = segments[1:]
	}
	return segments
}

// SetReRoute navigates like NavigateTo and records that the sub-path being
// left now redirects to the new one. Use it after a document rename so
// that going back does not land on the stale name.
func (r *Router) SetReRoute(ctx context.Context, rt route.Route, opts ...NavigateOption) <-chan struct{} {
	from := r.CurrentSubPath()
	done := r.NavigateTo(ctx, rt, opts...)

	r.mu.Lock()
	if to := r.currentSub; to != from {
		r.reRoutes[from] = to
	}
	r.mu.Unlock()
	return done
}

// tracker counts in-flight post-navigation work.
type tracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func newTracker() *tracker {
	t := &tracker{idle: make(chan struct{})}
	close(t.idle)
	return t
}

func (t *tracker) add() func() {
	t.mu.Lock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.n--
			if t.n == 0 {
				close(t.idle)
			}
		})
	}
}

func (t *tracker) wait(ctx context.Context) {
	t.mu.Lock()
	idle := t.idle
	t.mu.Unlock()
	select {
	case <-idle:
	case <-ctx.Done():
	}
}
