package router

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/deskroute/pkg/breadcrumbs"
	"github.com/vango-dev/deskroute/pkg/location"
	"github.com/vango-dev/deskroute/pkg/registry"
	"github.com/vango-dev/deskroute/pkg/route"
	"github.com/vango-dev/deskroute/pkg/routepath"
)

// DefaultSettleDelay is how long NavigateTo waits before its channel may
// close, so that work started by the new view can register with Track.
const DefaultSettleDelay = 100 * time.Millisecond

// viewToken introduces a list sub-view in a doctype URL.
const viewToken = "view"

// Router resolves desk URLs and drives rendering for one session.
type Router struct {
	loc        location.Location
	mode       location.Mode
	renderer   Renderer
	logger     *slog.Logger
	settle     time.Duration
	middleware []Middleware
	crumbs     *breadcrumbs.Store
	pending    *tracker
	unsubPop   func()

	mu           sync.Mutex
	reg          *registry.Registry
	current      route.Route
	currentSub   string
	layout       string
	history      []route.Route
	options      url.Values
	queued       url.Values
	reRoutes     map[string]string
	titles       map[string]string
	listeners    map[int]Listener
	nextListener int
}

// Option configures a Router.
type Option func(*Router)

// WithMode selects path or hash URLs.
func WithMode(mode location.Mode) Option {
	return func(r *Router) {
		r.mode = mode
	}
}

// WithRenderer sets the rendering collaborator.
func WithRenderer(renderer Renderer) Option {
	return func(r *Router) {
		r.renderer = renderer
	}
}

// WithLogger sets the logger. Nil means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Router) {
		r.settle = d
	}
}

// WithMiddleware appends middleware around every routing turn.
func WithMiddleware(mw ...Middleware) Option {
	return func(r *Router) {
		r.middleware = append(r.middleware, mw...)
	}
}

// WithBreadcrumbs shares a breadcrumb store with the router.
func WithBreadcrumbs(store *breadcrumbs.Store) Option {
	return func(r *Router) {
		r.crumbs = store
	}
}

// WithRegistry installs a prebuilt registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(r *Router) {
		r.reg = reg
	}
}

// New creates a router reading and writing loc. If loc reports
// back/forward navigation (as location.Memory does), the router
// re-routes on every pop until Close is called.
func New(loc location.Location, opts ...Option) *Router {
	r := &Router{
		loc:       loc,
		settle:    DefaultSettleDelay,
		pending:   newTracker(),
		reg:       registry.Empty(),
		reRoutes:  make(map[string]string),
		titles:    make(map[string]string),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.renderer == nil {
		r.renderer = RendererFunc(func(context.Context, View) {})
	}
	if r.crumbs == nil {
		r.crumbs = breadcrumbs.NewStore()
	}
	if r.reg == nil {
		r.reg = registry.Empty()
	}

	if p, ok := loc.(interface{ OnPop(func()) func() }); ok {
		r.unsubPop = p.OnPop(func() {
			r.Route(context.Background())
		})
	}
	return r
}

// Close detaches the router from its location's pop notifications.
func (r *Router) Close() {
	if r.unsubPop != nil {
		r.unsubPop()
		r.unsubPop = nil
	}
}

// Setup builds the slug registry from the doctypes the user may read and
// the doctype layouts, replacing any previous registry.
func (r *Router) Setup(allowed []string, layouts []registry.Layout, opts ...registry.Option) {
	r.SetRegistry(registry.Build(allowed, layouts, opts...))
}

// SetRegistry installs reg.
func (r *Router) SetRegistry(reg *registry.Registry) {
	if reg == nil {
		reg = registry.Empty()
	}
	r.mu.Lock()
	r.reg = reg
	r.mu.Unlock()
}

// Registry returns the installed registry.
func (r *Router) Registry() *registry.Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reg
}

// Mode returns the URL mode.
func (r *Router) Mode() location.Mode {
	return r.mode
}

// Breadcrumbs returns the router's breadcrumb store.
func (r *Router) Breadcrumbs() *breadcrumbs.Store {
	return r.crumbs
}

// resolution is the outcome of parsing a sub-path.
type resolution struct {
	route   route.Route
	layout  string
	options url.Values
}

// rawPath returns the prefixed path or hash the router reads.
// In path mode a bare /app with a fragment is a legacy hash route.
func (r *Router) rawPath() string {
	hash := r.loc.Hash()
	if r.mode == location.ModeHash {
		return hash
	}
	path := r.loc.Pathname()
	if hash != "" && routepath.IsAppRoute(path) && routepath.StripPrefix(path) == "" {
		return hash
	}
	return path
}

// locationQuery returns the options carried by the URL's query string,
// when the location exposes one.
func (r *Router) locationQuery() url.Values {
	if r.mode == location.ModeHash {
		return nil
	}
	s, ok := r.loc.(interface{ Search() string })
	if !ok {
		return nil
	}
	search := strings.TrimPrefix(s.Search(), "?")
	if search == "" {
		return nil
	}
	return routepath.ParseQueryParams(search)
}

// locationSubPath returns the decoded sub-path of the location.
func (r *Router) locationSubPath() string {
	return routepath.DecodePath(routepath.StripPrefix(r.rawPath()))
}

// parse resolves a raw (possibly prefixed, still encoded) path against reg.
func (r *Router) parse(reg *registry.Registry, raw string) resolution {
	segments := routepath.SplitSegments(routepath.StripPrefix(raw))
	for i, seg := range segments {
		decoded, err := routepath.Decode(seg)
		if err != nil {
			r.logger.Debug("keeping undecodable route segment", "segment", seg, "error", err)
			continue
		}
		segments[i] = decoded
	}

	var res resolution
	if n := len(segments); n > 0 {
		if rest, query, ok := routepath.ExtractQuery(segments[n-1]); ok {
			segments[n-1] = rest
			res.options = routepath.ParseQueryParams(query)
		}
	}

	res.route, res.layout = expand(reg, segments)
	return res
}

// expand maps decoded segments to a structured route.
func expand(reg *registry.Registry, segments []string) (route.Route, string) {
	if len(segments) == 0 || (len(segments) == 1 && segments[0] == "") {
		return route.Home(), ""
	}

	if name, ok := reg.Workspace(segments[0]); ok {
		return route.Workspace(name), ""
	}
	if entry, ok := reg.Lookup(segments[0]); ok {
		return doctypeRoute(reg, entry.DocType, segments[1:]), entry.Layout
	}
	return route.FromParts(segments), ""
}

// doctypeRoute expands the segments following a doctype slug.
func doctypeRoute(reg *registry.Registry, doctype string, rest []string) route.Route {
	if len(rest) == 0 || rest[0] == "" {
		if reg.IsSingle(doctype) {
			return route.Form(doctype, doctype)
		}
		return route.List(doctype, route.HeadList)
	}

	if rest[0] == viewToken && len(rest) > 1 && rest[1] != "" {
		if strings.EqualFold(rest[1], "tree") {
			return route.Tree(doctype)
		}
		var extra []string
		if len(rest) > 2 && rest[2] != "" {
			extra = slices.Clone(rest[2:])
		}
		return route.List(doctype, route.TitleCase(rest[1]), extra...)
	}

	return route.Form(doctype, strings.Join(rest, "/"))
}

// Parse resolves an explicit path or hash ("/app/todo", "#todo",
// "todo?status=Open") without touching router state. The returned
// options hold any trailing query.
func (r *Router) Parse(path string) (route.Route, url.Values) {
	res := r.parse(r.Registry(), path)
	return res.route, res.options
}

// ResolveCurrentPath resolves the location's current URL. Query options
// are merged into the route options and the slug's layout becomes the
// active layout. History and listeners are not touched.
func (r *Router) ResolveCurrentPath() route.Route {
	raw := r.rawPath()
	query := r.locationQuery()

	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.parse(r.reg, raw)
	r.options = mergeOptions(r.options, query, res.options)
	r.layout = res.layout
	return res.route
}

// Route runs a full routing turn for the current location: re-route
// check, resolution, history, render, title and listeners.
func (r *Router) Route(ctx context.Context) {
	nav := &Navigation{
		ctx:     ctx,
		SubPath: r.locationSubPath(),
		Started: time.Now(),
	}
	_ = ComposeMiddleware(nav, r.middleware, func() error {
		r.route(nav)
		return nil
	})
}

func (r *Router) route(nav *Navigation) {
	if r.reRoute(nav) {
		nav.Rerouted = true
		return
	}

	raw := r.rawPath()
	query := r.locationQuery()

	r.mu.Lock()
	res := r.parse(r.reg, raw)
	previous := r.current
	r.options = mergeOptions(r.queued, query, res.options)
	r.queued = nil
	r.layout = res.layout
	r.current = res.route
	r.currentSub = nav.SubPath
	r.history = append(r.history, res.route)
	title, hasTitle := r.titles[nav.SubPath]
	listeners := r.orderedListeners()
	view := View{
		Route:   res.route,
		SubPath: nav.SubPath,
		Layout:  res.layout,
		Options: cloneOptions(r.options),
	}
	r.mu.Unlock()

	nav.Route = res.route
	nav.Layout = res.layout

	r.renderer.Render(nav.Context(), view)
	if t, ok := r.renderer.(Titler); ok && hasTitle {
		t.SetTitle(title)
	}

	change := Change{
		Route:    res.route,
		Previous: previous,
		SubPath:  nav.SubPath,
		Layout:   res.layout,
		Options:  view.Options,
	}
	for _, l := range listeners {
		l(change)
	}
}

// reRoute redirects a sub-path recorded by SetReRoute. When the target is
// the route being left, the stale entry is skipped by going back;
// otherwise the stale entry is replaced by the target.
func (r *Router) reRoute(nav *Navigation) bool {
	r.mu.Lock()
	target, ok := r.reRoutes[nav.SubPath]
	current := r.currentSub
	r.mu.Unlock()
	if !ok {
		return false
	}

	targetSub := routepath.DecodePath(routepath.StripPrefix(target))
	r.logger.Debug("re-routing", "from", nav.SubPath, "to", targetSub)
	if targetSub == current {
		r.loc.Back()
		return true
	}
	r.NavigateToPath(nav.Context(), targetSub, WithReplace())
	return true
}

// OnChange registers a listener called after every navigation, in
// registration order. The returned function removes it.
func (r *Router) OnChange(l Listener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextListener
	r.nextListener++
	r.listeners[id] = l
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}

// orderedListeners returns listeners by registration order. Caller holds r.mu.
func (r *Router) orderedListeners() []Listener {
	out := make([]Listener, 0, len(r.listeners))
	for id := 0; id < r.nextListener; id++ {
		if l, ok := r.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

// CurrentRoute returns the last resolved route.
func (r *Router) CurrentRoute() route.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// CurrentSubPath returns the decoded sub-path of the last resolution.
func (r *Router) CurrentSubPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentSub
}

// Layout returns the active doctype layout.
func (r *Router) Layout() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layout
}

// History returns a copy of the resolved routes, oldest first.
func (r *Router) History() []route.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.history)
}

// PreviousRoute returns the second-to-last resolved route, or the empty
// (home) route when fewer than two navigations happened.
func (r *Router) PreviousRoute() route.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) < 2 {
		return route.Home()
	}
	return r.history[len(r.history)-2]
}

// RouteOptions returns a copy of the current route options.
func (r *Router) RouteOptions() url.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneOptions(r.options)
}

// HasRouteOptions reports whether any route options are set.
func (r *Router) HasRouteOptions() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.options) > 0
}

// ConsumeRouteOptions returns the route options and clears them.
func (r *Router) ConsumeRouteOptions() url.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	opts := r.options
	r.options = nil
	return opts
}

// SaveTitle records the document title of the current sub-path; it is
// restored whenever the sub-path is routed to again.
func (r *Router) SaveTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles[r.currentSub] = title
}

// Title returns the title saved for a decoded sub-path.
func (r *Router) Title(subPath string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.titles[subPath]
	return t, ok
}

// AddBreadcrumb registers crumb for the current route.
func (r *Router) AddBreadcrumb(crumb breadcrumbs.Crumb) {
	r.crumbs.Add(breadcrumbs.Key(r.CurrentRoute()), crumb)
}

// RecordRename moves the breadcrumb of a renamed document from its old
// form route to the new one. History is left as it is.
func (r *Router) RecordRename(doctype, oldName, newName string) {
	r.crumbs.Rename(doctype, oldName, newName)
}

// ReRouteTarget returns the sub-path a stale sub-path redirects to.
func (r *Router) ReRouteTarget(subPath string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.reRoutes[subPath]
	return t, ok
}

// mergeOptions merges option sets left to right; later sets win per key.
// It returns nil when nothing is set.
func mergeOptions(sets ...url.Values) url.Values {
	var out url.Values
	for _, set := range sets {
		for k, v := range set {
			if out == nil {
				out = url.Values{}
			}
			out[k] = slices.Clone(v)
		}
	}
	return out
}

func cloneOptions(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	return mergeOptions(v)
}
