// Package middleware provides observability middleware for desk routers.
//
// This package includes:
//   - OpenTelemetry tracing of routing turns
//   - Prometheus navigation metrics
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware opens one span per routing turn. The span
// carries the sub-path, the resolved route and its kind, and the doctype
// layout, and its context is handed to the renderer.
//
//	r := router.New(loc, router.WithMiddleware(
//	    middleware.OpenTelemetry(),
//	))
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("desk"),
//	    middleware.WithNavigationFilter(func(nav *router.Navigation) bool {
//	        return nav.SubPath != ""
//	    }),
//	)
//
// # Prometheus Metrics
//
// The Prometheus middleware collects:
//   - deskroute_navigations_total: Routing turns by route kind and status
//   - deskroute_navigation_duration_seconds: Routing turn duration histogram
//   - deskroute_reroutes_total: Navigations redirected after a rename
//   - deskroute_active_sessions: Connected router sessions
//
//	r := router.New(loc, router.WithMiddleware(
//	    middleware.Prometheus(),
//	))
//
// Then expose metrics:
//
//	http.Handle("/metrics", promhttp.Handler())
package middleware
