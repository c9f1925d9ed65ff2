package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/deskroute/pkg/router"
)

// Default tracer name for deskroute.
const defaultTracerName = "deskroute"

// spanName is the name of every navigation span.
const spanName = "deskroute.navigate"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "deskroute").
	TracerName string

	// TracerProvider overrides the global tracer provider.
	TracerProvider trace.TracerProvider

	// IncludeRoute includes the resolved route in traces.
	// Enabled by default.
	IncludeRoute bool

	// Filter determines which navigations to trace.
	// If nil, all navigations are traced.
	Filter func(nav *router.Navigation) bool

	// AttributeExtractor adds custom attributes once the route is resolved.
	AttributeExtractor func(nav *router.Navigation) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeRoute enables/disables including the route in traces.
func WithIncludeRoute(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeRoute = include
	}
}

// WithNavigationFilter sets a filter function for navigations.
func WithNavigationFilter(filter func(nav *router.Navigation) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(nav *router.Navigation) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:   defaultTracerName,
		IncludeRoute: true,
	}
}

// OpenTelemetry creates middleware that traces every routing turn.
//
// The span carries the sub-path up front; once the router has resolved it,
// the route, its kind and layout are added. The span's context replaces
// the navigation context; renderers receive it and can retrieve the span
// with SpanFromContext.
//
// Without WithTracerProvider the global provider is used. Configure it in
// main() before creating routers:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) router.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return router.MiddlewareFunc(func(nav *router.Navigation, next func() error) error {
		if config.Filter != nil && !config.Filter(nav) {
			return next()
		}

		ctx, span := config.tracer.Start(
			nav.Context(),
			spanName,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attribute.String("deskroute.sub_path", nav.SubPath)),
			trace.WithTimestamp(nav.Started),
		)
		defer span.End()

		nav.SetContext(context.WithValue(ctx, spanContextKey{}, span))

		err := next()

		attrs := []attribute.KeyValue{attribute.Bool("deskroute.rerouted", nav.Rerouted)}
		if config.IncludeRoute && !nav.Rerouted {
			attrs = append(attrs,
				attribute.String("deskroute.route", nav.Route.String()),
				attribute.String("deskroute.kind", nav.Route.Kind.String()),
				attribute.String("deskroute.layout", nav.Layout),
			)
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(nav)...)
		}
		span.SetAttributes(attrs...)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return err
	})
}

// spanContextKey is the key for storing the navigation span.
type spanContextKey struct{}

// SpanFromContext retrieves the navigation span from a context handed to
// a renderer. Returns nil if the navigation was not traced.
//
// Example:
//
//	func (v *view) Render(ctx context.Context, rv router.View) {
//	    if span := middleware.SpanFromContext(ctx); span != nil {
//	        span.SetAttributes(attribute.Int("desk.widgets", len(v.widgets)))
//	    }
//	}
func SpanFromContext(ctx context.Context) trace.Span {
	if span, ok := ctx.Value(spanContextKey{}).(trace.Span); ok {
		return span
	}
	return nil
}
