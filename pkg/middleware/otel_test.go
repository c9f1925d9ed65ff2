package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/deskroute/pkg/location"
	"github.com/vango-dev/deskroute/pkg/registry"
	"github.com/vango-dev/deskroute/pkg/route"
	"github.com/vango-dev/deskroute/pkg/router"
)

// recordingProvider hands out a tracer that remembers its spans.
type recordingProvider struct {
	trace.TracerProvider
	tracer *recordingTracer
}

func newRecordingProvider() *recordingProvider {
	noopProvider := noop.NewTracerProvider()
	return &recordingProvider{
		TracerProvider: noopProvider,
		tracer:         &recordingTracer{Tracer: noopProvider.Tracer("")},
	}
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

type recordingTracer struct {
	trace.Tracer
	spans []*recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	ctx, inner := t.Tracer.Start(ctx, name, opts...)
	span := &recordingSpan{Span: inner, name: name, attrs: map[attribute.Key]attribute.Value{}}
	for _, kv := range cfg.Attributes() {
		span.attrs[kv.Key] = kv.Value
	}
	t.spans = append(t.spans, span)
	return trace.ContextWithSpan(ctx, span), span
}

type recordingSpan struct {
	trace.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}

func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }

func TestOpenTelemetryMiddleware_TracesNavigation(t *testing.T) {
	tp := newRecordingProvider()
	loc := location.NewMemory("/app")

	var renderSpan trace.Span
	r := router.New(loc,
		router.WithSettleDelay(time.Millisecond),
		router.WithMiddleware(OpenTelemetry(
			WithTracerProvider(tp),
			WithAttributeExtractor(func(nav *router.Navigation) []attribute.KeyValue {
				return []attribute.KeyValue{attribute.String("test.attr", "ok")}
			}),
		)),
		router.WithRenderer(router.RendererFunc(func(ctx context.Context, _ router.View) {
			renderSpan = SpanFromContext(ctx)
		})),
	)
	defer r.Close()
	r.Setup([]string{"ToDo"}, []registry.Layout{{Name: "Quick ToDo", DocumentType: "ToDo"}})

	<-r.NavigateToPath(context.Background(), "quick-todo/TODO-0001")

	if len(tp.tracer.spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(tp.tracer.spans))
	}
	span := tp.tracer.spans[0]
	if renderSpan != trace.Span(span) {
		t.Error("renderer did not receive the navigation span")
	}
	if span.name != spanName || !span.ended || span.status != codes.Ok {
		t.Errorf("span = %+v", span)
	}

	want := map[attribute.Key]string{
		"deskroute.sub_path": "quick-todo/TODO-0001",
		"deskroute.route":    "Form/ToDo/TODO-0001",
		"deskroute.kind":     "form",
		"deskroute.layout":   "Quick ToDo",
		"test.attr":          "ok",
	}
	for k, v := range want {
		if got := span.attrs[k].AsString(); got != v {
			t.Errorf("attribute %s = %q, want %q", k, got, v)
		}
	}
}

func TestOpenTelemetryMiddleware_RecordsError(t *testing.T) {
	tp := newRecordingProvider()
	wantErr := errors.New("boom")

	err := OpenTelemetry(WithTracerProvider(tp), WithIncludeRoute(false)).
		Handle(&router.Navigation{SubPath: "todo", Route: route.List("ToDo", "")}, func() error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected error %v, got %v", wantErr, err)
	}

	span := tp.tracer.spans[0]
	if span.status != codes.Error || len(span.errs) != 1 {
		t.Errorf("span status = %v, errors = %v", span.status, span.errs)
	}
	if _, ok := span.attrs["deskroute.route"]; ok {
		t.Error("route attribute recorded with IncludeRoute(false)")
	}
}

func TestOpenTelemetryMiddleware_FilterSkipsTracing(t *testing.T) {
	tp := newRecordingProvider()
	nav := &router.Navigation{SubPath: ""}

	nextCalled := false
	err := OpenTelemetry(
		WithTracerProvider(tp),
		WithNavigationFilter(func(nav *router.Navigation) bool { return nav.SubPath != "" }),
	).Handle(nav, func() error {
		nextCalled = true
		if SpanFromContext(nav.Context()) != nil {
			t.Fatal("expected no span when filter skips tracing")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !nextCalled {
		t.Fatal("expected next to be called")
	}
	if len(tp.tracer.spans) != 0 {
		t.Fatalf("recorded %d spans, want 0", len(tp.tracer.spans))
	}
}

func TestOpenTelemetryMiddleware_GlobalProvider(t *testing.T) {
	nav := &router.Navigation{SubPath: "todo"}
	err := OpenTelemetry(WithTracerName("test")).Handle(nav, func() error {
		if SpanFromContext(nav.Context()) == nil {
			t.Fatal("expected a span during execution")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSpanFromContext_NoSpan(t *testing.T) {
	if SpanFromContext(context.Background()) != nil {
		t.Fatal("expected nil span when no span is stored")
	}
}
