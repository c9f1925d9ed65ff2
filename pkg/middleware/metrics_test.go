package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/deskroute/pkg/location"
	"github.com/vango-dev/deskroute/pkg/route"
	"github.com/vango-dev/deskroute/pkg/router"
)

func resetGlobalMetricsForTest() {
	globalMetricsMu.Lock()
	globalMetrics = nil
	globalMetricsMu.Unlock()
}

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestPrometheusMiddleware_RecordsStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"success", nil, "success"},
		{"error", errors.New("boom"), "error"},
		{"canceled", context.Canceled, "canceled"},
		{"timeout", context.DeadlineExceeded, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobalMetricsForTest()
			mw := Prometheus(WithRegistry(prometheus.NewRegistry()))
			nav := &router.Navigation{SubPath: "todo", Route: route.List("ToDo", "")}

			err := mw.Handle(nav, func() error { return tt.err })
			if !errors.Is(err, tt.err) {
				t.Fatalf("Handle() error = %v, want %v", err, tt.err)
			}

			m := loadMetrics()
			if got := metricCounterValue(t, m.navigationsTotal.WithLabelValues("list", tt.status)); got != 1 {
				t.Errorf("navigations_total(list,%s) = %v, want 1", tt.status, got)
			}
			if got := metricHistogramCount(t, m.navigationDuration.WithLabelValues("list")); got != 1 {
				t.Errorf("navigation_duration_seconds count = %d, want 1", got)
			}
		})
	}
}

func TestPrometheusMiddleware_Reroute(t *testing.T) {
	resetGlobalMetricsForTest()
	mw := Prometheus(WithRegistry(prometheus.NewRegistry()))

	nav := &router.Navigation{SubPath: "todo/New ToDo 1"}
	_ = mw.Handle(nav, func() error {
		nav.Rerouted = true
		return nil
	})

	m := loadMetrics()
	if got := metricCounterValue(t, m.reroutesTotal); got != 1 {
		t.Errorf("reroutes_total = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.navigationsTotal.WithLabelValues("home", "success")); got != 0 {
		t.Errorf("re-routed turn counted as navigation: %v", got)
	}
}

func TestPrometheusMiddleware_Names(t *testing.T) {
	resetGlobalMetricsForTest()
	reg := prometheus.NewRegistry()
	mw := Prometheus(
		WithRegistry(reg),
		WithSubsystem("desk"),
		WithConstLabels(prometheus.Labels{"site": "test"}),
		WithBuckets([]float64{0.01, 0.1}),
	)
	_ = mw.Handle(&router.Navigation{Route: route.Tree("Account")}, func() error { return nil })
	RecordSessionOpen()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"deskroute_desk_navigations_total",
		"deskroute_desk_navigation_duration_seconds",
		"deskroute_desk_active_sessions",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered; got %v", want, names)
		}
	}
}

func TestRecordSessions(t *testing.T) {
	resetGlobalMetricsForTest()
	RecordSessionOpen() // no metrics yet, must not panic

	Prometheus(WithRegistry(prometheus.NewRegistry()))
	RecordSessionOpen()
	RecordSessionOpen()
	RecordSessionClose()

	if got := metricGaugeValue(t, loadMetrics().activeSessions); got != 1 {
		t.Errorf("active_sessions = %v, want 1", got)
	}
}

func TestPrometheusMiddleware_WithRouter(t *testing.T) {
	resetGlobalMetricsForTest()
	loc := location.NewMemory("/app")
	r := router.New(loc,
		router.WithSettleDelay(time.Millisecond),
		router.WithMiddleware(Prometheus(WithRegistry(prometheus.NewRegistry()))),
	)
	defer r.Close()
	r.Setup([]string{"ToDo"}, nil)

	<-r.NavigateToPath(context.Background(), "todo/TODO-0001")
	<-r.NavigateToPath(context.Background(), "todo")

	m := loadMetrics()
	for _, kind := range []string{"form", "list"} {
		if got := metricCounterValue(t, m.navigationsTotal.WithLabelValues(kind, "success")); got != 1 {
			t.Errorf("navigations_total(%s,success) = %v, want 1", kind, got)
		}
	}
}
