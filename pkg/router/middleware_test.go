package router

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func recording(name string, log *[]string) Middleware {
	return MiddlewareFunc(func(nav *Navigation, next func() error) error {
		*log = append(*log, name)
		return next()
	})
}

func TestComposeMiddleware(t *testing.T) {
	var log []string
	nav := &Navigation{SubPath: "todo"}
	err := ComposeMiddleware(nav, []Middleware{recording("a", &log), recording("b", &log)}, func() error {
		log = append(log, "handler")
		return nil
	})
	if err != nil {
		t.Fatalf("ComposeMiddleware() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "handler"}, log); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeMiddlewareEmpty(t *testing.T) {
	want := errors.New("boom")
	if got := ComposeMiddleware(&Navigation{}, nil, func() error { return want }); got != want {
		t.Errorf("ComposeMiddleware() = %v, want %v", got, want)
	}
}

func TestChain(t *testing.T) {
	var log []string
	chained := Chain(recording("a", &log), recording("b", &log))
	_ = chained.Handle(&Navigation{}, func() error {
		log = append(log, "next")
		return nil
	})
	if diff := cmp.Diff([]string{"a", "b", "next"}, log); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestSkipAndOnly(t *testing.T) {
	isTodo := func(nav *Navigation) bool { return nav.SubPath == "todo" }
	tests := []struct {
		name    string
		wrap    func(func(*Navigation) bool, Middleware) Middleware
		subPath string
		ran     bool
	}{
		{"skip matching", Skip, "todo", false},
		{"skip other", Skip, "event", true},
		{"only matching", Only, "todo", true},
		{"only other", Only, "event", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log []string
			mw := tt.wrap(isTodo, recording("mw", &log))
			nextCalled := false
			_ = mw.Handle(&Navigation{SubPath: tt.subPath}, func() error {
				nextCalled = true
				return nil
			})
			if !nextCalled {
				t.Error("next was not called")
			}
			if ran := len(log) == 1; ran != tt.ran {
				t.Errorf("middleware ran = %v, want %v", ran, tt.ran)
			}
		})
	}
}
