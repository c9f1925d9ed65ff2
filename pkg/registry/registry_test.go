package registry

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"ToDo":            "todo",
		"Sales Order":     "sales-order",
		"Dashboard Chart": "dashboard-chart",
		"already-slug":    "already-slug",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuild(t *testing.T) {
	r := Build(
		[]string{"ToDo", "Sales Order", "System Settings"},
		[]Layout{{Name: "Quick ToDo", DocumentType: "ToDo"}},
		WithSingles("System Settings"),
		WithWorkspaces("Accounting", "Home"),
	)

	if e, ok := r.Lookup("todo"); !ok || e.DocType != "ToDo" || e.Layout != "" {
		t.Errorf("Lookup(todo) = %+v, %v", e, ok)
	}
	if e, ok := r.Lookup("sales-order"); !ok || e.DocType != "Sales Order" {
		t.Errorf("Lookup(sales-order) = %+v, %v", e, ok)
	}
	if e, ok := r.Lookup("quick-todo"); !ok || e.DocType != "ToDo" || e.Layout != "Quick ToDo" {
		t.Errorf("Lookup(quick-todo) = %+v, %v", e, ok)
	}
	if _, ok := r.Lookup("user"); ok {
		t.Error("unreadable doctype should not be routable")
	}

	if !r.IsSingle("System Settings") || r.IsSingle("ToDo") {
		t.Error("IsSingle mismatch")
	}

	if name, ok := r.Workspace("accounting"); !ok || name != "Accounting" {
		t.Errorf("Workspace(accounting) = %q, %v", name, ok)
	}

	want := []string{"quick-todo", "sales-order", "system-settings", "todo"}
	if diff := cmp.Diff(want, r.Slugs()); diff != "" {
		t.Errorf("Slugs() mismatch (-want +got):\n%s", diff)
	}
	if r.Len() != 4 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestLayoutOverridesDoctypeSlug(t *testing.T) {
	r := Build([]string{"Note"}, []Layout{{Name: "Note", DocumentType: "ToDo"}})
	e, _ := r.Lookup("note")
	if e.DocType != "ToDo" || e.Layout != "Note" {
		t.Errorf("layout should win on slug collision, got %+v", e)
	}
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	if _, ok := r.Lookup("todo"); ok {
		t.Error("nil registry lookup should miss")
	}
	if _, ok := r.Workspace("home"); ok {
		t.Error("nil registry workspace should miss")
	}
	if r.IsSingle("x") || r.Len() != 0 || r.Slugs() != nil {
		t.Error("nil registry should be empty")
	}
	if Empty().Len() != 0 {
		t.Error("Empty() should have no routes")
	}
}
