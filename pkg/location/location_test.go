package location

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemoryPushReplace(t *testing.T) {
	m := NewMemory("/app")

	m.Push("/app/todo")
	m.Push("/app/todo/TODO-0001")
	if m.Pathname() != "/app/todo/TODO-0001" {
		t.Errorf("Pathname() = %q", m.Pathname())
	}
	if m.Len() != 3 || m.Index() != 2 {
		t.Errorf("Len/Index = %d/%d, want 3/2", m.Len(), m.Index())
	}

	m.Replace("/app/todo/TODO-0002")
	want := []string{"/app", "/app/todo", "/app/todo/TODO-0002"}
	if diff := cmp.Diff(want, m.Entries()); diff != "" {
		t.Errorf("Entries mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryBackForward(t *testing.T) {
	m := NewMemory("/app")
	m.Push("/app/a")
	m.Push("/app/b")

	pops := 0
	unsubscribe := m.OnPop(func() { pops++ })

	m.Back()
	if m.Pathname() != "/app/a" {
		t.Errorf("after Back, Pathname() = %q", m.Pathname())
	}
	m.Forward()
	if m.Pathname() != "/app/b" {
		t.Errorf("after Forward, Pathname() = %q", m.Pathname())
	}
	m.Forward() // at the end, no-op
	if pops != 2 {
		t.Errorf("pops = %d, want 2", pops)
	}

	unsubscribe()
	m.Back()
	if pops != 2 {
		t.Error("unsubscribed listener still called")
	}

	// Pushing after Back discards forward entries.
	m.Push("/app/c")
	want := []string{"/app", "/app/a", "/app/c"}
	if diff := cmp.Diff(want, m.Entries()); diff != "" {
		t.Errorf("Entries mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryBackAtStart(t *testing.T) {
	m := NewMemory("")
	called := false
	m.OnPop(func() { called = true })
	m.Back()
	if called || m.URL() != "/" {
		t.Errorf("Back at first entry should be a no-op, URL=%q called=%v", m.URL(), called)
	}
}

func TestMemoryHash(t *testing.T) {
	m := NewMemory("/app?x=1")
	m.Push("#List/ToDo")
	if m.URL() != "/app?x=1#List/ToDo" {
		t.Errorf("URL() = %q", m.URL())
	}
	if m.Pathname() != "/app" || m.Hash() != "#List/ToDo" || m.Search() != "?x=1" {
		t.Errorf("split = %q %q %q", m.Pathname(), m.Search(), m.Hash())
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModePath, false},
		{"path", ModePath, false},
		{"HASH", ModeHash, false},
		{"fragment", ModePath, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, err)
		}
	}
	if ModeHash.String() != "hash" || Mode(7).String() != "mode(7)" {
		t.Error("Mode.String mismatch")
	}
}
