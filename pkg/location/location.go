// Package location models the browser URL bar that a desk router reads
// and writes: the current path and hash, push/replace history updates and
// back/forward navigation.
//
// Memory is the in-process implementation used by the server sessions and
// by tests. It keeps a history stack with a cursor like a browser tab.
package location

import (
	"fmt"
	"strings"
	"sync"
)

// Location is the URL state a router works against.
type Location interface {
	// Pathname returns the path component, e.g. "/app/todo".
	Pathname() string

	// Hash returns the fragment including the leading "#", or "".
	Hash() string

	// Push adds a history entry. A URL starting with "#" only changes the
	// fragment of the current path.
	Push(url string)

	// Replace substitutes the current history entry.
	Replace(url string)

	// Back moves one entry back in history.
	Back()
}

// Mode selects how routes are written to the URL.
type Mode int

const (
	// ModePath writes routes as paths: /app/todo/TODO-0001.
	ModePath Mode = iota

	// ModeHash writes routes as fragments: #todo/TODO-0001.
	ModeHash
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModePath:
		return "path"
	case ModeHash:
		return "hash"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts "path" or "hash" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "path":
		return ModePath, nil
	case "hash":
		return ModeHash, nil
	default:
		return ModePath, fmt.Errorf("unknown routing mode %q", s)
	}
}

// Memory is an in-memory Location with a browser-like history stack.
// It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	entries []string
	index   int
	nextID  int
	onPop   map[int]func()
}

// NewMemory creates a location whose only history entry is initial.
// An empty initial URL means "/".
func NewMemory(initial string) *Memory {
	if initial == "" {
		initial = "/"
	}
	return &Memory{
		entries: []string{initial},
		onPop:   make(map[int]func()),
	}
}

// URL returns the current full URL (path, query and hash).
func (m *Memory) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index]
}

// Pathname implements Location.
func (m *Memory) Pathname() string {
	path, _, _ := splitURL(m.URL())
	return path
}

// Search returns the query string including the leading "?", or "".
func (m *Memory) Search() string {
	_, search, _ := splitURL(m.URL())
	return search
}

// Hash implements Location.
func (m *Memory) Hash() string {
	_, _, hash := splitURL(m.URL())
	return hash
}

// Push implements Location. Entries after the cursor are discarded.
func (m *Memory) Push(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.resolve(url)
	m.entries = append(m.entries[:m.index+1], next)
	m.index++
}

// Replace implements Location.
func (m *Memory) Replace(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.index] = m.resolve(url)
}

// Back implements Location. It is a no-op at the first entry.
func (m *Memory) Back() {
	m.move(-1)
}

// Forward moves one entry forward. It is a no-op at the last entry.
func (m *Memory) Forward() {
	m.move(1)
}

func (m *Memory) move(delta int) {
	m.mu.Lock()
	next := m.index + delta
	if next < 0 || next >= len(m.entries) {
		m.mu.Unlock()
		return
	}
	m.index = next
	listeners := make([]func(), 0, len(m.onPop))
	for id := 0; id < m.nextID; id++ {
		if fn, ok := m.onPop[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// OnPop registers fn to run after Back or Forward changed the current
// entry, in registration order. The returned function unregisters it.
func (m *Memory) OnPop(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.onPop[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.onPop, id)
	}
}

// Len returns the number of history entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Index returns the position of the current entry.
func (m *Memory) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Entries returns a copy of the history stack.
func (m *Memory) Entries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.entries...)
}

// resolve turns a pushed URL into a full entry. Caller holds m.mu.
func (m *Memory) resolve(url string) string {
	if strings.HasPrefix(url, "#") {
		path, search, _ := splitURL(m.entries[m.index])
		return path + search + url
	}
	if url == "" {
		return "/"
	}
	return url
}

// splitURL splits a URL into path, "?query" and "#hash".
func splitURL(u string) (path, search, hash string) {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u, hash = u[:i], u[i:]
	}
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u, search = u[:i], u[i:]
	}
	return u, search, hash
}

var _ Location = (*Memory)(nil)
