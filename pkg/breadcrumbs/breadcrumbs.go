// Package breadcrumbs stores the breadcrumb trail associated with each
// desk route and the module a doctype's breadcrumb points at.
package breadcrumbs

import (
	"strings"
	"sync"

	"github.com/vango-dev/deskroute/pkg/route"
)

// Crumb is the breadcrumb descriptor registered for a route.
type Crumb struct {
	Module  string `json:"module,omitempty"`
	DocType string `json:"doctype,omitempty"`
	Type    string `json:"type,omitempty"`
}

// Store maps route strings ("Form/ToDo/TODO-0001") to crumbs.
// It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	all       map[string]Crumb
	preferred map[string]string
	moduleMap map[string]string
}

// DefaultPreferred lists doctypes whose breadcrumb module is fixed.
// An empty module hides the module crumb.
var DefaultPreferred = map[string]string{
	"File":                   "",
	"Dashboard":              "Customization",
	"Dashboard Chart":        "Customization",
	"Dashboard Chart Source": "Customization",
}

// DefaultModuleMap folds internal modules into the Settings workspace.
var DefaultModuleMap = map[string]string{
	"Core":       "Settings",
	"Email":      "Settings",
	"Custom":     "Settings",
	"Workflow":   "Settings",
	"Printing":   "Settings",
	"Automation": "Settings",
	"Setup":      "Settings",
}

// NewStore creates a store seeded with the default preferred modules and
// module map.
func NewStore() *Store {
	s := &Store{
		all:       make(map[string]Crumb),
		preferred: make(map[string]string, len(DefaultPreferred)),
		moduleMap: make(map[string]string, len(DefaultModuleMap)),
	}
	for k, v := range DefaultPreferred {
		s.preferred[k] = v
	}
	for k, v := range DefaultModuleMap {
		s.moduleMap[k] = v
	}
	return s
}

// Key returns the store key for a route.
func Key(r route.Route) string {
	return r.String()
}

// FormKey returns the store key of a document's form route.
func FormKey(doctype, name string) string {
	return strings.Join([]string{route.HeadForm, doctype, name}, "/")
}

// Add registers crumb for key, replacing any previous value.
func (s *Store) Add(key string, crumb Crumb) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all[key] = crumb
}

// Get returns the crumb registered for key.
func (s *Store) Get(key string) (Crumb, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.all[key]
	return c, ok
}

// Rename moves the crumb of a renamed document to its new form key.
// The old key is removed even when it held nothing.
func (s *Store) Rename(doctype, oldName, newName string) {
	oldKey := FormKey(doctype, oldName)
	newKey := FormKey(doctype, newName)

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.all[oldKey]; ok {
		s.all[newKey] = c
	} else {
		delete(s.all, newKey)
	}
	delete(s.all, oldKey)
}

// SetPreferredModule pins the breadcrumb module of a doctype.
func (s *Store) SetPreferredModule(doctype, module string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferred[doctype] = module
}

// Module returns the module the crumb's breadcrumb should link to:
// a preferred module for the doctype wins over the crumb's own module,
// and the result is passed through the module map.
func (s *Store) Module(c Crumb) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	module := c.Module
	if m, ok := s.preferred[c.DocType]; ok {
		module = m
	}
	if mapped, ok := s.moduleMap[module]; ok {
		module = mapped
	}
	return module
}

// Len returns the number of stored crumbs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.all)
}
