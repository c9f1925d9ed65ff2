// Package registry maps URL slugs to the document types they address.
//
// A Registry is built once from the bootstrap data of a desk session: the
// document types the user may read, the doctype layouts that overlay
// them, the singleton doctypes and the workspace pages. It is immutable
// after Build; to change it, build a new one and hand it to the router.
package registry

import (
	"sort"
	"strings"
)

// Entry is the descriptor a slug resolves to.
type Entry struct {
	// DocType is the document type addressed by the slug.
	DocType string

	// Layout is the doctype layout to render with, if the slug names one.
	Layout string
}

// Layout is a named alternate arrangement of a doctype's form.
type Layout struct {
	Name         string `json:"name" yaml:"name"`
	DocumentType string `json:"document_type" yaml:"document_type"`
}

// Registry is the read-only slug table.
type Registry struct {
	routes     map[string]Entry
	singles    map[string]struct{}
	workspaces map[string]string
}

// Option configures Build.
type Option func(*Registry)

// WithSingles marks doctypes as singletons.
func WithSingles(doctypes ...string) Option {
	return func(r *Registry) {
		for _, dt := range doctypes {
			r.singles[dt] = struct{}{}
		}
	}
}

// WithWorkspaces registers workspace pages by the slug of their name.
func WithWorkspaces(names ...string) Option {
	return func(r *Registry) {
		for _, name := range names {
			r.workspaces[Slug(name)] = name
		}
	}
}

// Build creates a registry from the readable doctypes and layouts.
// Layout slugs are applied after doctype slugs and win on collision.
func Build(allowed []string, layouts []Layout, opts ...Option) *Registry {
	r := &Registry{
		routes:     make(map[string]Entry, len(allowed)+len(layouts)),
		singles:    make(map[string]struct{}),
		workspaces: make(map[string]string),
	}

	for _, dt := range allowed {
		r.routes[Slug(dt)] = Entry{DocType: dt}
	}
	for _, l := range layouts {
		r.routes[Slug(l.Name)] = Entry{DocType: l.DocumentType, Layout: l.Name}
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Empty returns a registry with no routes.
func Empty() *Registry {
	return Build(nil, nil)
}

// Slug converts a doctype or layout name to its URL form.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// Lookup returns the entry for a slug.
func (r *Registry) Lookup(slug string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	e, ok := r.routes[slug]
	return e, ok
}

// Workspace returns the workspace name registered under slug.
func (r *Registry) Workspace(slug string) (string, bool) {
	if r == nil {
		return "", false
	}
	name, ok := r.workspaces[slug]
	return name, ok
}

// IsSingle reports whether doctype is a singleton.
func (r *Registry) IsSingle(doctype string) bool {
	if r == nil {
		return false
	}
	_, ok := r.singles[doctype]
	return ok
}

// Slugs returns all registered slugs in sorted order.
func (r *Registry) Slugs() []string {
	if r == nil {
		return nil
	}
	slugs := make([]string, 0, len(r.routes))
	for s := range r.routes {
		slugs = append(slugs, s)
	}
	sort.Strings(slugs)
	return slugs
}

// Len returns the number of registered slugs.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.routes)
}
