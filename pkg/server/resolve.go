package server

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/vango-dev/deskroute/pkg/location"
	"github.com/vango-dev/deskroute/pkg/registry"
	"github.com/vango-dev/deskroute/pkg/route"
	"github.com/vango-dev/deskroute/pkg/router"
	"github.com/vango-dev/deskroute/pkg/routepath"
)

// Resolution is what a path resolves to against a registry.
type Resolution struct {
	Path    string      `json:"path"`
	Route   route.Route `json:"route"`
	Kind    string      `json:"kind"`
	Layout  string      `json:"layout,omitempty"`
	Options url.Values  `json:"options,omitempty"`
	URL     string      `json:"url"`
}

// Resolve resolves path with a throwaway router on reg. The path may be a
// full desk URL ("/app/todo?status=Open"), a legacy hash ("#List/ToDo")
// or a bare sub-path ("todo/TODO-0001").
func Resolve(reg *registry.Registry, mode location.Mode, path string, logger *slog.Logger) Resolution {
	r := router.New(location.NewMemory(initialURL(mode, path)),
		router.WithRegistry(reg),
		router.WithMode(mode),
		router.WithLogger(logger),
	)
	defer r.Close()

	rt := r.ResolveCurrentPath()
	return Resolution{
		Path:    path,
		Route:   rt,
		Kind:    rt.Kind.String(),
		Layout:  r.Layout(),
		Options: r.RouteOptions(),
		URL:     r.URLFor(rt),
	}
}

// initialURL places path where a router in mode reads it.
func initialURL(mode location.Mode, path string) string {
	if mode == location.ModeHash {
		return "/" + routepath.AppPrefix + "#" + routepath.StripPrefix(path)
	}
	switch {
	case strings.HasPrefix(path, "#"):
		return "/" + routepath.AppPrefix + path
	case strings.HasPrefix(path, "/"):
		return path
	default:
		return "/" + routepath.AppPrefix + "/" + path
	}
}
