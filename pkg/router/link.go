package router

import (
	"context"
	"net/url"
	"strings"

	"github.com/vango-dev/deskroute/pkg/route"
	"github.com/vango-dev/deskroute/pkg/routepath"
)

// FollowLink handles a clicked anchor the way the desk captures clicks.
// Links with their own handler, links opened in a new tab and bare "#"
// links are left to the browser. "#..." hrefs are legacy routes in
// canonical form (#List/ToDo, #Form/ToDo/TODO-0001); same-host /app/...
// hrefs are desk paths. It reports whether the link was handled and, if
// so, returns the navigation's settle channel.
func (r *Router) FollowLink(ctx context.Context, link Link) (<-chan struct{}, bool) {
	if link.HasHandler || link.NewTab || link.Href == "#" || link.Href == "" {
		return nil, false
	}

	if strings.HasPrefix(link.Href, "#") {
		parts := routepath.SplitSegments(routepath.StripPrefix(link.Href))
		return r.NavigateTo(ctx, route.FromParts(routepath.DecodeSegments(parts))), true
	}

	u, err := url.Parse(link.Href)
	if err != nil {
		r.logger.Debug("ignoring unparsable link", "href", link.Href, "error", err)
		return nil, false
	}
	if !link.SameHost || !routepath.IsAppRoute(u.EscapedPath()) {
		return nil, false
	}
	return r.NavigateToPath(ctx, u.EscapedPath()), true
}
