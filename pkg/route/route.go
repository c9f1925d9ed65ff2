// Package route defines the structured form of a desk route.
//
// A desk URL such as /app/todo/TODO-0001 resolves to a Route of kind Form
// carrying the doctype and the document name. Each kind carries its own
// named fields; Parts converts a Route to the canonical array form used
// on the wire (["Form", "ToDo", "TODO-0001"]) and FromParts converts back.
package route

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind identifies the shape of a Route.
type Kind int

const (
	// KindHome is the default desk view. Canonical parts: [].
	KindHome Kind = iota

	// KindWorkspace is a named workspace page. Parts: ["Workspaces", name].
	KindWorkspace

	// KindList is a list view or one of its sub-views (report, calendar,
	// kanban, gantt, dashboard...). Parts: ["List", doctype, view, ...extra].
	KindList

	// KindForm is a single document. Parts: ["Form", doctype, name].
	KindForm

	// KindTree is the hierarchical view of a doctype. Parts: ["Tree", doctype].
	KindTree

	// KindPage is a literal route that the registry did not expand, such as
	// a custom page. Parts are the segments verbatim.
	KindPage
)

// Canonical head segments.
const (
	HeadWorkspaces = "Workspaces"
	HeadList       = "List"
	HeadForm       = "Form"
	HeadTree       = "Tree"
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindHome:
		return "home"
	case KindWorkspace:
		return "workspace"
	case KindList:
		return "list"
	case KindForm:
		return "form"
	case KindTree:
		return "tree"
	case KindPage:
		return "page"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Route is a resolved desk route.
// Only the fields belonging to Kind are meaningful.
type Route struct {
	Kind Kind

	// Workspace is the workspace name (KindWorkspace).
	Workspace string

	// DocType is the document type (KindList, KindForm, KindTree).
	DocType string

	// DocName is the document name (KindForm). It may contain "/".
	DocName string

	// View is the list view name, e.g. "List", "Report" (KindList).
	View string

	// Extra holds segments appended after the view name (KindList).
	Extra []string

	// Segments are the literal segments (KindPage).
	Segments []string
}

// Home returns the home route.
func Home() Route {
	return Route{Kind: KindHome}
}

// Workspace returns a workspace route.
func Workspace(name string) Route {
	return Route{Kind: KindWorkspace, Workspace: name}
}

// List returns a list route. An empty view means the plain "List" view.
func List(doctype, view string, extra ...string) Route {
	if view == "" {
		view = HeadList
	}
	return Route{Kind: KindList, DocType: doctype, View: view, Extra: extra}
}

// Form returns a form route.
func Form(doctype, name string) Route {
	return Route{Kind: KindForm, DocType: doctype, DocName: name}
}

// Tree returns a tree route.
func Tree(doctype string) Route {
	return Route{Kind: KindTree, DocType: doctype}
}

// Page returns a literal route. No segments yields the home route.
func Page(segments ...string) Route {
	if len(segments) == 0 {
		return Home()
	}
	return Route{Kind: KindPage, Segments: segments}
}

// Parts returns the canonical array form of the route.
func (r Route) Parts() []string {
	switch r.Kind {
	case KindHome:
		return []string{}
	case KindWorkspace:
		return []string{HeadWorkspaces, r.Workspace}
	case KindList:
		parts := []string{HeadList, r.DocType, r.View}
		return append(parts, r.Extra...)
	case KindForm:
		return []string{HeadForm, r.DocType, r.DocName}
	case KindTree:
		return []string{HeadTree, r.DocType}
	case KindPage:
		return slices.Clone(r.Segments)
	default:
		panic(fmt.Sprintf("route: unhandled kind %v", r.Kind))
	}
}

// String returns the parts joined by "/".
func (r Route) String() string {
	return strings.Join(r.Parts(), "/")
}

// IsZero reports whether r is the home route.
func (r Route) IsZero() bool {
	return r.Kind == KindHome
}

// Equal reports whether r and o have the same canonical parts.
func (r Route) Equal(o Route) bool {
	return r.Kind == o.Kind && slices.Equal(r.Parts(), o.Parts())
}

// FromParts builds a Route from its canonical array form.
// Heads that are not recognised, or recognised heads with too few
// parts, produce a KindPage route.
func FromParts(parts []string) Route {
	if len(parts) == 0 || (len(parts) == 1 && parts[0] == "") {
		return Home()
	}

	switch parts[0] {
	case HeadWorkspaces:
		if len(parts) >= 2 {
			return Workspace(parts[1])
		}
	case HeadList:
		if len(parts) >= 2 {
			view := HeadList
			if len(parts) >= 3 && parts[2] != "" {
				view = parts[2]
			}
			var extra []string
			if len(parts) > 3 {
				extra = slices.Clone(parts[3:])
			}
			return List(parts[1], view, extra...)
		}
	case HeadForm:
		if len(parts) >= 3 {
			return Form(parts[1], strings.Join(parts[2:], "/"))
		}
	case HeadTree:
		if len(parts) >= 2 {
			return Tree(parts[1])
		}
	}

	return Page(slices.Clone(parts)...)
}

// MarshalJSON encodes the route as its parts array.
func (r Route) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Parts())
}

// UnmarshalJSON decodes a parts array.
func (r *Route) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	*r = FromParts(parts)
	return nil
}

var separators = strings.NewReplacer("-", "", "_", "")

// TitleCase converts a URL view token to its view name:
// "report" → "Report", "image-view" → "ImageView".
func TitleCase(s string) string {
	// A Caser keeps state between calls, so one is built per conversion.
	return separators.Replace(cases.Title(language.Und).String(strings.ToLower(s)))
}
