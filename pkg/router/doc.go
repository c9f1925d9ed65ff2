// Package router implements desk routing.
//
// The router converts between three representations of a navigation
// target:
//   - the URL the browser shows (/app/todo/view/report or #todo/view/report)
//   - the slug form, whose first segment is a registry slug
//   - the structured route.Route (List ToDo Report)
//
// and drives the rendering collaborator on every navigation.
//
// # Resolution
//
// The first URL segment is looked up as a workspace, then as a doctype
// slug in the registry. Doctype slugs expand as follows:
//
//	/app/todo                 → List   ToDo List
//	/app/system-settings      → Form   System Settings System Settings (single)
//	/app/todo/view/report     → List   ToDo Report
//	/app/event/view/calendar/default → List Event Calendar default
//	/app/account/view/tree    → Tree   Account
//	/app/todo/TODO-0001       → Form   ToDo TODO-0001
//
// Anything else resolves literally. Undecodable percent-escapes are kept
// as written and a trailing "?key=value" becomes route options.
//
// # Usage
//
//	loc := location.NewMemory("/app")
//	r := router.New(loc, router.WithRenderer(views))
//	r.Setup(boot.CanRead, boot.DoctypeLayouts)
//
//	r.OnChange(func(c router.Change) {
//	    log.Println("now at", c.Route)
//	})
//
//	<-r.NavigateTo(ctx, route.Form("ToDo", "TODO-0001"))
//
// A Router serves one desk session. Navigation, resolution and listener
// dispatch happen synchronously in the caller's goroutine; the channel
// returned by NavigateTo closes once post-navigation work has settled.
package router
