// Package server hosts desk routers for remote clients.
//
// Every WebSocket connection gets its own session: an in-memory location,
// a router bound to it and a writer goroutine. Clients drive the router
// with small JSON messages and receive a change message after every
// routing turn.
//
// # Endpoints
//
//	GET /healthz          liveness probe
//	GET /api/resolve      resolve ?path= against the current registry
//	GET /api/routes       registered slugs
//	GET /ws               session WebSocket
//	GET /metrics          Prometheus metrics, when a handler is set
//
// # Session Protocol
//
// Client messages:
//
//	{"op":"navigate","path":"todo/TODO-0001"}
//	{"op":"navigate","route":["List","ToDo","Report"],"replace":true,"options":{"status":"Open"}}
//	{"op":"back"}
//	{"op":"rename","doctype":"ToDo","old":"TODO-0001","new":"TODO-0002"}
//	{"op":"previous"}
//
// A navigate or rename message carrying an "id" is answered with
// {"op":"settled","id":...} once the navigation has settled. Every routing
// turn produces {"op":"change",...}; "previous" is answered with
// {"op":"previous","route":[...]}. Invalid messages get {"op":"error"}
// with a D020 or D021 code.
//
// # Registry Updates
//
// SetRegistry installs a new slug registry. New sessions start with it and
// live sessions re-resolve their current location against it.
package server
