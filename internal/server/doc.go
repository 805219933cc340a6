// Package server provides HTTP routing, middleware, and the local web dashboard.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method-qualified patterns on [http.ServeMux].
//
// # Auth Gate
//
// [RequireSession] runs the auth gate before a protected handler. A denied request is redirected
// with 303 See Other to the login page and the protected handler never writes.
//
// # Dashboard
//
// [Dashboard] serves a small server-rendered view of the session:
//
//	GET  /login  → login form
//	POST /login  → authenticate, redirect to /
//	POST /logout → clear the session, redirect to /login
//	GET  /       → profile of the signed-in user (gated)
//	GET  /users  → account list (gated)
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
