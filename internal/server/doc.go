// Package server provides HTTP routing, middleware, session handling, and
// the sync service's web API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first),
// following the standard Go pattern. The [BasicRouter] implementation uses
// [http.ServeMux] internally with method filtering.
//
// # OAuth
//
// Two callback paths exist. [OAuthHandler] serves the CLI flow: a temporary
// localhost server handles one callback, exchanges the code, and delivers
// the token over a one-shot channel. [AuthHandler] serves the web flow: it
// issues the authorization redirect, correlates the returned state to a
// session, exchanges the code, and links the account.
//
// # API
//
// [SyncHandler] exposes playlist listing, sync runs, and sync history.
// [SessionStore] abstracts session persistence; [MemorySessionStore] backs
// the serve command and tests. Handlers map sentinel errors from
// internal/shared onto 400/401/404/500 responses with JSON bodies.
package server
