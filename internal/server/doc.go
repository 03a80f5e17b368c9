// Package server implements the HTTP boundary of maildeck.
//
// The main server exposes the /api/gmail routes consumed by the browser
// dashboard: the OAuth authorization flow, authentication checks, inbox
// listing, message detail and archiving. Every mail route resolves the
// caller's cookie session and builds a request-scoped Gmail client from
// the refresh token stored for that session; no Gmail state is shared
// between requests.
//
// A ServerContext carries the pieces the handlers need (OAuth config,
// session store, metrics, audit logger) along with shutdown state. The
// Prometheus metrics endpoint is served from a dedicated listener, see
// MetricsServer, so operational data never shares a port with the
// browser-facing API.
package server
