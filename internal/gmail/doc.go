// Package gmail provides the credential-bound Gmail client for the dashboard
// proxy.
//
// A Client is request-scoped: it is rebuilt on every inbound request from the
// session's delegated refresh credential and discarded at request end. The
// package offers:
//   - Inbox listing with a bounded concurrent metadata fan-out
//   - Single-message fetch with best-effort body extraction from the
//     nested MIME payload
//   - Archiving (removing the INBOX label) with a defensive re-fetch
//   - Translation of Gmail API failures into a tagged error taxonomy
//
// Construction never performs a network call; the underlying oauth2
// transport lazily exchanges the refresh credential for an access token on
// first use, so a revoked credential surfaces as an upstream authorization
// error on the first remote call.
package gmail
