// Package session provides the server-side session layer for the dashboard.
//
// A session is an opaque identifier carried by a browser cookie. Each session
// holds at most one delegated Gmail refresh credential, stored under a single
// well-known key. Sessions are kept in memory, expire after an idle timeout
// and are swept by a background cleanup goroutine.
package session
