// Package logging provides structured logging utilities for maildeck.
//
// It centralizes attribute naming for slog so handlers, the session layer
// and the Gmail client log the same fields the same way, and it keeps
// secrets out of the logs: session identifiers are hashed before logging
// and credentials are reduced to a length indicator.
package logging
