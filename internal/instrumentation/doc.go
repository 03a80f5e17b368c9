// Package instrumentation provides OpenTelemetry-based observability for
// maildeck.
//
// It wires up metrics (Prometheus by default, OTLP or stdout optionally),
// optional distributed tracing, and an audit log for the operations that
// touch stored credentials or modify a mailbox.
//
// # Metrics
//
// The Metrics type records:
//   - http_requests_total / http_request_duration_seconds per route
//   - active_sessions for sessions currently holding a refresh token
//   - gmail_operations_total / gmail_operation_duration_seconds per Gmail
//     API operation (list, get, archive)
//   - oauth_auth_total per OAuth authorization outcome
//
// # Audit logging
//
// AuditLogger emits a structured record whenever a refresh token is saved
// or cleared and whenever a message is archived. Session identifiers are
// anonymized unless IncludePII is explicitly enabled.
//
// # Configuration
//
// All behavior is driven from environment variables, see DefaultConfig.
// Set INSTRUMENTATION_ENABLED=false to turn the whole subsystem into a
// no-op.
package instrumentation
