package instrumentation

import (
	"context"
	"log/slog"

	"github.com/maildeck/maildeck/internal/logging"
)

// Audit event names. Every operation that touches a stored credential or
// modifies mailbox state gets an audit record.
const (
	AuditCredentialSaved   = "credential_saved"
	AuditCredentialCleared = "credential_cleared"
	AuditMessageArchived   = "message_archived"
)

// AuditLogger provides structured audit logging for credential and mailbox
// mutations. It wraps slog.Logger with methods for the events maildeck
// cares about and controls whether raw session identifiers appear in the
// output.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default session identifiers are anonymized before logging.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
// Passing a nil logger uses slog.Default().
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether raw session identifiers appear in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// CredentialSaved records that a refresh token was stored for a session.
func (al *AuditLogger) CredentialSaved(ctx context.Context, sessionID string) {
	al.log(ctx, AuditCredentialSaved, sessionID)
}

// CredentialCleared records that a session's stored credentials were removed.
func (al *AuditLogger) CredentialCleared(ctx context.Context, sessionID string) {
	al.log(ctx, AuditCredentialCleared, sessionID)
}

// MessageArchived records that a message was archived on behalf of a session.
func (al *AuditLogger) MessageArchived(ctx context.Context, sessionID, messageID string) {
	al.log(ctx, AuditMessageArchived, sessionID, slog.String("message_id", messageID))
}

func (al *AuditLogger) log(ctx context.Context, event, sessionID string, extra ...slog.Attr) {
	if al == nil || !al.enabled {
		return
	}

	attrs := make([]slog.Attr, 0, len(extra)+3)
	attrs = append(attrs, slog.String("event", event))
	if al.includePII {
		attrs = append(attrs, slog.String("session_id", sessionID))
	} else {
		attrs = append(attrs, slog.String("session_hash", logging.AnonymizeSession(sessionID)))
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	attrs = append(attrs, extra...)

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	al.logger.Info("audit", args...)
}
