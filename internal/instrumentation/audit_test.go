package instrumentation

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newCapturedAuditLogger(config AuditLoggingConfig) (*AuditLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	return NewAuditLoggerWithConfig(logger, config), &buf
}

func TestAuditLoggerAnonymizesByDefault(t *testing.T) {
	al, buf := newCapturedAuditLogger(AuditLoggingConfig{Enabled: true})

	al.CredentialSaved(context.Background(), "raw-session-id")

	out := buf.String()
	assert.Contains(t, out, AuditCredentialSaved)
	assert.Contains(t, out, "session_hash=session:")
	assert.NotContains(t, out, "raw-session-id")
}

func TestAuditLoggerIncludePII(t *testing.T) {
	al, buf := newCapturedAuditLogger(AuditLoggingConfig{Enabled: true, IncludePII: true})

	al.CredentialCleared(context.Background(), "raw-session-id")

	out := buf.String()
	assert.Contains(t, out, AuditCredentialCleared)
	assert.Contains(t, out, "session_id=raw-session-id")
}

func TestAuditLoggerMessageArchived(t *testing.T) {
	al, buf := newCapturedAuditLogger(AuditLoggingConfig{Enabled: true})

	al.MessageArchived(context.Background(), "sess", "msg-42")

	out := buf.String()
	assert.Contains(t, out, AuditMessageArchived)
	assert.Contains(t, out, "message_id=msg-42")
}

func TestAuditLoggerDisabled(t *testing.T) {
	al, buf := newCapturedAuditLogger(AuditLoggingConfig{Enabled: false})

	al.CredentialSaved(context.Background(), "sess")
	al.CredentialCleared(context.Background(), "sess")
	al.MessageArchived(context.Background(), "sess", "msg")

	assert.Empty(t, buf.String())
}

func TestAuditLoggerNilReceiverIsSafe(t *testing.T) {
	var al *AuditLogger

	assert.NotPanics(t, func() {
		al.CredentialSaved(context.Background(), "sess")
	})
}

func TestAuditLoggerToggles(t *testing.T) {
	al, buf := newCapturedAuditLogger(AuditLoggingConfig{Enabled: true})

	al.SetEnabled(false)
	al.CredentialSaved(context.Background(), "sess")
	assert.Empty(t, buf.String())

	al.SetEnabled(true)
	al.SetIncludePII(true)
	al.CredentialSaved(context.Background(), "sess")
	assert.Contains(t, buf.String(), "session_id=sess")
}
