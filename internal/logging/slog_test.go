package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeSession(t *testing.T) {
	a := AnonymizeSession("session-a")
	b := AnonymizeSession("session-b")

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, AnonymizeSession("session-a"), "hashing must be deterministic")
	assert.Contains(t, a, "session:")
	assert.NotContains(t, a, "session-a", "raw identifier must not survive anonymization")
	assert.Empty(t, AnonymizeSession(""))
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{name: "empty token", token: "", expected: "<empty>"},
		{name: "short token", token: "abc", expected: "[token:3 chars]"},
		{name: "long token", token: "1//0abcdefghijklmnop", expected: "[token:20 chars]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeToken(tt.token)
			assert.Equal(t, tt.expected, got)
			if tt.token != "" {
				assert.NotContains(t, got, tt.token)
			}
		})
	}
}

func TestErrNilProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("message", Err(nil))

	assert.NotContains(t, buf.String(), KeyError)
}

func TestAttributeHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	WithOperation(logger, "archive").Info("done",
		Status(StatusSuccess),
		MessageID("m1"),
		Session("sess-1"),
	)

	out := buf.String()
	assert.Contains(t, out, "operation=archive")
	assert.Contains(t, out, "status=success")
	assert.Contains(t, out, "message_id=m1")
	assert.Contains(t, out, "session_hash=session:")
	assert.NotContains(t, out, "sess-1")
}
