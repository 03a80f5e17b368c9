package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maildeck/maildeck/internal/session"
)

func defaultServeOptions() serveOptions {
	return serveOptions{
		HTTPAddr:       ":5083",
		RedirectURL:    "http://localhost:5083/api/gmail/auth/callback",
		FrontendOrigin: "http://localhost:3000",
		SessionTimeout: session.DefaultIdleTimeout,
		MetricsEnabled: true,
		MetricsAddr:    ":9090",
	}
}

func TestLoadServeEnvVars(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "env-client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "env-client-secret")
	t.Setenv("MAILDECK_REDIRECT_URL", "https://mail.example.com/api/gmail/auth/callback")
	t.Setenv("MAILDECK_FRONTEND_ORIGIN", "https://dash.example.com")
	t.Setenv("MAILDECK_SESSION_TIMEOUT", "2h")
	t.Setenv("METRICS_ADDR", ":9999")
	t.Setenv("METRICS_ENABLED", "false")

	opts := defaultServeOptions()
	loadServeEnvVars(&opts)

	assert.Equal(t, "env-client-id", opts.GoogleClientID)
	assert.Equal(t, "env-client-secret", opts.GoogleClientSecret)
	assert.Equal(t, "https://mail.example.com/api/gmail/auth/callback", opts.RedirectURL)
	assert.Equal(t, "https://dash.example.com", opts.FrontendOrigin)
	assert.Equal(t, 2*time.Hour, opts.SessionTimeout)
	assert.Equal(t, ":9999", opts.MetricsAddr)
	assert.False(t, opts.MetricsEnabled)
}

func TestLoadServeEnvVarsFlagWins(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "env-client-id")

	opts := defaultServeOptions()
	opts.GoogleClientID = "flag-client-id"
	loadServeEnvVars(&opts)

	assert.Equal(t, "flag-client-id", opts.GoogleClientID)
}

func TestLoadServeEnvVarsInvalidTimeout(t *testing.T) {
	t.Setenv("MAILDECK_SESSION_TIMEOUT", "soon")

	opts := defaultServeOptions()
	loadServeEnvVars(&opts)

	assert.Equal(t, session.DefaultIdleTimeout, opts.SessionTimeout)
}

func TestServeCommandDefaults(t *testing.T) {
	cmd := newServeCmd()

	addr, err := cmd.Flags().GetString("http-addr")
	assert.NoError(t, err)
	assert.Equal(t, ":5083", addr)

	origin, err := cmd.Flags().GetString("frontend-origin")
	assert.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", origin)

	timeout, err := cmd.Flags().GetDuration("session-timeout")
	assert.NoError(t, err)
	assert.Equal(t, session.DefaultIdleTimeout, timeout)
}
