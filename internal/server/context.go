package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maildeck/maildeck/internal/gmail"
	"github.com/maildeck/maildeck/internal/google"
	"github.com/maildeck/maildeck/internal/instrumentation"
	"github.com/maildeck/maildeck/internal/session"
)

// MailClient is the Gmail surface the handlers need. *gmail.Client
// satisfies it; tests substitute fakes.
type MailClient interface {
	ListInbox(ctx context.Context, maxResults int64) ([]gmail.MessageSummary, error)
	GetMessage(ctx context.Context, id string) (*gmail.MessageDetail, error)
	Archive(ctx context.Context, id string) error
}

// ClientFactory builds a request-scoped MailClient from a refresh token.
type ClientFactory func(ctx context.Context, refreshToken string) (MailClient, error)

// ServerContext holds the shared state for the HTTP server.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	oauthConfig   google.Config
	sessions      *session.Store
	sessionMgr    *session.Manager
	clientFactory ClientFactory
	metrics       *instrumentation.Metrics
	audit         *instrumentation.AuditLogger
	logger        *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context bound to the given OAuth
// configuration and session store.
func NewServerContext(ctx context.Context, oauthConfig google.Config, sessions *session.Store) (*ServerContext, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if err := oauthConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid OAuth configuration: %w", err)
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	sc := &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		oauthConfig: oauthConfig,
		sessions:    sessions,
		sessionMgr:  session.NewManager(sessions),
		logger:      slog.Default(),
	}
	sc.clientFactory = func(ctx context.Context, refreshToken string) (MailClient, error) {
		return gmail.NewClient(ctx, oauthConfig.OAuthConfig(), refreshToken)
	}
	return sc, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Sessions returns the session credential store.
func (sc *ServerContext) Sessions() *session.Store {
	return sc.sessions
}

// SessionManager returns the cookie session manager.
func (sc *ServerContext) SessionManager() *session.Manager {
	return sc.sessionMgr
}

// SetClientFactory overrides how request-scoped Gmail clients are built.
// Used by tests to substitute a fake mail backend.
func (sc *ServerContext) SetClientFactory(factory ClientFactory) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.clientFactory = factory
}

// SetMetrics sets the metrics recorder. A nil recorder disables recording.
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
}

// SetAuditLogger sets the audit logger.
func (sc *ServerContext) SetAuditLogger(audit *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.audit = audit
}

// SetLogger sets the logger used by the handlers.
func (sc *ServerContext) SetLogger(logger *slog.Logger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.logger = logger
}

// MailClientForSession builds a request-scoped Gmail client for the given
// session. The second return value reports whether the session holds a
// refresh token at all; callers treat false as "not authenticated" rather
// than an error.
func (sc *ServerContext) MailClientForSession(ctx context.Context, sessionID string) (MailClient, bool, error) {
	token, ok := sc.sessions.RefreshToken(sessionID)
	if !ok {
		return nil, false, nil
	}

	sc.mu.RLock()
	factory := sc.clientFactory
	sc.mu.RUnlock()

	client, err := factory(ctx, token)
	if err != nil {
		return nil, true, fmt.Errorf("failed to create Gmail client: %w", err)
	}
	return client, true, nil
}

// Metrics returns the metrics recorder, which may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// AuditLogger returns the audit logger, which may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.audit
}

// Logger returns the handler logger.
func (sc *ServerContext) Logger() *slog.Logger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.logger
}

// IsShutdown returns whether the server context has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
