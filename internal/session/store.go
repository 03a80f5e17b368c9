package session

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// RefreshTokenKey is the fixed session key under which the delegated
	// Gmail refresh credential is stored. A second successful authorization
	// overwrites the value stored here.
	RefreshTokenKey = "gmail_modify_refreshToken"

	// DefaultIdleTimeout is how long a session survives without being
	// touched before the cleanup sweep drops it.
	DefaultIdleTimeout = 12 * time.Hour

	// cleanupInterval is how often the background sweep runs.
	cleanupInterval = 10 * time.Minute
)

// sessionData tracks the values and last access time of one session
type sessionData struct {
	values     map[string]string
	lastAccess time.Time
}

// Store is an in-memory session store keyed by session ID. All state a
// session carries lives here; there is no persistence, so a process restart
// logs every browser out.
type Store struct {
	sessions      map[string]*sessionData
	mu            sync.RWMutex
	cleanupTicker *time.Ticker
	cleanupDone   chan bool
	idleTimeout   time.Duration
	logger        *slog.Logger
	onEvict       func(droppedWithCredential int)
}

// NewStore creates a session store with the default idle timeout and logger.
func NewStore() *Store {
	return NewStoreWithLogger(DefaultIdleTimeout, slog.Default())
}

// NewStoreWithLogger creates a session store with a custom idle timeout and logger.
func NewStoreWithLogger(idleTimeout time.Duration, logger *slog.Logger) *Store {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		sessions:      make(map[string]*sessionData),
		cleanupTicker: time.NewTicker(cleanupInterval),
		cleanupDone:   make(chan bool),
		idleTimeout:   idleTimeout,
		logger:        logger,
	}

	// Start cleanup goroutine
	go s.cleanupExpiredSessions()

	return s
}

// Get returns the value stored under key for the given session. The second
// return value is false when the session or the key is absent; absence is a
// normal state, not an error. A hit refreshes the session's last access time.
func (s *Store) Get(sessionID, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[sessionID]
	if !ok {
		return "", false
	}
	data.lastAccess = time.Now()

	value, ok := data.values[key]
	return value, ok
}

// Set stores a value under key for the given session, creating the session
// state on first use.
func (s *Store) Set(sessionID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.sessions[sessionID]
	if !ok {
		data = &sessionData{values: make(map[string]string)}
		s.sessions[sessionID] = data
	}
	data.values[key] = value
	data.lastAccess = time.Now()
}

// Clear removes all state for the given session, not just the credential.
// Used by logout.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// SaveRefreshToken stores the delegated refresh credential for a session.
// An empty credential is a no-op: the provider only returns a refresh token
// on the first consent, and an empty value must not clobber a stored one.
func (s *Store) SaveRefreshToken(sessionID, token string) {
	if token == "" {
		return
	}
	s.Set(sessionID, RefreshTokenKey, token)
}

// RefreshToken returns the session's stored refresh credential, if any.
func (s *Store) RefreshToken(sessionID string) (string, bool) {
	return s.Get(sessionID, RefreshTokenKey)
}

// SetEvictionHook registers fn to run after each cleanup sweep that drops
// idle sessions. fn receives the number of dropped sessions that still held
// a refresh credential, so callers can keep gauges accurate. Must be set
// before the store sees traffic.
func (s *Store) SetEvictionHook(fn func(droppedWithCredential int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// cleanupExpiredSessions periodically removes idle sessions
func (s *Store) cleanupExpiredSessions() {
	for {
		select {
		case <-s.cleanupTicker.C:
			s.removeExpired()
		case <-s.cleanupDone:
			return
		}
	}
}

// removeExpired drops every session idle for longer than the timeout.
func (s *Store) removeExpired() {
	s.mu.Lock()
	now := time.Now()
	expiredCount := 0
	withCredential := 0
	for sessionID, data := range s.sessions {
		if now.Sub(data.lastAccess) > s.idleTimeout {
			if _, ok := data.values[RefreshTokenKey]; ok {
				withCredential++
			}
			delete(s.sessions, sessionID)
			expiredCount++
		}
	}
	onEvict := s.onEvict
	s.mu.Unlock()
	if expiredCount > 0 {
		s.logger.Info("Cleaned up expired sessions", "count", expiredCount)
		if onEvict != nil && withCredential > 0 {
			onEvict(withCredential)
		}
	}
}

// Stop stops the session cleanup goroutine.
func (s *Store) Stop() {
	if s.cleanupTicker != nil {
		s.cleanupTicker.Stop()
	}
	if s.cleanupDone != nil {
		close(s.cleanupDone)
	}
}
