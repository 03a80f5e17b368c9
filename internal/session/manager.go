package session

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

// CookieName is the name of the session cookie issued to the browser.
const CookieName = "maildeck_session"

// Manager binds the session store to HTTP requests via a cookie. The cookie
// carries only an opaque random ID; all session state stays server-side.
type Manager struct {
	store *Store
}

// NewManager creates a session manager over the given store.
func NewManager(store *Store) *Manager {
	return &Manager{store: store}
}

// Store returns the underlying session store.
func (m *Manager) Store() *Store {
	return m.store
}

// Resolve returns the session ID for the request, issuing a new cookie when
// the request carries none. The second return value is true when a new
// session was started.
//
// The cookie is HttpOnly and SameSite=Lax so the OAuth redirect back from
// the provider still carries it.
func (m *Manager) Resolve(w http.ResponseWriter, r *http.Request) (string, bool) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, false
	}

	id := newSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, true
}

// newSessionID generates a 128-bit random session identifier.
func newSessionID() string {
	b := make([]byte, 16)
	// rand.Read never fails on supported platforms
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
