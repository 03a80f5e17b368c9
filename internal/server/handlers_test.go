package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/maildeck/maildeck/internal/gmail"
	"github.com/maildeck/maildeck/internal/google"
	"github.com/maildeck/maildeck/internal/session"
)

// fakeMailClient implements MailClient against in-memory data.
type fakeMailClient struct {
	summaries []gmail.MessageSummary
	detail    *gmail.MessageDetail
	err       error

	archived []string
}

func (f *fakeMailClient) ListInbox(_ context.Context, _ int64) ([]gmail.MessageSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.summaries, nil
}

func (f *fakeMailClient) GetMessage(_ context.Context, id string) (*gmail.MessageDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	d := *f.detail
	d.ID = id
	return &d, nil
}

func (f *fakeMailClient) Archive(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.archived = append(f.archived, id)
	return nil
}

type testHarness struct {
	server  *Server
	sc      *ServerContext
	store   *session.Store
	fake    *fakeMailClient
	handler http.Handler
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	store := session.NewStoreWithLogger(session.DefaultIdleTimeout, slog.Default())
	t.Cleanup(store.Stop)

	sc, err := NewServerContext(context.Background(), google.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:5083/api/gmail/auth/callback",
	}, store)
	require.NoError(t, err)

	fake := &fakeMailClient{}
	sc.SetClientFactory(func(_ context.Context, _ string) (MailClient, error) {
		return fake, nil
	})

	srv := New(Config{
		Addr:           ":0",
		FrontendOrigin: "http://localhost:3000",
	}, sc)

	return &testHarness{
		server:  srv,
		sc:      sc,
		store:   store,
		fake:    fake,
		handler: srv.Handler(),
	}
}

// authedRequest builds a request carrying a session cookie whose session
// already holds a refresh credential.
func (h *testHarness) authedRequest(method, target string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: "test-session"})
	h.store.SaveRefreshToken("test-session", "refresh-token")
	return r
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestAuthStartRedirectsToConsent(t *testing.T) {
	h := newTestHarness(t)

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gmail/auth/start", nil))

	require.Equal(t, http.StatusFound, w.Code)

	loc := w.Header().Get("Location")
	assert.Contains(t, loc, "google.com")
	assert.Contains(t, loc, "access_type=offline")
	assert.Contains(t, loc, "prompt=consent")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1, "auth start must establish the session cookie")
	assert.Equal(t, session.CookieName, cookies[0].Name)
}

func TestAuthCallbackMissingCode(t *testing.T) {
	h := newTestHarness(t)

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gmail/auth/callback", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[errorResponse](t, w)
	assert.Equal(t, "Missing authorization code", resp.Error)
}

func TestCheckAuth(t *testing.T) {
	h := newTestHarness(t)

	// Fresh session: not authenticated.
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gmail/auth/check-auth", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeBody[authStatusResponse](t, w).Authenticated)

	// Session with a stored refresh token: authenticated.
	w = httptest.NewRecorder()
	h.handler.ServeHTTP(w, h.authedRequest(http.MethodGet, "/api/gmail/auth/check-auth"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[authStatusResponse](t, w).Authenticated)
}

func TestLogoutClearsSession(t *testing.T) {
	h := newTestHarness(t)

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, h.authedRequest(http.MethodGet, "/api/gmail/auth/logout"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[successResponse](t, w).Success)

	_, ok := h.store.RefreshToken("test-session")
	assert.False(t, ok, "logout must drop the stored credential")
}

func TestListMessagesRequiresAuth(t *testing.T) {
	h := newTestHarness(t)

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gmail/messages", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Not authenticated", decodeBody[errorResponse](t, w).Error)
}

func TestListMessages(t *testing.T) {
	h := newTestHarness(t)
	h.fake.summaries = []gmail.MessageSummary{
		{ID: "m1", From: "a@example.com", Subject: "first", Date: "d1", Snippet: "s1"},
		{ID: "m2", From: "b@example.com", Subject: "second", Date: "d2", Snippet: "s2"},
	}

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, h.authedRequest(http.MethodGet, "/api/gmail/messages"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	got := decodeBody[[]gmail.MessageSummary](t, w)
	assert.Equal(t, h.fake.summaries, got)
}

func TestGetMessage(t *testing.T) {
	h := newTestHarness(t)
	h.fake.detail = &gmail.MessageDetail{
		From:    "a@example.com",
		Subject: "subject",
		Date:    "date",
		Body:    "body text",
	}

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, h.authedRequest(http.MethodGet, "/api/gmail/messages/abc123"))

	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[gmail.MessageDetail](t, w)
	assert.Equal(t, "abc123", got.ID)
	assert.Equal(t, "body text", got.Body)
}

func TestGetMessageUpstreamStatusPassthrough(t *testing.T) {
	h := newTestHarness(t)
	h.fake.err = &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found."}
	h.fake.detail = &gmail.MessageDetail{}

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, h.authedRequest(http.MethodGet, "/api/gmail/messages/missing"))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, decodeBody[errorResponse](t, w).Error)
}

func TestArchiveMessage(t *testing.T) {
	h := newTestHarness(t)

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, h.authedRequest(http.MethodPost, "/api/gmail/messages/abc123/archive"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[successResponse](t, w).Success)
	assert.Equal(t, []string{"abc123"}, h.fake.archived)
}

func TestArchiveMessageRequiresAuth(t *testing.T) {
	h := newTestHarness(t)

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/gmail/messages/abc123/archive", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, h.fake.archived)
}

func TestArchiveMessageErrorShape(t *testing.T) {
	h := newTestHarness(t)
	h.fake.err = &googleapi.Error{Code: http.StatusNotFound, Message: "Requested entity was not found."}

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, h.authedRequest(http.MethodPost, "/api/gmail/messages/missing/archive"))

	require.Equal(t, http.StatusNotFound, w.Code)

	resp := decodeBody[archiveErrorResponse](t, w)
	assert.Equal(t, http.StatusNotFound, resp.HTTPCode)
	assert.Equal(t, http.StatusNotFound, resp.APICode)
	assert.NotEmpty(t, resp.Error)
}
