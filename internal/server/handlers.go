package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/maildeck/maildeck/internal/gmail"
	"github.com/maildeck/maildeck/internal/instrumentation"
	"github.com/maildeck/maildeck/internal/logging"
)

// oauthState is sent on the authorization redirect. Identity is bound to
// the session cookie rather than the state value, so a constant is used
// and the value is not validated on return.
const oauthState = "state"

type errorResponse struct {
	Error string `json:"error"`
}

// archiveErrorResponse mirrors the error shape the dashboard expects from
// the archive endpoint: the upstream HTTP status and the Gmail API code
// alongside the message.
type archiveErrorResponse struct {
	Error    string `json:"error"`
	HTTPCode int    `json:"httpCode"`
	APICode  int    `json:"apiCode"`
}

type authStatusResponse struct {
	Authenticated bool `json:"authenticated"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeNotAuthenticated(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Not authenticated"})
}

// handleAuthStart redirects the browser to the Google consent page. The
// session cookie is issued here so the callback can find the same session
// after the round trip through the provider.
func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	sessionID, started := s.sc.SessionManager().Resolve(w, r)
	if started {
		s.sc.Logger().Debug("started new session",
			logging.Operation("auth_start"),
			logging.Session(sessionID),
		)
	}
	http.Redirect(w, r, s.sc.oauthConfig.AuthCodeURL(oauthState), http.StatusFound)
}

// handleAuthCallback exchanges the authorization code and stores the
// refresh token for the caller's session. Google only returns a refresh
// token on the first consent; an empty one never clobbers a stored value.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithOperation(s.sc.Logger(), "auth_callback")
	sessionID, _ := s.sc.SessionManager().Resolve(w, r)

	code := r.URL.Query().Get("code")
	if code == "" {
		s.recordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing authorization code"})
		return
	}

	token, err := s.sc.oauthConfig.Exchange(ctx, code)
	if err != nil {
		s.recordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		logger.Error("token exchange failed", logging.Err(err), logging.Session(sessionID))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Failed to exchange authorization code"})
		return
	}

	s.recordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	if token.RefreshToken != "" {
		_, had := s.sc.Sessions().RefreshToken(sessionID)
		s.sc.Sessions().SaveRefreshToken(sessionID, token.RefreshToken)
		logger.Info("stored refresh credential",
			logging.Session(sessionID),
			"token", logging.SanitizeToken(token.RefreshToken),
		)
		if audit := s.sc.AuditLogger(); audit != nil {
			audit.CredentialSaved(ctx, sessionID)
		}
		if m := s.sc.Metrics(); m != nil && !had {
			m.IncrementActiveSessions(ctx)
		}
	}

	http.Redirect(w, r, s.config.FrontendOrigin, http.StatusFound)
}

// handleCheckAuth reports whether the caller's session holds a credential.
func (s *Server) handleCheckAuth(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := s.sc.SessionManager().Resolve(w, r)
	_, ok := s.sc.Sessions().RefreshToken(sessionID)
	writeJSON(w, http.StatusOK, authStatusResponse{Authenticated: ok})
}

// handleLogout drops all server-side state for the caller's session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, _ := s.sc.SessionManager().Resolve(w, r)

	_, had := s.sc.Sessions().RefreshToken(sessionID)
	s.sc.Sessions().Clear(sessionID)

	if audit := s.sc.AuditLogger(); audit != nil && had {
		audit.CredentialCleared(ctx, sessionID)
	}
	if m := s.sc.Metrics(); m != nil && had {
		m.DecrementActiveSessions(ctx)
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleListMessages returns summaries for the newest inbox messages.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := s.sc.SessionManager().Resolve(w, r)

	client, authed, err := s.sc.MailClientForSession(r.Context(), sessionID)
	if !authed {
		writeNotAuthenticated(w)
		return
	}
	if err != nil {
		s.sc.Logger().Error("client construction failed", logging.Operation("list"), logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	ctx, span := instrumentation.StartGmailSpan(r.Context(), instrumentation.OperationList)
	defer span.End()

	start := time.Now()
	summaries, err := client.ListInbox(ctx, gmail.DefaultMaxResults)
	s.recordGmailOperation(ctx, instrumentation.OperationList, start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.writeGmailError(w, "list", err)
		return
	}
	instrumentation.SetSpanSuccess(span)

	writeJSON(w, http.StatusOK, summaries)
}

// handleGetMessage returns the full detail for one message.
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := s.sc.SessionManager().Resolve(w, r)
	id := r.PathValue("id")

	client, authed, err := s.sc.MailClientForSession(r.Context(), sessionID)
	if !authed {
		writeNotAuthenticated(w)
		return
	}
	if err != nil {
		s.sc.Logger().Error("client construction failed", logging.Operation("get"), logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	ctx, span := instrumentation.StartGmailSpan(r.Context(), instrumentation.OperationGet,
		attribute.String(instrumentation.SpanAttrMessageID, id))
	defer span.End()

	start := time.Now()
	detail, err := client.GetMessage(ctx, id)
	s.recordGmailOperation(ctx, instrumentation.OperationGet, start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		s.writeGmailError(w, "get", err)
		return
	}
	instrumentation.SetSpanSuccess(span)

	writeJSON(w, http.StatusOK, detail)
}

// handleArchiveMessage removes a message from the inbox.
func (s *Server) handleArchiveMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := s.sc.SessionManager().Resolve(w, r)
	id := r.PathValue("id")

	client, authed, err := s.sc.MailClientForSession(r.Context(), sessionID)
	if !authed {
		writeNotAuthenticated(w)
		return
	}
	if err != nil {
		s.sc.Logger().Error("client construction failed", logging.Operation("archive"), logging.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	ctx, span := instrumentation.StartGmailSpan(r.Context(), instrumentation.OperationArchive,
		attribute.String(instrumentation.SpanAttrMessageID, id))
	defer span.End()

	start := time.Now()
	err = client.Archive(ctx, id)
	s.recordGmailOperation(ctx, instrumentation.OperationArchive, start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		apiErr := gmail.TranslateError(err)
		s.sc.Logger().Warn("archive failed",
			logging.Operation("archive"),
			logging.MessageID(id),
			logging.Err(err),
		)
		writeJSON(w, apiErr.HTTPStatus, archiveErrorResponse{
			Error:    apiErr.Message,
			HTTPCode: apiErr.HTTPStatus,
			APICode:  apiErr.APICode,
		})
		return
	}
	instrumentation.SetSpanSuccess(span)

	if audit := s.sc.AuditLogger(); audit != nil {
		audit.MessageArchived(ctx, sessionID, id)
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// writeGmailError translates an upstream failure into the response the
// dashboard expects on the read endpoints: the upstream status is passed
// through with a plain error message.
func (s *Server) writeGmailError(w http.ResponseWriter, operation string, err error) {
	apiErr := gmail.TranslateError(err)
	s.sc.Logger().Warn("gmail operation failed",
		logging.Operation(operation),
		logging.Status(logging.StatusError),
		logging.Err(err),
	)
	writeJSON(w, apiErr.HTTPStatus, errorResponse{Error: apiErr.Message})
}

func (s *Server) recordGmailOperation(ctx context.Context, operation string, start time.Time, err error) {
	m := s.sc.Metrics()
	if m == nil {
		return
	}
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	m.RecordGmailOperation(ctx, operation, status, time.Since(start))
}

func (s *Server) recordOAuthAuth(ctx context.Context, result string) {
	if m := s.sc.Metrics(); m != nil {
		m.RecordOAuthAuth(ctx, result)
	}
}
