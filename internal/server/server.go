package server

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultAddr is the default listen address for the API server.
	DefaultAddr = ":5083"

	// DefaultReadHeaderTimeout bounds how long a client may take to send
	// request headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds the full response write. The inbox listing
	// fans out one upstream fetch per message, so this stays generous.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout bounds keep-alive connections.
	DefaultIdleTimeout = 60 * time.Second
)

// Config holds configuration for the API server.
type Config struct {
	// Addr is the address to bind to (default ":5083").
	Addr string

	// FrontendOrigin is the browser dashboard origin allowed by CORS and
	// the target of the post-authorization redirect.
	FrontendOrigin string

	// ReadHeaderTimeout, WriteTimeout and IdleTimeout override the
	// defaults when non-zero.
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// Server is the browser-facing HTTP server.
type Server struct {
	config     Config
	sc         *ServerContext
	health     *HealthChecker
	httpServer *http.Server
}

// New creates a Server over the given context. The returned server is not
// listening yet; call Start.
func New(config Config, sc *ServerContext) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.ReadHeaderTimeout == 0 {
		config.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}

	s := &Server{
		config: config,
		sc:     sc,
		health: NewHealthChecker(sc),
	}

	s.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           s.corsMiddleware(s.routes()),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}

	return s
}

// routes wires up the API and health endpoints.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /api/gmail/auth/start", s.instrumented("/api/gmail/auth/start", s.handleAuthStart))
	mux.Handle("GET /api/gmail/auth/callback", s.instrumented("/api/gmail/auth/callback", s.handleAuthCallback))
	mux.Handle("GET /api/gmail/auth/check-auth", s.instrumented("/api/gmail/auth/check-auth", s.handleCheckAuth))
	mux.Handle("GET /api/gmail/auth/logout", s.instrumented("/api/gmail/auth/logout", s.handleLogout))

	mux.Handle("GET /api/gmail/messages", s.instrumented("/api/gmail/messages", s.handleListMessages))
	mux.Handle("GET /api/gmail/messages/{id}", s.instrumented("/api/gmail/messages/{id}", s.handleGetMessage))
	mux.Handle("POST /api/gmail/messages/{id}/archive", s.instrumented("/api/gmail/messages/{id}/archive", s.handleArchiveMessage))

	s.health.RegisterHealthEndpoints(mux)

	return mux
}

// Handler returns the full handler chain. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Health returns the health checker for readiness toggling.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// Start starts the server in a blocking manner. It returns
// http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server. The readiness probe goes
// unhealthy first so load balancers stop routing before connections drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if err := s.sc.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down server context: %w", err)
	}
	return s.httpServer.Shutdown(ctx)
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// instrumented wraps a handler with request metrics. The route label is the
// registered pattern, not the raw URL path, so message identifiers never
// leak into metric label values.
func (s *Server) instrumented(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := s.sc.Metrics()
		if m == nil {
			h(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(rec, r)
		m.RecordHTTPRequest(r.Context(), r.Method, route, rec.status, time.Since(start))
	})
}

// corsMiddleware implements the dashboard's cross-origin contract: only the
// configured frontend origin is allowed, credentials (the session cookie)
// are permitted, and preflights echo whatever method and headers the
// browser asks for.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && origin == s.config.FrontendOrigin {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions {
				if reqMethod := r.Header.Get("Access-Control-Request-Method"); reqMethod != "" {
					h.Set("Access-Control-Allow-Methods", reqMethod)
				}
				if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
					h.Set("Access-Control-Allow-Headers", reqHeaders)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
