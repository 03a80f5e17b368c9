package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/maildeck/maildeck/internal/google"
	"github.com/maildeck/maildeck/internal/instrumentation"
	"github.com/maildeck/maildeck/internal/server"
	"github.com/maildeck/maildeck/internal/session"
)

// serveOptions holds the configuration for the serve command
type serveOptions struct {
	Debug              bool
	HTTPAddr           string
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
	FrontendOrigin     string
	SessionTimeout     time.Duration
	MetricsEnabled     bool
	MetricsAddr        string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard mail proxy",
		Long: `Start the HTTP backend that the dashboard frontend talks to.

The server binds a delegated Gmail refresh credential to an anonymous
browser session (cookie-based) and proxies inbox list, message read and
archive operations to the Gmail API with that credential.

OAuth Configuration:
  Application credentials are required:
    --google-client-id and --google-client-secret flags
    OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars

  The redirect URL must match an authorized redirect URI of the Google
  OAuth client:
    --redirect-url OR MAILDECK_REDIRECT_URL env var

Sessions:
  Sessions are in-memory and expire after the idle timeout
  (--session-timeout, default 12h). A restart logs everyone out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.HTTPAddr, "http-addr", ":5083", "HTTP server address")
	cmd.Flags().StringVar(&opts.GoogleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&opts.GoogleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&opts.RedirectURL, "redirect-url", "http://localhost:5083/api/gmail/auth/callback", "OAuth redirect URL. Can also use MAILDECK_REDIRECT_URL env var.")
	cmd.Flags().StringVar(&opts.FrontendOrigin, "frontend-origin", "http://localhost:3000", "Origin of the dashboard frontend, used for CORS and the post-auth redirect. Can also use MAILDECK_FRONTEND_ORIGIN env var.")
	cmd.Flags().DurationVar(&opts.SessionTimeout, "session-timeout", session.DefaultIdleTimeout, "Idle timeout after which a session (and its credential) is dropped. Can also use MAILDECK_SESSION_TIMEOUT env var.")
	cmd.Flags().BoolVar(&opts.MetricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnvVars fills in options from environment variables when the
// corresponding flag was left at its default.
func loadServeEnvVars(cmd *serveOptions) {
	if cmd.GoogleClientID == "" {
		cmd.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if cmd.GoogleClientSecret == "" {
		cmd.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
	if v := os.Getenv("MAILDECK_REDIRECT_URL"); v != "" {
		cmd.RedirectURL = v
	}
	if v := os.Getenv("MAILDECK_FRONTEND_ORIGIN"); v != "" {
		cmd.FrontendOrigin = v
	}
	if v := os.Getenv("MAILDECK_SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cmd.SessionTimeout = d
		} else {
			log.Printf("Warning: invalid MAILDECK_SESSION_TIMEOUT value %q, using %s", v, cmd.SessionTimeout)
		}
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cmd.MetricsAddr = v
	}
	if os.Getenv("METRICS_ENABLED") == "false" {
		cmd.MetricsEnabled = false
	}
}

func runServe(opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loadServeEnvVars(&opts)

	// Configure structured logging
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	googleConfig := google.Config{
		ClientID:     opts.GoogleClientID,
		ClientSecret: opts.GoogleClientSecret,
		RedirectURL:  opts.RedirectURL,
	}
	if err := googleConfig.Validate(); err != nil {
		return fmt.Errorf("invalid Google OAuth configuration: %w", err)
	}

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during instrumentation shutdown: %v", err)
		}
	}()

	// Start metrics server if enabled
	var metricsServer *server.MetricsServer
	if opts.MetricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.MetricsAddr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			slog.Info("Metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	// Session store holds the per-browser refresh credentials
	sessionStore := session.NewStoreWithLogger(opts.SessionTimeout, slog.Default())
	defer sessionStore.Stop()

	serverContext, err := server.NewServerContext(shutdownCtx, googleConfig, sessionStore)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	if provider.Enabled() {
		metrics := provider.Metrics()
		serverContext.SetMetrics(metrics)
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging))
		sessionStore.SetEvictionHook(func(droppedWithCredential int) {
			for i := 0; i < droppedWithCredential; i++ {
				metrics.DecrementActiveSessions(context.Background())
			}
		})
	}
	defer func() {
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			log.Printf("Error during server context shutdown: %v", err)
		}
	}()

	srv := server.New(server.Config{
		Addr:           opts.HTTPAddr,
		FrontendOrigin: opts.FrontendOrigin,
	}, serverContext)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting maildeck server", "addr", opts.HTTPAddr, "frontend_origin", opts.FrontendOrigin)
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-shutdownCtx.Done():
		slog.Info("Shutting down")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := srv.Shutdown(stopCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	}
}
