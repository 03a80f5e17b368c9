// Package google holds the static OAuth application configuration for the
// Gmail proxy and the one-time authorization-code exchange.
//
// Nothing here performs Gmail calls; the package only assembles *oauth2.Config
// values that the gmail package turns into authorized clients.
package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
)

// Config carries the application credentials configured at process start.
// It is immutable after startup; the per-user refresh credential is NOT part
// of it and is supplied per request by the session layer.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Validate checks that the required application credentials are present.
func (c Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client ID is required (set GOOGLE_CLIENT_ID or --google-client-id)")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client secret is required (set GOOGLE_CLIENT_SECRET or --google-client-secret)")
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("redirect URL is required")
	}
	return nil
}

// OAuthConfig returns the OAuth2 configuration for the Gmail proxy.
// The scope is fixed: mailbox read/modify, nothing broader.
func (c Config) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  c.RedirectURL,
		Scopes: []string{
			gmail.GmailModifyScope, // Gmail read/modify (no send, no full mail.google.com)
		},
	}
}

// AuthCodeURL returns the provider consent URL for the authorization
// redirect. access_type=offline requests a refresh token; prompt=consent
// forces the consent screen so a refresh token is returned even when the
// user authorized before.
func (c Config) AuthCodeURL(state string) string {
	return c.OAuthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a token set. The caller is
// responsible for persisting the refresh token; the access token inside the
// returned value is short-lived and not stored anywhere.
func (c Config) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	t, err := c.OAuthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return t, nil
}
