package gmail

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	// DefaultMaxResults is how many inbox messages a list fetches when the
	// caller does not say otherwise.
	DefaultMaxResults = 10

	// inboxLabel is the Gmail system label the dashboard lists and archives
	// against.
	inboxLabel = "INBOX"

	// listConcurrency bounds the per-message metadata fan-out. Lists are
	// capped at a handful of messages, so a small pool is plenty.
	listConcurrency = 5
)

// Client wraps the Gmail Users service with a per-session credential.
// It is built per request and must not be shared across requests.
type Client struct {
	svc    *gmail.UsersService
	logger *slog.Logger
}

// NewClient creates a request-scoped Gmail client from the application OAuth
// configuration and the session's refresh credential.
//
// No network round-trip happens here: the token source exchanges the refresh
// credential for a short-lived access token lazily, on the first API call,
// and the oauth2 transport handles re-exchange when it expires.
func NewClient(ctx context.Context, conf *oauth2.Config, refreshToken string) (*Client, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}

	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	httpClient := oauth2.NewClient(ctx, ts)

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:    svc.Users,
		logger: slog.Default(),
	}, nil
}

// ListInbox lists up to maxResults inbox messages, most recent first (the
// provider's default ordering, which we do not re-sort).
//
// This is an N+1 fan-out: one list call for the identifiers, then one
// metadata fetch per identifier. The fetches run concurrently through a
// bounded errgroup, writing into position-indexed slots so the returned
// order always matches the identifier order from the list call regardless
// of completion order.
func (c *Client) ListInbox(ctx context.Context, maxResults int64) ([]MessageSummary, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	res, err := c.svc.Messages.List("me").
		LabelIds(inboxLabel).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox messages: %w", err)
	}

	// Zero identifiers is an empty inbox, not an error.
	summaries := make([]MessageSummary, len(res.Messages))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, m := range res.Messages {
		g.Go(func() error {
			msg, err := c.svc.Messages.Get("me", m.Id).
				Format("metadata").
				Context(ctx).
				Do()
			if err != nil {
				return fmt.Errorf("failed to get message %s: %w", m.Id, err)
			}
			summaries[i] = MessageSummary{
				ID:      m.Id,
				From:    headerValue(msg, "From"),
				Subject: headerValue(msg, "Subject"),
				Date:    headerValue(msg, "Date"),
				Snippet: msg.Snippet,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summaries, nil
}

// GetMessage fetches a single message and decodes its body. The id is passed
// to the provider unvalidated; an unknown id surfaces as the provider's
// not-found error.
func (c *Client) GetMessage(ctx context.Context, id string) (*MessageDetail, error) {
	msg, err := c.svc.Messages.Get("me", id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	return &MessageDetail{
		ID:      id,
		From:    headerValue(msg, "From"),
		Subject: headerValue(msg, "Subject"),
		Date:    headerValue(msg, "Date"),
		Body:    BodyText(msg.Payload),
	}, nil
}

// Archive removes the INBOX label from a message. The message is re-fetched
// first as an existence and authorization re-check; any failure there
// short-circuits before the mutation.
//
// Archiving is idempotent: removing a label that is not present is a no-op
// on the provider side, so archiving an already-archived message succeeds.
func (c *Client) Archive(ctx context.Context, id string) error {
	if _, err := c.svc.Messages.Get("me", id).Format("minimal").Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to get message %s: %w", id, err)
	}

	_, err := c.svc.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{inboxLabel},
		AddLabelIds:    []string{},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to archive message %s: %w", id, err)
	}

	c.logger.Debug("archived message", "message_id", id)
	return nil
}

// headerValue extracts a header value from a Gmail message by exact,
// case-sensitive name match. The first matching header wins; an absent
// header yields the empty string, never an error.
func headerValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if h.Name == header {
			return h.Value
		}
	}
	return ""
}
