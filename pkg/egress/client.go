package egress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client posts processed messages to the upstream push gateway and deletes
// originals after a repost. Deletion requires an admin-level token; without
// one replace semantics degrade to duplicate semantics and the caller should
// not ask for deletes.
type Client struct {
	baseURL    string
	appToken   string
	adminToken string
	client     *http.Client
}

// Config holds egress client settings
type Config struct {
	BaseURL    string
	AppToken   string
	AdminToken string
	Timeout    time.Duration
}

// New creates an egress client
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		appToken:   cfg.AppToken,
		adminToken: cfg.AdminToken,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// postPayload is the gateway message body
type postPayload struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// Post delivers one message to the gateway. Failures are returned, not
// retried; the producer-side reconnect backoff is the only retry path.
func (c *Client) Post(ctx context.Context, title, message string, priority int) error {
	body, err := json.Marshal(postPayload{Title: title, Message: message, Priority: priority})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/message?token=%s", c.baseURL, c.appToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // nothing to do with close error

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post message: gateway returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}

// CanDelete reports whether an admin token is configured for deletes
func (c *Client) CanDelete() bool { return c.adminToken != "" }

// Delete removes an original message by id after a successful repost
func (c *Client) Delete(ctx context.Context, id int64) error {
	if c.adminToken == "" {
		return fmt.Errorf("delete requires admin token")
	}

	url := fmt.Sprintf("%s/message/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	req.Header.Set("X-Gotify-Key", c.adminToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete message %d: %w", id, err)
	}
	defer resp.Body.Close() //nolint:errcheck // nothing to do with close error

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete message %d: gateway returned %d", id, resp.StatusCode)
	}
	return nil
}
