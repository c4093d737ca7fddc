// Package line is a thin client for the LINE Messaging API and its webhook
// wire formats.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lipo-out/linebot/internal/model"
)

const defaultBaseURL = "https://api.line.me/v2/bot"

// APIError is a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line API error: status %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a platform 404, e.g. a profile lookup
// for a user who has not added the bot as a contact.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client calls the LINE Messaging API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new platform client.
func NewClient(channelAccessToken string, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     defaultBaseURL,
		accessToken: channelAccessToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReplyMessage sends messages in response to a reply token. The token is
// single-use; callers must not reuse it.
func (c *Client) ReplyMessage(ctx context.Context, replyToken string, messages ...Message) error {
	body := map[string]any{
		"replyToken": replyToken,
		"messages":   messages,
	}
	return c.post(ctx, "/message/reply", body)
}

// PushMessage sends messages to a user, group or room without a reply token.
func (c *Client) PushMessage(ctx context.Context, to string, messages ...Message) error {
	body := map[string]any{
		"to":       to,
		"messages": messages,
	}
	return c.post(ctx, "/message/push", body)
}

// GetProfile fetches the display profile of a user. Returns a 404 APIError
// for users who have not added the bot as a contact.
func (c *Client) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	resp, err := c.do(ctx, http.MethodGet, "/profile/"+userID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var profile model.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &profile, nil
}

// GetMessageContent downloads the binary content of a message, e.g. the
// bytes of an image the user sent.
func (c *Client) GetMessageContent(ctx context.Context, messageID string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/message/"+messageID+"/content", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message content: %w", err)
	}
	return data, nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("line API request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	return resp, nil
}
