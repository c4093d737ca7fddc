// Package backend is a client for the remote user/food persistence service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("backend: not found")

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error: status %d: %s", e.StatusCode, e.Body)
}

// User is a persisted user record.
type User struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Goal       string `json:"goal"`
	LineUserID string `json:"line_user_id"`
}

// NewUser is the payload for creating a user.
type NewUser struct {
	Name       string `json:"name"`
	Goal       string `json:"goal"`
	LineUserID string `json:"line_user_id"`
}

// FoodRecord is the payload for persisting one analyzed meal.
type FoodRecord struct {
	UserID       int     `json:"user_id"`
	FoodAnalysis string  `json:"food_analysis"`
	FoodPhoto    string  `json:"food_photo"`
	Protein      float64 `json:"protein"`
	Carb         float64 `json:"carb"`
	Fat          float64 `json:"fat"`
	Calories     float64 `json:"calories"`
}

// Client calls the persistence backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
	}
}

// FindUserByLineID looks up a user by platform user id. Returns ErrNotFound
// when no user matches.
func (c *Client) FindUserByLineID(ctx context.Context, lineUserID string) (*User, error) {
	query := url.Values{"line_user_id": {lineUserID}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readAPIError(resp)
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

// CreateUser creates a new user record.
func (c *Client) CreateUser(ctx context.Context, user *NewUser) error {
	return c.post(ctx, "/users/", user)
}

// CreateFood persists one analyzed meal.
func (c *Client) CreateFood(ctx context.Context, record *FoodRecord) error {
	return c.post(ctx, "/foods/", record)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
}
