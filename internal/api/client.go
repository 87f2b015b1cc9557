// Package api provides the HTTP client for the chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/channel"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/cristianoliveira/chat-intray/internal/session"
)

// DefaultTimeout is the fixed timeout for backend calls. There is no
// automatic retry; callers receive the error and may re-invoke.
const DefaultTimeout = 10 * time.Second

// Message is a single chat message as returned by the backend.
type Message struct {
	ID        int    `json:"id"`
	ChannelID string `json:"channelid"`
	Title     string `json:"title"`
	Details   string `json:"details"`
	Login     string `json:"login"`
	Username  string `json:"username"`
	SentBy    string `json:"sentby"`
	Timestamp int64  `json:"timestamp"`
}

// Client talks to the chat backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the configured API base URL.
func NewClient() *Client {
	timeout := time.Duration(config.GetInt("http_timeout_seconds", 10)) * time.Second
	return &Client{
		baseURL:    config.Get("api_base_url", ""),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewClientWithBase creates a Client against an explicit base URL.
// Intended for tests.
func NewClientWithBase(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// FetchChannelMessages retrieves the full message list for a channel.
// Used to reconcile state after a server-side mutation without reconnecting.
func (c *Client) FetchChannelMessages(ctx context.Context, creds session.Credentials, channelID string) ([]Message, error) {
	id := channel.Normalize(channelID)
	if id == "" {
		return nil, fmt.Errorf("api: empty channel id")
	}
	endpoint := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("X-Contract-Number", creds.ContractNumber)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: fetch channel messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("api: fetch channel messages: status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Messages []Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("api: decode channel messages: %w", err)
	}
	return payload.Messages, nil
}

// SyncPushToken registers the push token with the backend, keyed by
// contract number and account API key. Reports boolean success and never
// panics past its own boundary.
func (c *Client) SyncPushToken(ctx context.Context, creds session.Credentials, token string) bool {
	if token == "" {
		return false
	}
	body, err := json.Marshal(map[string]string{
		"contractNumber": creds.ContractNumber,
		"accountApiKey":  creds.AccountAPIKey,
		"pushToken":      token,
	})
	if err != nil {
		logging.Error("failed to encode push token payload", "error", err)
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/push-tokens", bytes.NewReader(body))
	if err != nil {
		logging.Error("failed to build push token request", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Warn("push token sync failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Warn("push token sync rejected", "status", resp.StatusCode)
		return false
	}
	return true
}

// RemovePushToken deletes the push token from the backend. Reports boolean
// success.
func (c *Client) RemovePushToken(ctx context.Context, creds session.Credentials, token string) bool {
	if token == "" {
		return false
	}
	endpoint := fmt.Sprintf("%s/push-tokens/%s?contract=%s", c.baseURL, url.PathEscape(token), url.QueryEscape(creds.ContractNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		logging.Error("failed to build push token removal request", "error", err)
		return false
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Warn("push token removal failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logging.Warn("push token removal rejected", "status", resp.StatusCode)
		return false
	}
	return true
}
