package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GatewayClient talks to a running bridge over its REST routes.
type GatewayClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Msg     string `json:"msg"`
}

type SessionStatus struct {
	SessionID string `json:"sessionId"`
	State     string `json:"state"`
	JID       string `json:"jid"`
}

func NewGatewayClient(baseURL string) *GatewayClient {
	return &GatewayClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *GatewayClient) InitSession(ctx context.Context, sessionID string) (*APIResponse, error) {
	return c.postJSON(ctx, "/whatsapp/init-session", map[string]string{
		"sessionId": sessionID,
	})
}

func (c *GatewayClient) SendMessage(ctx context.Context, sessionID, number, message string) (*APIResponse, error) {
	return c.postJSON(ctx, "/whatsapp/send-message", map[string]string{
		"sessionId": sessionID,
		"number":    number,
		"message":   message,
	})
}

// QR returns the HTML page holding the session's pending QR image.
func (c *GatewayClient) QR(ctx context.Context, sessionID string) (string, error) {
	body, status, err := c.get(ctx, "/whatsapp/qr/"+url.PathEscape(sessionID))
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", apiError(status, body)
	}
	return string(body), nil
}

func (c *GatewayClient) Status(ctx context.Context, sessionID string) (*SessionStatus, error) {
	body, status, err := c.get(ctx, "/whatsapp/status/"+url.PathEscape(sessionID))
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apiError(status, body)
	}

	var st SessionStatus
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}

func (c *GatewayClient) Health(ctx context.Context) (string, error) {
	body, status, err := c.get(ctx, "/whatsapp/health/")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", apiError(status, body)
	}

	var res APIResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("decode health: %w", err)
	}
	return res.Msg, nil
}

func (c *GatewayClient) postJSON(ctx context.Context, path string, payload interface{}) (*APIResponse, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}

	var res APIResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

func (c *GatewayClient) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func apiError(status int, body []byte) error {
	var res APIResponse
	if err := json.Unmarshal(body, &res); err == nil && res.Error != "" {
		return fmt.Errorf("gateway returned %d: %s", status, res.Error)
	}
	return fmt.Errorf("gateway returned %d: %s", status, strings.TrimSpace(string(body)))
}
