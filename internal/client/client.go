package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/voicenav/voice-gateway/internal/command"
	"github.com/voicenav/voice-gateway/internal/store"
)

// Client talks to the gateway's history and interpret endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// APIError is a non-2xx reply from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// ListTranscriptions returns the most recent transcriptions.
func (c *Client) ListTranscriptions(ctx context.Context, limit int) ([]store.TranscriptionRecord, error) {
	path := "/api/transcriptions"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []store.TranscriptionRecord
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClearTranscriptions deletes every stored transcription.
func (c *Client) ClearTranscriptions(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/transcriptions", nil, nil)
}

// Interpret asks the gateway to resolve text with its command table.
func (c *Client) Interpret(ctx context.Context, text string) (command.Action, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return command.Action{}, err
	}
	var action command.Action
	err = c.do(ctx, http.MethodPost, "/api/interpret", strings.NewReader(string(body)), &action)
	return action, err
}

// Health checks the gateway's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
