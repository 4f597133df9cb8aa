// Package wisecrm provides an HTTP client for the external CRM's sync API.
package wisecrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rainmakerhq/rainmaker/internal/port/crm"
	"github.com/rainmakerhq/rainmaker/internal/resilience"
)

// Client talks to the external CRM API. It implements crm.Syncer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new CRM sync client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// createResponse is the CRM's response to a create call.
type createResponse struct {
	ID string `json:"id"`
}

// CreateNote pushes a note to the CRM and returns its identifier.
func (c *Client) CreateNote(ctx context.Context, p crm.NotePayload) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal note: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/notes", body)
	if err != nil {
		return "", fmt.Errorf("create crm note: %w", err)
	}

	var result createResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", fmt.Errorf("unmarshal crm note response: %w", err)
	}
	return result.ID, nil
}

// CreateTask pushes a task to the CRM and returns its identifier.
func (c *Client) CreateTask(ctx context.Context, p crm.TaskPayload) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/tasks", body)
	if err != nil {
		return "", fmt.Errorf("create crm task: %w", err)
	}

	var result createResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", fmt.Errorf("unmarshal crm task response: %w", err)
	}
	return result.ID, nil
}

// Health checks if the CRM API is reachable.
func (c *Client) Health(ctx context.Context) (bool, error) {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err == nil, err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func(ctx context.Context) error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return fmt.Errorf("crm API error %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(ctx, call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(ctx); err != nil {
		return nil, err
	}
	return result, nil
}
