// Package scribe provides an HTTP client for the content-generation service
// that writes outreach drafts.
package scribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rainmakerhq/rainmaker/internal/port/generator"
	"github.com/rainmakerhq/rainmaker/internal/resilience"
)

// Client talks to the scribe generation API. It implements
// generator.Generator.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new scribe client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
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

// generateRequest is the scribe API request body.
type generateRequest struct {
	Kind        string                       `json:"kind"`
	Person      generator.PersonContext      `json:"person"`
	Interaction generator.InteractionContext `json:"interaction,omitempty"`
}

// generateResponse is the scribe API response body.
type generateResponse struct {
	Text string `json:"text"`
}

// Generate produces message text for a person and channel kind.
func (c *Client) Generate(ctx context.Context, pc generator.PersonContext, ic generator.InteractionContext, kind string) (string, error) {
	body, err := json.Marshal(generateRequest{Kind: kind, Person: pc, Interaction: ic})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/generate", body)
	if err != nil {
		return "", fmt.Errorf("generate %s draft: %w", kind, err)
	}

	var result generateResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", fmt.Errorf("unmarshal generate response: %w", err)
	}
	if result.Text == "" {
		return "", fmt.Errorf("generate %s draft: empty response", kind)
	}
	return result.Text, nil
}

// Health checks if the scribe service is reachable.
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
			return fmt.Errorf("scribe API error %d: %s", resp.StatusCode, string(data))
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
