package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second

	// maxErrorBody bounds how much of a failed response is kept in the error.
	maxErrorBody = 512
)

// OpenAIClient talks to an OpenAI-compatible API. Chat requests go to
// /chat/completions, assistant requests to /responses.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// Option configures an OpenAIClient.
type Option func(*OpenAIClient)

// WithBaseURL sets the base URL of the API.
func WithBaseURL(url string) Option {
	return func(c *OpenAIClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *OpenAIClient) {
		c.client = client
	}
}

// WithTimeout bounds each upstream call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *OpenAIClient) {
		c.timeout = d
	}
}

// NewOpenAIClient creates a client authenticating with apiKey.
func NewOpenAIClient(apiKey string, opts ...Option) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  http.DefaultClient,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts req and returns the raw JSON response. Every failure is an
// *UpstreamError; nothing is retried.
func (c *OpenAIClient) Send(ctx context.Context, req RequestBody) ([]byte, error) {
	if c.apiKey == "" {
		return nil, &ConfigError{Reason: "no api key"}
	}

	path := "/chat/completions"
	if req.Generation() == GenerationAssistant {
		path = "/responses"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &UpstreamError{Message: "send request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: errorMessage(respBody)}
	}
	if !json.Valid(respBody) {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: "response is not JSON"}
	}
	return respBody, nil
}

// errorMessage pulls error.message out of an error body, falling back to the
// truncated raw body.
func errorMessage(body []byte) string {
	var doc struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &doc) == nil && doc.Error.Message != "" {
		return doc.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}

func (c *OpenAIClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
