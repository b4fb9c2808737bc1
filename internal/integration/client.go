// Package integration classifies failures of outbound calls to external
// systems and provides a retrying HTTP client built on that classification.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"fieldledger/internal/integration/metrics"
)

// maxBodyRead bounds how much of a response body the client reads. Responses
// larger than this are truncated in the retained raw response.
const maxBodyRead = 1 << 20

// Client calls a single external service. Failed calls are classified into
// faults and retried when the fault kind allows it.
type Client struct {
	name       string
	baseURL    string
	token      string
	httpClient *http.Client
	backoff    Backoff
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

func WithBackoff(backoff Backoff) ClientOption {
	return func(c *Client) {
		c.backoff = backoff
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithClientMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient constructs a client for the named external service. An empty
// base URL is a configuration fault, not a runtime one.
func NewClient(name, baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: %s base URL is required", ErrConfiguration, name)
	}

	c := &Client{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		backoff:    DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body and decodes the response
// into out. A nil out discards the response body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
	}

	endpoint := c.baseURL + path
	err := c.backoff.Do(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 1 && c.metrics != nil {
			c.metrics.IncrementRetries()
		}
		if c.metrics != nil {
			c.metrics.IncrementCalls(path)
		}
		return c.call(ctx, method, endpoint, payload, out, attempt)
	})
	if err != nil {
		if fault, ok := AsFault(err); ok {
			if c.metrics != nil {
				c.metrics.IncrementFaults(string(fault.Kind))
			}
			if c.logger != nil {
				c.logger.ErrorContext(ctx, "integration call failed",
					"service", c.name,
					"endpoint", endpoint,
					"kind", fault.Kind,
					"status", fault.StatusCode,
					"attempt", fault.Attempt,
					"retryable", fault.Retryable(),
				)
			}
		}
		return err
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, endpoint string, payload []byte, out any, attempt int) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return Classify(fmt.Errorf("%w: %v", ErrConfiguration, err), CallContext{Endpoint: endpoint, Attempt: attempt})
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Classify(err, CallContext{Endpoint: endpoint, Attempt: attempt})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
	if err != nil {
		return Classify(err, CallContext{Endpoint: endpoint, Attempt: attempt, StatusCode: resp.StatusCode})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Classify(
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			CallContext{Endpoint: endpoint, Attempt: attempt, StatusCode: resp.StatusCode, RawResponse: raw},
		)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return Classify(
				fmt.Errorf("%w: %v", ErrMalformedResponse, err),
				CallContext{Endpoint: endpoint, Attempt: attempt, StatusCode: resp.StatusCode, RawResponse: raw},
			)
		}
	}
	return nil
}

// AsFault unwraps an error to its classified fault, if any.
func AsFault(err error) (*Fault, bool) {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault, true
	}
	return nil, false
}
