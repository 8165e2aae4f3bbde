package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// client issues authenticated JSON requests through a circuit breaker.
// It holds no mutable state of its own; http.Client and the breaker are
// safe for concurrent use.
type client struct {
	authHeader string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func newClient(apiKey string, timeout time.Duration, httpClient *http.Client) *client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &client{
		authHeader: "Bearer " + apiKey,
		httpClient: httpClient,
		breaker:    newBreaker(),
	}
}

// newBreaker trips after five consecutive failures and lets one call through after
// thirty seconds. It never retries a call.
func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "airtable",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: healthy,
	})
}

// healthy reports whether err leaves the remote looking up. Client-side
// rejections (4xx other than 429) and caller cancellation say nothing about
// its health.
func healthy(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// get issues a GET and decodes the JSON response into out.
func (c *client) get(ctx context.Context, url string, out any) error {
	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// post marshals in and issues a POST; the response body is discarded.
func (c *client) post(ctx context.Context, url string, in any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, url, payload)
	return err
}

func (c *client) delete(ctx context.Context, url string) error {
	_, err := c.do(ctx, http.MethodDelete, url, nil)
	return err
}

// do runs one HTTP round trip through the breaker.
func (c *client) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, url, payload)
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (c *client) roundTrip(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
