// Package request performs outbound HTTP calls with retries and per-host
// backoff.
package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"nodedesk/pkg/version"
)

var defaultUserAgent = fmt.Sprintf("nodedesk/%s", version.Version)

// StatusError is returned for non-retryable HTTP error statuses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api error: status %d", e.StatusCode)
}

// ErrMaxRetries is returned when every attempt hit a retryable failure.
var ErrMaxRetries = errors.New("max retries exceeded")

// Client sends requests with exponential backoff on network errors, 429
// and 5xx responses.
type Client struct {
	httpClient  *http.Client
	backoff     *HostBackoff
	maxAttempts int
	baseDelay   time.Duration
	log         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the attempt count and the first retry delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		c.baseDelay = baseDelay
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a new Client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		backoff:     NewHostBackoff(500*time.Millisecond, 30*time.Second),
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Backoff exposes the per-host backoff state.
func (c *Client) Backoff() *HostBackoff {
	return c.backoff
}

// Post sends body to u and returns the response body.
func (c *Client) Post(ctx context.Context, u string, body []byte, headers map[string]string) ([]byte, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	host := parsedURL.Host

	if err := c.backoff.Wait(ctx, host); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.executeWithBackoff(req)
	if err != nil {
		if errors.Is(err, ErrMaxRetries) {
			c.backoff.RecordFailure(host)
		}
		return nil, err
	}
	c.backoff.RecordSuccess(host)
	return resp, nil
}

// executeWithBackoff attempts the request with exponential backoff on retryable errors.
func (c *Client) executeWithBackoff(req *http.Request) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}
		if attempt > 0 && req.GetBody != nil {
			b, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to rewind body: %w", err)
			}
			req.Body = b
		}

		c.log.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, req.Context().Err()
			}
			c.log.Warn("Request failed, retrying", "host", req.URL.Host, "attempt", attempt+1, "error", err)
			lastErr = err
			if err := c.sleep(req.Context(), attempt); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode < 600) {
			resp.Body.Close()
			c.log.Warn("API Backoff", "status", resp.StatusCode, "host", req.URL.Host, "attempt", attempt+1)
			lastErr = &StatusError{StatusCode: resp.StatusCode}
			if err := c.sleep(req.Context(), attempt); err != nil {
				return nil, err
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		if resp.StatusCode >= 400 {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		}
		return body, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrMaxRetries, lastErr)
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	if attempt+1 >= c.maxAttempts {
		return nil
	}
	d := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
