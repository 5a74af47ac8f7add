// Package upstream wraps outbound HTTP calls to weather and vegetation
// services with a circuit breaker and exponential backoff retries.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/couchcryptid/smart-irrigation-service/internal/domain"
)

// RetryPolicy bounds the retries of a single call.
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used for third-party APIs.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      2,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// StatusError is a non-2xx response that was not retried.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Caller executes GET requests through a named circuit breaker. Responses
// with status 429 or 5xx, and transport errors, count as failures and are
// retried. Other non-2xx statuses fail immediately with a *StatusError.
type Caller struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	policy    RetryPolicy
	userAgent string
}

// Option configures a Caller.
type Option func(*Caller)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Caller) { c.policy = p }
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Caller) { c.userAgent = ua }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Caller) { c.client = hc }
}

// New builds a Caller whose breaker opens after five consecutive failures
// and half-opens after 30 seconds.
func New(name string, timeout time.Duration, opts ...Option) *Caller {
	c := &Caller{
		client:    &http.Client{Timeout: timeout},
		policy:    DefaultRetryPolicy(),
		userAgent: "smart-irrigation-service",
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var se *StatusError
			// Client errors are the caller's fault, not the upstream's.
			return err == nil || (errors.As(err, &se) && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests)
		},
	})
	return c
}

// Get fetches rawURL and returns the response body of a 2xx response.
// Exhausted retries and an open breaker are reported as
// domain.ErrUpstreamUnavailable.
func (c *Caller) Get(ctx context.Context, rawURL string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.policy.InitialInterval
	bo.MaxInterval = c.policy.MaxInterval
	bo.MaxElapsedTime = 0

	var body []byte
	op := func() error {
		b, err := c.breaker.Execute(func() ([]byte, error) {
			return c.do(ctx, rawURL)
		})
		if err != nil {
			var se *StatusError
			switch {
			case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
				return backoff.Permanent(err)
			case errors.As(err, &se) && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests:
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(max(0, c.policy.MaxRetries))), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrUpstreamUnavailable, c.breaker.Name(), err)
	}
	return body, nil
}

// State reports the breaker state, for readiness and logging.
func (c *Caller) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Caller) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
