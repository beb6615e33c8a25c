package httpretry

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Policy bounds retries on outbound adapter calls. Retries are restricted to
// transient failures: network errors, timeouts, 429 and 5xx responses.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond}
}

// Retryable reports whether a status code is worth another attempt.
func Retryable(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

// Do executes the request returned by build, retrying with exponential
// backoff. build is called once per attempt because a consumed request body
// cannot be replayed. The last response or error is returned once attempts
// are exhausted; non-retryable responses return immediately.
func Do(ctx context.Context, client *http.Client, p Policy, build func() (*http.Request, error)) (*http.Response, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay * (1 << (attempt - 1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req = req.WithContext(ctx)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if !Retryable(resp.StatusCode) {
			return resp, nil
		}
		resp.Body.Close()
		lastErr = fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", p.MaxAttempts, lastErr)
}
