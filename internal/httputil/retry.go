// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers for calling the chat backend.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay is the base backoff used when a policy leaves BaseDelay
// unset. Tests override this to avoid real sleeps.
var RetryBaseDelay = time.Second

// MaxRetryDelay caps a single backoff wait.
const MaxRetryDelay = 60 * time.Second

// RetryPolicy describes how often and how patiently to retry.
type RetryPolicy struct {
	// Attempts is the total number of tries. Values below 1 mean one try.
	Attempts int

	// BaseDelay is the wait before the first retry; it doubles each retry.
	BaseDelay time.Duration

	// MaxDelay caps each wait. Zero means MaxRetryDelay.
	MaxDelay time.Duration

	// OnRetry, if set, is called before each backoff wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Backoff returns the wait before retry number n (1-based):
// BaseDelay * 2^(n-1), capped at MaxDelay.
func (p RetryPolicy) Backoff(n int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = RetryBaseDelay
	}
	ceiling := p.MaxDelay
	if ceiling <= 0 {
		ceiling = MaxRetryDelay
	}
	if n < 1 {
		n = 1
	}
	d := time.Duration(math.Pow(2, float64(n-1)) * float64(base))
	if d > ceiling || d <= 0 {
		return ceiling
	}
	return d
}

// Retry calls fn until it succeeds, the attempt budget is spent, or ctx
// is done. Each attempt re-runs fn from scratch. The last error is
// returned wrapped with the attempt count.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return err
		}
		if attempt >= attempts {
			break
		}

		wait := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	if attempts == 1 {
		return err
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

// PostJSON marshals payload, POSTs it to url with the given headers and
// returns the status code and the full response body. Non-2xx statuses
// are not errors here; callers decide.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, data, nil
}
