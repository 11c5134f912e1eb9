// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Use a tiny base delay so tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
}

func TestRetry_ImmediateSuccess(t *testing.T) {
	var calls int32
	err := Retry(context.Background(), RetryPolicy{Attempts: 3}, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
}

func TestRetry_FailsThenSucceeds(t *testing.T) {
	var calls int32
	var waits []time.Duration
	p := RetryPolicy{
		Attempts: 3,
		OnRetry: func(_ int, _ error, wait time.Duration) {
			waits = append(waits, wait)
		},
	}
	err := Retry(context.Background(), p, func(context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("still broken")
	var calls int32
	err := Retry(context.Background(), RetryPolicy{Attempts: 4}, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return sentinel
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, int32(4), calls)
}

func TestRetry_ZeroAttemptsMeansOneTry(t *testing.T) {
	var calls int32
	sentinel := errors.New("nope")
	err := Retry(context.Background(), RetryPolicy{}, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return sentinel
	})
	assert.Equal(t, sentinel, err)
	assert.Equal(t, int32(1), calls)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{Attempts: 5, BaseDelay: time.Hour}
	var calls int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := Retry(ctx, p, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls)
}

func TestBackoff(t *testing.T) {
	p := RetryPolicy{BaseDelay: 5 * time.Second}
	tests := []struct {
		n    int
		want time.Duration
	}{
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{4, 40 * time.Second},
		{5, 60 * time.Second},
		{12, 60 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Backoff(tt.n), "retry %d", tt.n)
	}
}

func TestPostJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "v", got["k"])

		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	status, body, err := PostJSON(context.Background(), ts.Client(), ts.URL,
		map[string]string{"Authorization": "Bearer k"}, map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, status)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}
