// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RetryBaseDelay controls the base duration for exponential backoff between
// attempts. Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

// DefaultMaxAttempts bounds attempts, including the first, when the caller
// passes zero.
const DefaultMaxAttempts = 3

// Retryable reports whether a response status is worth another attempt:
// 429 Too Many Requests and any 5xx.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// DoWithRetry executes an HTTP request and retries transient failures with
// exponential backoff: transport errors, HTTP 429, and HTTP 5xx. The delay
// starts at RetryBaseDelay and doubles on each attempt.
//
// At most maxAttempts requests are made (DefaultMaxAttempts when zero). A
// non-retryable response is returned immediately. After the last attempt the
// final response is returned for the caller to inspect, or the final
// transport error wrapped with the attempt count. Context cancellation during
// a backoff wait returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxAttempts int, log zerolog.Logger) (*http.Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err == nil && !Retryable(resp.StatusCode) {
			return resp, nil
		}
		if ctx.Err() != nil {
			if resp != nil {
				resp.Body.Close()
			}
			return nil, ctx.Err()
		}
		if attempt >= maxAttempts {
			if err != nil {
				return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
			}
			return resp, nil
		}

		event := log.Debug().Str("url", req.URL.String()).Int("attempt", attempt)
		if err != nil {
			event = event.Err(err)
		} else {
			event = event.Int("status", resp.StatusCode)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := time.Duration(math.Pow(2, float64(attempt-1))) * RetryBaseDelay
		event.Dur("backoff", backoff).Msg("transient registry error, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
