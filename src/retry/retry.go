// Package retry provides the bounded retry policy applied to model calls.
// Only rate-limit responses are retried; everything else fails fast.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	ollama "github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

const (
	// DefaultMaxAttempts is the total attempt budget (1 initial + 2 retries).
	DefaultMaxAttempts = 3

	// DefaultDelay is the fixed wait between attempts. No jitter, no backoff.
	DefaultDelay = 2 * time.Second
)

// ErrRateLimited marks an error as a rate-limit signal. Useful for stub
// models and for callers that classify upstream errors themselves.
var ErrRateLimited = errors.New("rate limited")

// Policy is a bounded fixed-interval retry policy.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool

	// sleep is swapped out in tests to observe delays without waiting.
	sleep func(context.Context, time.Duration) error
}

// Default returns the policy the submission pipeline ships with:
// three attempts, two seconds apart, retrying only on rate limits.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		Retryable:   IsRateLimit,
	}
}

// Do runs fn until it succeeds, a non-retryable error occurs, or the attempt
// budget is spent. The last error is returned unwrapped so callers can still
// classify it.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	delay := p.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRateLimit
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= attempts || !retryable(err) {
			return err
		}
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

// DoValue is Do for functions that produce a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// IsRateLimit reports whether err carries an HTTP 429 from any of the
// supported providers, or wraps ErrRateLimited.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	var oerr *openai.APIError
	if errors.As(err, &oerr) {
		return oerr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var aerr *anthropic.Error
	if errors.As(err, &aerr) {
		return aerr.StatusCode == http.StatusTooManyRequests
	}
	var serr ollama.StatusError
	if errors.As(err, &serr) {
		return serr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
