package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	bodySnippetLimit      = 160
)

// StatusError is a non-2xx response from one of the AI services.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request: http %d: %s", e.Service, e.StatusCode, e.Body)
}

// Transient reports whether the status is worth another attempt.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// NewStatusError captures status, Retry-After and a body snippet from resp.
func NewStatusError(service string, resp *http.Response, body []byte) *StatusError {
	retryAfter, _ := ParseRetryAfter(resp.Header.Get("Retry-After"))
	return &StatusError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Body:       SummarizeBody(string(body)),
		RetryAfter: retryAfter,
	}
}

// IsTimeout reports whether err is a network timeout.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ClassifyHTTP maps a request failure onto a marker. Auth and missing
// deployment statuses are configuration problems; hint is attached to them.
func ClassifyHTTP(stage, operation, hint string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || IsTimeout(err) {
		return Wrap(ErrTimeout, stage, operation, "request timed out", err)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return Wrap(ErrConfiguration, stage, operation, hint, err)
		}
	}
	return Wrap(ErrExternalTool, stage, operation, "", err)
}

// ParseRetryAfter reads a Retry-After header in seconds or HTTP-date form.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay >= 0 {
			return delay, true
		}
	}
	return 0, false
}

// SummarizeBody collapses whitespace and truncates a response body for errors.
func SummarizeBody(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > bodySnippetLimit {
		clean = string(runes[:bodySnippetLimit]) + "..."
	}
	return clean
}

// Backoff retries service calls with doubling delays. The zero value uses
// three attempts starting at one second and capped at ten.
type Backoff struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Sleeper replaces the context-aware timer, for tests.
	Sleeper func(time.Duration)
}

func (b Backoff) attempts() int {
	if b.Attempts <= 0 {
		return defaultRetryAttempts
	}
	return b.Attempts
}

func (b Backoff) maxDelay() time.Duration {
	if b.MaxDelay <= 0 {
		return defaultRetryMaxDelay
	}
	return b.MaxDelay
}

// Delay returns the wait before retrying after the given attempt:
// base, base*2, base*4, ... up to the cap.
func (b Backoff) Delay(attempt int) time.Duration {
	base := b.BaseDelay
	if base == 0 {
		base = defaultRetryBaseDelay
	}
	if base < 0 {
		return 0
	}
	limit := b.maxDelay()
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > limit/2 {
			return limit
		}
		delay *= 2
	}
	return min(delay, limit)
}

// Retry runs op until it succeeds, shouldRetry declines, attempts run out or
// ctx ends. shouldRetry may return a server-requested delay; zero means use
// the backoff schedule. The last error is returned unchanged.
func (b Backoff) Retry(ctx context.Context, op func(context.Context) error, shouldRetry func(error) (bool, time.Duration)) error {
	attempts := b.attempts()
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if attempt >= attempts || ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		retry, hint := shouldRetry(err)
		if !retry {
			return err
		}
		delay := b.Delay(attempt)
		if hint > 0 {
			delay = min(hint, b.maxDelay())
		}
		if sleepErr := b.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
}

func (b Backoff) sleep(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}
	if b.Sleeper != nil {
		b.Sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
