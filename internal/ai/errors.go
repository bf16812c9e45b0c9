// Package ai contains the transports to the external plan generator.
package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jersjar7/Fit14-sub001/internal/planner"
)

// defaultRetryAfter is assumed when a rate limited reply carries no usable Retry-After header.
const defaultRetryAfter = time.Minute

// classifyTransportError maps failures below the HTTP layer to planner errors. Cancellation is passed through
// untouched so that the caller can tell it apart from a network failure.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &planner.NetworkError{Timeout: true, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &planner.NetworkError{Timeout: netErr.Timeout(), Err: err}
	}
	return &planner.NetworkError{Timeout: false, Err: err}
}

// classifyStatus maps a non-2xx reply to a planner error.
func classifyStatus(statusCode int, header http.Header, message string, now time.Time) error {
	if statusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(header.Get("Retry-After"), now)
		return &planner.RateLimitError{RetryAfter: retryAfter, ResetAt: now.Add(retryAfter)}
	}
	if statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout {
		return &planner.NetworkError{Timeout: true, Err: &planner.ServiceError{StatusCode: statusCode, Message: message}}
	}
	return &planner.ServiceError{StatusCode: statusCode, Message: message}
}

// parseRetryAfter accepts delay seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return defaultRetryAfter
}
