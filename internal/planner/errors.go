package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidInput marks goal data that can't be turned into a prompt.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidResponse marks a generator reply that could not be decoded into a plan.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrSuperseded is returned by a generation that was replaced by a newer one for the same session.
	ErrSuperseded = errors.New("generation superseded by a newer request")
)

// InputError lists the problems with the user's goal data.
type InputError struct {
	Issues []string
}

func (e *InputError) Error() string {
	if len(e.Issues) == 0 {
		return ErrInvalidInput.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(e.Issues, "; "))
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput //nolint:errorlint // sentinel comparison.
}

// NetworkError is a transport failure where the generator could not be reached or did not answer in time.
type NetworkError struct {
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("generator timed out: %v", e.Err)
	}
	return fmt.Sprintf("generator unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError is a failure reported by the generator itself.
type ServiceError struct {
	StatusCode int
	Message    string
}

const genericServiceMessage = "the plan generator could not create a plan"

func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = genericServiceMessage
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("service error (status %d): %s", e.StatusCode, msg)
	}
	return "service error: " + msg
}

// RateLimitError means the generator refuses requests until ResetAt.
type RateLimitError struct {
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "rate limited"
	}
	return "rate limited until " + e.ResetAt.Format(time.RFC3339)
}

// ResponseError wraps a decoding problem of the generator reply.
type ResponseError struct {
	Reason string
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrInvalidResponse, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidResponse, e.Reason)
}

func (e *ResponseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidResponse}
	}
	return []error{ErrInvalidResponse, e.Err}
}

// Kind is the coarse classification of a generation failure that callers use to pick their guidance.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindNetworkFailure  Kind = "network_failure"
	KindServiceError    Kind = "service_error"
	KindRateLimited     Kind = "rate_limited"
	KindInvalidResponse Kind = "invalid_response"
	KindCanceled        Kind = "canceled"
	KindInternal        Kind = "internal"
)

// KindOf classifies err. Rate limits are checked before service errors so that they are never reported as
// retryable server failures.
func KindOf(err error) Kind {
	var (
		inputErr     *InputError
		rateLimitErr *RateLimitError
		networkErr   *NetworkError
		serviceErr   *ServiceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rateLimitErr):
		return KindRateLimited
	case errors.As(err, &inputErr), errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrSuperseded), errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &networkErr), errors.Is(err, context.DeadlineExceeded):
		return KindNetworkFailure
	case errors.As(err, &serviceErr):
		return KindServiceError
	case errors.Is(err, ErrInvalidResponse):
		return KindInvalidResponse
	default:
		return KindInternal
	}
}

// UserMessage is the guidance shown for a failure kind.
func UserMessage(kind Kind) string {
	switch kind {
	case KindInvalidInput:
		return "Tell us a bit more about your fitness goals before generating a plan."
	case KindNetworkFailure:
		return "No internet connection or the request timed out. Check your connection and try again."
	case KindServiceError:
		return "The plan generator is having trouble right now. Please try again in a moment."
	case KindRateLimited:
		return "You've reached the generation limit. Please wait until it resets."
	case KindInvalidResponse:
		return "We received an unexpected plan format. Please try generating again."
	case KindCanceled:
		return "Plan generation was cancelled."
	case KindInternal:
		return "Something went wrong on our side."
	default:
		return "Something went wrong on our side."
	}
}
