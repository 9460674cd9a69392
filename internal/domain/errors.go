package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUpstreamRateLimited signals an exhausted upstream query quota.
	ErrUpstreamRateLimited = errors.New("upstream rate limited")
	// ErrUpstreamService signals any other upstream failure.
	ErrUpstreamService = errors.New("upstream service error")
	// ErrSessionNotFound signals a missing or expired chat session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRequest signals a malformed inbound request.
	ErrInvalidRequest = errors.New("invalid request")
)

// QuotaExceededMessage is the message the search service returns once the
// free monthly query allowance is used up.
const QuotaExceededMessage = "Number of free queries per month exceeded"

// RateLimitError wraps ErrUpstreamRateLimited. Upstream provides no retry-after hint.
type RateLimitError struct {
	Service string
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Service, ErrUpstreamRateLimited.Error(), e.Message)
}

func (e *RateLimitError) Unwrap() error { return ErrUpstreamRateLimited }

// UpstreamError wraps ErrUpstreamService with the status code supplied by the service.
type UpstreamError struct {
	Service string
	Code    int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s %d: %s", e.Service, ErrUpstreamService.Error(), e.Code, e.Message)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstreamService }

// UpstreamFailure maps an upstream error shape to a typed error.
// code <= 0 means the service supplied none; 500 is used instead.
func UpstreamFailure(service string, code int, message string) error {
	if IsQuotaExceeded(message) {
		return &RateLimitError{Service: service, Message: message}
	}
	if code <= 0 {
		code = http.StatusInternalServerError
	}
	return &UpstreamError{Service: service, Code: code, Message: message}
}

// IsQuotaExceeded reports whether message is the search service quota message.
func IsQuotaExceeded(message string) bool {
	return strings.EqualFold(strings.TrimSpace(message), QuotaExceededMessage)
}
