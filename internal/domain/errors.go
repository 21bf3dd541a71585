package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrStaleStatus  = errors.New("stale status transition")
	ErrUndersizable = errors.New("image cannot be shrunk under the size ceiling")
)

// ErrorKind is the generation error taxonomy surfaced to callers. Every
// external-call failure is classified into exactly one kind.
type ErrorKind string

const (
	KindMissingImages      ErrorKind = "MISSING_IMAGES"
	KindInvalidInput       ErrorKind = "INVALID_INPUT"
	KindModerationRejected ErrorKind = "MODERATION_REJECTED"
	KindAPITimeout         ErrorKind = "API_TIMEOUT"
	KindRateLimit          ErrorKind = "RATE_LIMIT"
	KindAPIError           ErrorKind = "API_ERROR"
	KindUnknown            ErrorKind = "UNKNOWN"
)

// HTTPStatus maps an error kind to the status the serving layer emits.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindMissingImages, KindInvalidInput:
		return http.StatusBadRequest
	case KindModerationRejected:
		return http.StatusForbidden
	case KindAPITimeout:
		return http.StatusGatewayTimeout
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindAPIError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the backoff wrapper should retry this kind.
// Moderation rejections and invalid input are terminal.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimit, KindAPITimeout, KindAPIError:
		return true
	default:
		return false
	}
}

// Error is a discriminated generation error carrying its taxonomy kind.
type Error struct {
	Kind      ErrorKind
	Message   string
	RequestID string
	cause     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a taxonomy error with an optional cause.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// AsError coerces any error into a taxonomy error. Typed errors pass
// through unchanged; foreign ones are classified by KindOf.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return &Error{Kind: KindOf(err), Message: err.Error(), cause: err}
}

// KindOf extracts the taxonomy kind from any error, classifying unwrapped
// vendor errors by message as a last resort.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	// A message that round-tripped through Error.Error starts with its kind.
	for _, k := range []ErrorKind{KindMissingImages, KindInvalidInput, KindModerationRejected,
		KindAPITimeout, KindRateLimit, KindAPIError, KindUnknown} {
		if strings.HasPrefix(err.Error(), string(k)) {
			return k
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "moderation") || strings.Contains(msg, "nsfw"):
		return KindModerationRejected
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") || strings.Contains(msg, "quota"):
		return KindRateLimit
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return KindAPITimeout
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "bad request"):
		return KindInvalidInput
	case strings.Contains(msg, "status 5") || strings.Contains(msg, "unavailable"):
		return KindAPIError
	default:
		return KindUnknown
	}
}
