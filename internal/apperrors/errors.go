package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates the resource is in a state that does not allow the operation.
var ErrConflict = errors.New("conflicting resource state")

// ErrForbidden indicates the caller may not act on the resource.
var ErrForbidden = errors.New("forbidden")

// ErrInternal indicates an unexpected failure inside the service.
var ErrInternal = errors.New("internal error")

// ErrExternalService indicates that a remote collaborator (document extraction,
// bank aggregator, mailbox, categorizer) failed or timed out.
var ErrExternalService = errors.New("external service failure")

// ErrFormatNotRecognized is returned when an input structure could not be inferred.
var ErrFormatNotRecognized = errors.New("format not recognized")

// AppError carries an HTTP-ish status code and a message alongside the cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError wraps err with a code and message.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// RateLimitError is returned by remote adapters when the provider throttled the call.
// It is kept distinct from generic failures so callers can back off.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return e.Provider + " rate limited"
}

// Is lets errors.Is(err, ErrExternalService) match rate limit errors too.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrExternalService
}

// IsRateLimited reports whether err is (or wraps) a RateLimitError and returns it.
func IsRateLimited(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}
