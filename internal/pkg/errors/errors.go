package errors

import (
	"errors"
	"fmt"
)

// AppError represents an application error with additional context
type AppError struct {
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Resource string      `json:"resource,omitempty"`
	Internal error       `json:"-"`
	Details  interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := e.Message
	if e.Resource != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Resource)
	}
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", msg, e.Internal)
	}
	return msg
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeIdempotentState = "IDEMPOTENT_STATE"
	ErrCodeProviderAPI     = "PROVIDER_API_ERROR"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeUnexpectedState = "UNEXPECTED_STATE"
	ErrCodeInvalidConfig   = "INVALID_CONFIG"
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Internal: err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithResource records the identifier of the resource the error concerns
func (e *AppError) WithResource(resource string) *AppError {
	e.Resource = resource
	return e
}

// IdempotentState reports a request rejected because the resource is already
// in (or moving towards) the requested state.
func IdempotentState(resource string, err error) *AppError {
	return Wrap(err, ErrCodeIdempotentState, "resource already in requested state").WithResource(resource)
}

// ProviderAPIError creates a provider API error
func ProviderAPIError(provider, resource string, err error) *AppError {
	return Wrap(err, ErrCodeProviderAPI,
		fmt.Sprintf("failed to communicate with %s API", provider)).WithResource(resource)
}

// Timeout reports a stabilization wait that ran out of attempts
func Timeout(resource, target string, attempts int) *AppError {
	return New(ErrCodeTimeout,
		fmt.Sprintf("timed out waiting for %q after %d attempts", target, attempts)).WithResource(resource)
}

// UnexpectedState reports a resource that entered a state from which the
// awaited target is unreachable.
func UnexpectedState(resource, target, state string) *AppError {
	return New(ErrCodeUnexpectedState,
		fmt.Sprintf("entered state %q while waiting for %q", state, target)).WithResource(resource)
}

// InvalidConfig creates a configuration error
func InvalidConfig(message string, details interface{}) *AppError {
	return New(ErrCodeInvalidConfig, message).WithDetails(details)
}

// InvalidArgument creates a command-line argument error
func InvalidArgument(message string) *AppError {
	return New(ErrCodeInvalidArgument, message)
}

// Internal creates an internal error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message)
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ResourceOf returns the resource of the first AppError in err's chain that names one.
func ResourceOf(err error) string {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return ""
		}
		if appErr.Resource != "" {
			return appErr.Resource
		}
		err = appErr.Internal
	}
	return ""
}

// IsIdempotentState reports whether err is an idempotent-state rejection
func IsIdempotentState(err error) bool {
	return CodeOf(err) == ErrCodeIdempotentState
}

// IsTimeout reports whether err is a stabilization timeout
func IsTimeout(err error) bool {
	return CodeOf(err) == ErrCodeTimeout
}
