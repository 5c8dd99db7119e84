package cloudx

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain Errors - use errors.Is for checking
var (
	// ErrInvalidInput indicates the URL or path cannot be mapped to a known provider
	ErrInvalidInput = errors.New("cloudx: invalid input")

	// ErrUnknownConfigKey indicates an override key is not valid for the target provider
	ErrUnknownConfigKey = errors.New("cloudx: unknown configuration key")

	// ErrFeatureUnavailable indicates no builder is registered for the provider
	ErrFeatureUnavailable = errors.New("cloudx: provider not available")

	// ErrClientConstruction indicates the provider SDK rejected the merged configuration
	ErrClientConstruction = errors.New("cloudx: client construction failed")

	// ErrNotFound indicates the requested object was not found
	ErrNotFound = errors.New("cloudx: object not found")

	// ErrNotSupported indicates the provider cannot perform the operation
	ErrNotSupported = errors.New("cloudx: operation not supported")

	// ErrPermissionDenied indicates the credentials were rejected for the operation
	ErrPermissionDenied = errors.New("cloudx: permission denied")

	// ErrConflict indicates a conflicting state (e.g. precondition failed)
	ErrConflict = errors.New("cloudx: conflict")

	// ErrUnavailable indicates a transient server side failure
	ErrUnavailable = errors.New("cloudx: service unavailable")
)

// ConfigError wraps a resolution or build failure with context
type ConfigError struct {
	Op       string   // operation that failed
	Provider Provider // provider (if known)
	Key      string   // offending key, url or scheme (if applicable)
	Err      error    // underlying error
}

func (e *ConfigError) Error() string {
	prefix := "cloudx " + e.Op
	if e.Provider != 0 {
		prefix += " " + e.Provider.String()
	}
	if e.Key != "" {
		return fmt.Sprintf("%s %q: %v", prefix, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewClientError wraps an SDK validation error as ErrClientConstruction
func NewClientError(p Provider, err error) error {
	return &ConfigError{Op: "build", Provider: p, Err: fmt.Errorf("%w: %w", ErrClientConstruction, err)}
}

// ObjectError wraps a failed object operation
type ObjectError struct {
	Op  string // operation that failed
	Key string // object key (if applicable)
	Err error  // underlying error
}

func (e *ObjectError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cloudx %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("cloudx %s: %v", e.Op, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if an error is or wraps ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ErrorForStatus maps an HTTP status code to a domain error, or nil when the
// status carries no specific meaning
func ErrorForStatus(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return ErrPermissionDenied
	case http.StatusConflict, http.StatusPreconditionFailed:
		return ErrConflict
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	case http.StatusNotImplemented, http.StatusMethodNotAllowed:
		return ErrNotSupported
	}
	return nil
}
