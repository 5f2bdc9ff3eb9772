// Error taxonomy shared by every adapter.
//
// Information Hiding:
// - Vendor SDK error types never leave the adapter
// - Callers classify failures with errors.Is on the sentinels or errors.As on the types

package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched by the typed errors below.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrAPI           = errors.New("api error")
	ErrProvider      = errors.New("provider error")
	ErrUnsupported   = errors.New("unsupported operation")
	ErrValidation    = errors.New("validation error")
)

// ConfigurationError reports missing or invalid configuration, such as an unset credential.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Message }

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// NewConfigurationError formats a ConfigurationError.
func NewConfigurationError(format string, args ...any) error {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// APIError is a transport-level failure: non-2xx status or network error.
// StatusCode is zero when no response was received.
type APIError struct {
	Message    string
	StatusCode int
	Provider   string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s api error: %s", e.Provider, e.Message)
}

// Is matches ErrAPI.
func (e *APIError) Is(target error) bool { return target == ErrAPI }

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// ProviderError is a contract violation: the vendor answered 2xx but the payload
// was empty or malformed.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

// Is matches ErrProvider.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// UnsupportedOperationError reports a capability the provider does not have.
type UnsupportedOperationError struct {
	Provider  string
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Provider, e.Operation)
}

// Is matches ErrUnsupported.
func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupported }

// ValidationError rejects caller input before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func emptyReply(provider, what string) error {
	return &ProviderError{Provider: provider, Message: "no " + what + " in response"}
}
