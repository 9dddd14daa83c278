// Package errors provides structured error types with helpful suggestions.
// Each error includes a type classification, message, suggestion for fixing
// the issue, and optional alternative solutions, so the CLI and the sync
// handler can turn any failure into an actionable message.
//
// Error types mirror the failure classes of cloud sync: configuration,
// authentication, not found, network, concurrency guard and timeout.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType categorizes the type of error
type ErrorType int

const (
	// ConfigError indicates a caller or configuration bug (unknown provider, missing setting)
	ConfigError ErrorType = iota
	// AuthError indicates missing or rejected credentials
	AuthError
	// NotFoundError indicates a missing backup or blob
	NotFoundError
	// NetworkError indicates a transport failure talking to a provider
	NetworkError
	// InProgressError indicates a sync request rejected by the single-flight guard
	InProgressError
	// TimeoutError indicates the sync watchdog fired
	TimeoutError
	// ValidationError indicates invalid input such as a bad filename or bookmark
	ValidationError
	// UnknownError is a catch-all for unexpected errors
	UnknownError
)

func (t ErrorType) String() string {
	switch t {
	case ConfigError:
		return "config"
	case AuthError:
		return "auth"
	case NotFoundError:
		return "not_found"
	case NetworkError:
		return "network"
	case InProgressError:
		return "in_progress"
	case TimeoutError:
		return "timeout"
	case ValidationError:
		return "validation"
	default:
		return "unknown"
	}
}

// SyncError represents an error with context and suggestions
type SyncError struct {
	Type        ErrorType
	Message     string
	Suggestion  string
	Alternative string
	Cause       error
}

// Error implements the error interface
func (e *SyncError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *SyncError) Unwrap() error {
	return e.Cause
}

// New creates a new SyncError
func New(errType ErrorType, message string) *SyncError {
	return &SyncError{
		Type:    errType,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *SyncError {
	return &SyncError{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *SyncError) WithSuggestion(suggestion string) *SyncError {
	e.Suggestion = suggestion
	return e
}

// WithAlternative adds an alternative solution to the error
func (e *SyncError) WithAlternative(alternative string) *SyncError {
	e.Alternative = alternative
	return e
}

// DetectErrorType attempts to detect the error type from a generic error
func DetectErrorType(err error) ErrorType {
	if err == nil {
		return UnknownError
	}

	var se *SyncError
	if stderrors.As(err, &se) {
		return se.Type
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") || strings.Contains(errStr, "invalid token") {
		return AuthError
	}
	if strings.Contains(errStr, "not found") || strings.Contains(errStr, "no such") {
		return NotFoundError
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "deadline exceeded") {
		return TimeoutError
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network") || strings.Contains(errStr, "eof") {
		return NetworkError
	}
	if strings.Contains(errStr, "config") || strings.Contains(errStr, "yaml") {
		return ConfigError
	}

	return UnknownError
}

// WrapWithDetection wraps an error and attempts to detect its type
func WrapWithDetection(err error, message string) *SyncError {
	errType := DetectErrorType(err)
	syncErr := Wrap(err, errType, message)

	switch errType {
	case AuthError:
		syncErr.WithSuggestion("Check that your access token is valid and not expired").
			WithAlternative("Pass a refresh token with --refresh-token to renew it automatically")
	case NotFoundError:
		syncErr.WithSuggestion("Run 'reelmark sync list' to see available backups").
			WithAlternative("Run 'reelmark sync up' to create the first backup")
	case NetworkError:
		syncErr.WithSuggestion("Check your internet connection and try again")
	case TimeoutError:
		syncErr.WithSuggestion("The provider did not answer in time, try again later").
			WithAlternative("Raise sync.timeout in ~/.reelmark.yaml")
	case ConfigError:
		syncErr.WithSuggestion("Check your ~/.reelmark.yaml configuration file").
			WithAlternative("Run 'reelmark config init --force' to regenerate it")
	}

	return syncErr
}

// Common error constructors

// NewUnknownProviderError reports a provider id that is not registered
func NewUnknownProviderError(id string) *SyncError {
	return &SyncError{
		Type:        ConfigError,
		Message:     fmt.Sprintf("Unknown provider: %s", id),
		Suggestion:  "Use one of: gdrive, dropbox, s3, azure",
		Alternative: "Set sync.default_provider in ~/.reelmark.yaml",
	}
}

// NewNoProviderError reports an operation attempted before authentication
func NewNoProviderError() *SyncError {
	return &SyncError{
		Type:       ConfigError,
		Message:    "No cloud provider configured",
		Suggestion: "Authenticate with a provider before uploading or downloading",
	}
}

// NewAuthError reports credentials that were missing or rejected
func NewAuthError(provider string, cause error) *SyncError {
	return &SyncError{
		Type:        AuthError,
		Message:     fmt.Sprintf("Failed to authenticate with %s", provider),
		Suggestion:  "Check that your access token is valid and not expired",
		Alternative: "Pass --access-token or set REELMARK_ACCESS_TOKEN",
		Cause:       cause,
	}
}

// NewNotFoundError reports a missing backup
func NewNotFoundError(what string) *SyncError {
	return &SyncError{
		Type:        NotFoundError,
		Message:     what,
		Suggestion:  "Run 'reelmark sync list' to see available backups",
		Alternative: "Run 'reelmark sync up' to create the first backup",
	}
}

// NewNetworkError wraps a transport failure; the underlying message is kept
func NewNetworkError(operation string, cause error) *SyncError {
	return &SyncError{
		Type:       NetworkError,
		Message:    fmt.Sprintf("%s failed", operation),
		Suggestion: "Check your internet connection and try again",
		Cause:      cause,
	}
}

// NewStatusError reports an unexpected HTTP status from a provider
func NewStatusError(operation string, status int, body string) *SyncError {
	msg := fmt.Sprintf("%s failed with status %d", operation, status)
	if body = strings.TrimSpace(body); body != "" {
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		msg += ": " + body
	}
	errType := NetworkError
	switch status {
	case 401, 403:
		errType = AuthError
	case 404:
		errType = NotFoundError
	}
	return &SyncError{Type: errType, Message: msg}
}

// NewInProgressError reports a request rejected by the single-flight guard
func NewInProgressError() *SyncError {
	return &SyncError{
		Type:       InProgressError,
		Message:    "Sync already in progress",
		Suggestion: "Wait for the current sync to finish",
	}
}

// NewTimeoutError reports a sync that exceeded the watchdog window
func NewTimeoutError(after time.Duration) *SyncError {
	return &SyncError{
		Type:        TimeoutError,
		Message:     fmt.Sprintf("Sync timed out after %s", FormatTimeout(after)),
		Suggestion:  "The provider did not answer in time, try again later",
		Alternative: "Raise sync.timeout in ~/.reelmark.yaml",
	}
}

// NewValidationError reports invalid input
func NewValidationError(message string) *SyncError {
	return &SyncError{
		Type:    ValidationError,
		Message: message,
	}
}

// FormatTimeout renders whole-second durations as "N seconds"
func FormatTimeout(d time.Duration) string {
	if d >= time.Second && d%time.Second == 0 {
		secs := int(d / time.Second)
		if secs == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	return d.String()
}

// AsSyncError returns the first SyncError in err's chain
func AsSyncError(err error) (*SyncError, bool) {
	var se *SyncError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Is reports whether err is a SyncError of the given type
func Is(err error, errType ErrorType) bool {
	var se *SyncError
	if stderrors.As(err, &se) {
		return se.Type == errType
	}
	return false
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool { return Is(err, ConfigError) }

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool { return Is(err, AuthError) }

// IsNotFound checks if an error is a not-found error
func IsNotFound(err error) bool { return Is(err, NotFoundError) }

// IsTimeout checks if an error is a watchdog timeout
func IsTimeout(err error) bool { return Is(err, TimeoutError) }

// IsInProgress checks if an error came from the single-flight guard
func IsInProgress(err error) bool { return Is(err, InProgressError) }

// IsRecoverable checks if retrying later could succeed
func IsRecoverable(err error) bool {
	var se *SyncError
	if stderrors.As(err, &se) {
		return se.Type == NetworkError || se.Type == TimeoutError || se.Type == InProgressError
	}
	return false
}
