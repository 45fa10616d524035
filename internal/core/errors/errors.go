package errors

import (
	"errors"
	"fmt"

	"github.com/lorrc/service-desk-notifier/internal/core/domain"
)

// Pipeline results - each ends the notification attempt for one event.
var (
	// Host state
	ErrNotInitialized       = errors.New("notifier is not initialized")
	ErrMissingTicketContext = errors.New("thread entry has no owning ticket")

	// Eligibility guards
	ErrNotUserMessage    = errors.New("thread entry is not a user message")
	ErrFirstEntry        = errors.New("thread entry is the ticket's first message")
	ErrFilteredBySubject = errors.New("notification suppressed by subject filter")

	// Configuration
	ErrMisconfigured = errors.New("webhook URL is not configured")

	// Lookup
	ErrTicketNotFound = errors.New("ticket not found")
	ErrEntryNotFound  = errors.New("thread entry not found")

	// Generic
	ErrNotFound     = errors.New("resource not found")
	ErrInternal     = errors.New("internal server error")
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("action forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// DeliveryError describes a failed webhook send.
type DeliveryError struct {
	Kind       domain.DeliveryKind
	StatusCode int
	Detail     string
}

func (e *DeliveryError) Error() string {
	if e.Kind == domain.DeliveryNonSuccessStatus {
		return fmt.Sprintf("webhook delivery failed: HTTP %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("webhook delivery failed: %s", e.Detail)
}

// FromOutcome converts a delivery outcome to an error, nil on success.
func FromOutcome(outcome domain.DeliveryOutcome) error {
	if outcome.Succeeded() {
		return nil
	}
	return &DeliveryError{
		Kind:       outcome.Kind,
		StatusCode: outcome.StatusCode,
		Detail:     outcome.Detail,
	}
}

// IsDeliveryError reports whether err is a failed webhook send.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}

// ResultCode maps a pipeline result to the short code used in intake
// responses and metrics.
func ResultCode(err error) string {
	switch {
	case err == nil:
		return "dispatched"
	case errors.Is(err, ErrFilteredBySubject):
		return "suppressed"
	case errors.Is(err, ErrNotUserMessage),
		errors.Is(err, ErrFirstEntry),
		errors.Is(err, ErrMissingTicketContext):
		return "skipped"
	case errors.Is(err, ErrNotInitialized):
		return "not_ready"
	case errors.Is(err, ErrMisconfigured):
		return "misconfigured"
	case IsDeliveryError(err):
		return "delivery_failed"
	default:
		return "error"
	}
}

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrBadRequest, err),
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrNotFound, err),
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrInternal, err),
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
