package types

import "fmt"

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. All packages use these constants instead of
// hardcoded strings so outcomes stay machine-matchable in logs.
const (
	// Validation
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"
	ErrCodeValidationBadSeverity  ErrorCode = "validation_invalid_severity"
	ErrCodeValidationBadType      ErrorCode = "validation_invalid_notification_type"

	// Queue boundary. Encode/decode failures are absorbed at the queue and
	// never propagate into rule matching; unreachable is fatal to consumers.
	ErrCodeQueueEncode      ErrorCode = "queue_serialization_failure"
	ErrCodeQueueDecode      ErrorCode = "queue_deserialization_failure"
	ErrCodeQueueUnreachable ErrorCode = "queue_unreachable"

	// Record store lookups
	ErrCodeNotFoundCheck   ErrorCode = "not_found_check"
	ErrCodeNotFoundState   ErrorCode = "not_found_check_state"
	ErrCodeNotFoundContact ErrorCode = "not_found_contact"

	// Delivery
	ErrCodeDeliveryFailed      ErrorCode = "delivery_failed"
	ErrCodeDeliveryUnsupported ErrorCode = "delivery_unsupported_medium"

	// Upstream HTTP endpoints
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamUnavailable ErrorCode = "upstream_unavailable"

	// Internal
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// AppError is the standard application error type used throughout the
// dispatch core. Domain errors are expressed as AppError to enable
// consistent formatting, categorization, and error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy of the error with the provided details merged
// in, leaving the original untouched.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error. This is the standard constructor for domain
// errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
