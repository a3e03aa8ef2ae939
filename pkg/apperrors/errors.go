package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every AppError wraps exactly one of these.
var (
	ErrValidation         = errors.New("validation failed")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrAddressNotOwned    = errors.New("address not owned")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource conflict")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrTransactionFailed  = errors.New("transaction failed")
	ErrInternal           = errors.New("internal server error")
)

// AppError represents a structured application error with context
type AppError struct {
	Err        error
	Cause      error
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Details    map[string]interface{}
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is/As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// WithCode overrides the machine-readable code sent to clients.
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithStatus overrides the HTTP status for this error.
func (e *AppError) WithStatus(status int) *AppError {
	e.StatusCode = status
	return e
}

// WithDetail adds additional context to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewAppError creates a new AppError with the given parameters
func NewAppError(kind error, code, message string, statusCode int, retryable bool) *AppError {
	return &AppError{
		Err:        kind,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
	}
}

// From returns err as an *AppError, wrapping unknown errors as internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(err)
}

// IsRetryable checks if the error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// KindCode returns the code of err, or INTERNAL for foreign errors.
func KindCode(err error) string {
	return From(err).Code
}

func NewValidationError(message string) *AppError {
	return NewAppError(ErrValidation, "VALIDATION_FAILED", message, http.StatusBadRequest, false)
}

func NewUnauthenticatedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthenticated, "UNAUTHENTICATED", message, http.StatusUnauthorized, false)
}

// NewInvalidCredentialsError is deliberately identical for unknown emails and wrong passwords.
func NewInvalidCredentialsError() *AppError {
	return NewAppError(ErrInvalidCredentials, "INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, false)
}

func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return NewAppError(ErrForbidden, "FORBIDDEN", message, http.StatusForbidden, false)
}

func NewAddressNotOwnedError() *AppError {
	return NewAppError(ErrAddressNotOwned, "ADDRESS_NOT_OWNED", "delivery address does not belong to the customer", http.StatusForbidden, false)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, "NOT_FOUND", message, http.StatusNotFound, false)
}

func NewConflictError(message string) *AppError {
	return NewAppError(ErrConflict, "CONFLICT", message, http.StatusConflict, false)
}

func NewInsufficientStockError(productID uint, available, requested int) *AppError {
	return NewAppError(
		ErrInsufficientStock,
		"INSUFFICIENT_STOCK",
		fmt.Sprintf("insufficient stock for product %d", productID),
		http.StatusConflict,
		false,
	).WithDetail("product_id", productID).
		WithDetail("available", available).
		WithDetail("requested", requested)
}

func NewInvalidTransitionError(from, to string) *AppError {
	return NewAppError(
		ErrInvalidTransition,
		"INVALID_TRANSITION",
		fmt.Sprintf("cannot move order from %s to %s", from, to),
		http.StatusConflict,
		false,
	).WithDetail("from", from).WithDetail("to", to)
}

// NewTransactionFailedError is the only retryable kind; the caller should re-query before retrying writes.
func NewTransactionFailedError(message string, cause error) *AppError {
	if message == "" {
		message = "the operation could not be completed, please try again"
	}
	e := NewAppError(ErrTransactionFailed, "TRANSACTION_FAILED", message, http.StatusInternalServerError, true)
	e.Cause = cause
	return e
}

// NewInternalError hides the cause from clients; it is still reachable through Unwrap for logging.
func NewInternalError(cause error) *AppError {
	e := NewAppError(ErrInternal, "INTERNAL", "internal server error", http.StatusInternalServerError, false)
	e.Cause = cause
	return e
}
