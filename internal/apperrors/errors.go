package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates that the caller could not be identified.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates the caller is identified but may not act on the resource.
var ErrForbidden = errors.New("access denied")

// ErrInvalidAmount indicates a non-positive amount, one finer than a cent, or one too large to store.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrInvalidState indicates the account or transaction is not in a state that allows the operation.
var ErrInvalidState = errors.New("invalid state for operation")

// ErrCurrencyMismatch indicates a transfer between accounts holding different currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch between accounts")

// ErrInsufficientFunds indicates the debit would exceed the available balance or breach the minimum balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrSameAccount indicates a transfer whose source and destination are the same account.
var ErrSameAccount = errors.New("source and destination accounts are the same")

// ErrPersistence indicates the storage layer failed after validation passed.
// The operation was rolled back.
var ErrPersistence = errors.New("persistence failure")

// AppError carries an HTTP-ish status code and a message alongside the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates a new AppError.
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

// Persistence wraps a storage error so that it matches ErrPersistence while keeping the cause.
func Persistence(message string, err error) error {
	return NewAppError(http.StatusInternalServerError, message, fmt.Errorf("%w: %w", ErrPersistence, err))
}

// StatusCode maps an error to the HTTP status the REST layer should answer with.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrSameAccount),
		errors.Is(err, ErrValidation), errors.Is(err, ErrCurrencyMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
