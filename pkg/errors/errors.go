package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain error taxonomy. Everything except ErrStockInconsistency is a
// client error raised before any persistent mutation.
var (
	ErrNotFound               = errors.New("resource not found")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrNegativeStock          = errors.New("adjustment would result in negative stock")
	ErrCrossWarehouseTransfer = errors.New("target room belongs to a different warehouse")
	ErrInvalidState           = errors.New("invalid document state")
	ErrEmptyBill              = errors.New("bill has no lines")
	ErrStockInconsistency     = errors.New("stock inconsistency detected")
	ErrValidation             = errors.New("validation error")
	ErrConflict               = errors.New("resource conflict")
	ErrBadRequest             = errors.New("bad request")
	ErrInternal               = errors.New("internal server error")
)

// AppError carries an error code and HTTP status alongside the wrapped
// sentinel so handlers can render it without switching on error values.
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func InvalidQuantity(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidQuantity,
		Code:       "INVALID_QUANTITY",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func InsufficientStock(message string) *AppError {
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       "INSUFFICIENT_STOCK",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NegativeStock(message string) *AppError {
	return &AppError{
		Err:        ErrNegativeStock,
		Code:       "NEGATIVE_STOCK",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func CrossWarehouseTransfer(message string) *AppError {
	return &AppError{
		Err:        ErrCrossWarehouseTransfer,
		Code:       "CROSS_WAREHOUSE_TRANSFER",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func InvalidState(message string) *AppError {
	return &AppError{
		Err:        ErrInvalidState,
		Code:       "INVALID_STATE",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func EmptyBill() *AppError {
	return &AppError{
		Err:        ErrEmptyBill,
		Code:       "EMPTY_BILL",
		Message:    "bill must contain at least one line",
		StatusCode: http.StatusBadRequest,
	}
}

// StockInconsistency is fatal: the engine detected a broken invariant after
// a successful pre-check. The surrounding transaction must roll back and the
// error is escalated to operators, never silently retried.
func StockInconsistency(message string) *AppError {
	return &AppError{
		Err:        ErrStockInconsistency,
		Code:       "STOCK_INCONSISTENCY",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
