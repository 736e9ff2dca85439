/*
errors.go - Coded error taxonomy shared by every layer

PURPOSE:
  Business failures are values with a stable code, a user-facing message
  and the HTTP status the API layer renders them with. Anything that is
  not an *AppError is an infrastructure failure and surfaces as
  INTERNAL_ERROR after being logged.

ERROR CATEGORIES:
  NOT_FOUND             request, approval record, balance row or holiday missing
  INVALID_STATE         operation not allowed from the current status
  INVALID_INPUT         malformed input, blank rejection opinion, bad range
  CONFLICT              overlapping leave, duplicate balance row or holiday date
  INSUFFICIENT_BALANCE  remaining annual leave lower than requested
  FORBIDDEN             actor is not the bound approver, or is the applicant
  UNAUTHORIZED          no identity on the request
  INTERNAL_ERROR        store unavailable and friends

USAGE:
  return generic.InvalidState("cannot submit request in status %s", req.Status)

  if generic.CodeOf(err) == generic.CodeConflict { ... }

SEE ALSO:
  - api/handlers.go: writeError renders AppError as JSON
  - store/sqlite: wraps driver errors with github.com/pkg/errors
*/
package generic

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidState        = "INVALID_STATE"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeConflict            = "CONFLICT"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInternal            = "INTERNAL_ERROR"
)

// ErrConcurrentModification is returned by stores when an optimistic
// version check loses against another writer.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// =============================================================================
// APP ERROR
// =============================================================================

type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    any
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails returns a copy carrying structured details for the client.
func (e *AppError) WithDetails(details any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

func newAppError(code string, status int, format string, args ...any) *AppError {
	return &AppError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: status,
	}
}

func NotFound(format string, args ...any) *AppError {
	return newAppError(CodeNotFound, http.StatusNotFound, format, args...)
}

func InvalidState(format string, args ...any) *AppError {
	return newAppError(CodeInvalidState, http.StatusConflict, format, args...)
}

func Validation(format string, args ...any) *AppError {
	return newAppError(CodeInvalidInput, http.StatusBadRequest, format, args...)
}

func Conflict(format string, args ...any) *AppError {
	return newAppError(CodeConflict, http.StatusConflict, format, args...)
}

func Forbidden(format string, args ...any) *AppError {
	return newAppError(CodeForbidden, http.StatusForbidden, format, args...)
}

func Unauthorized(format string, args ...any) *AppError {
	return newAppError(CodeUnauthorized, http.StatusUnauthorized, format, args...)
}

// Internal hides the cause from the client; the cause stays reachable
// through Unwrap for logging.
func Internal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "an unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InsufficientBalanceDetails is attached to INSUFFICIENT_BALANCE errors.
type InsufficientBalanceDetails struct {
	EmployeeID string          `json:"employee_id"`
	Year       int             `json:"year"`
	Available  decimal.Decimal `json:"available"`
	Requested  decimal.Decimal `json:"requested"`
	Shortfall  decimal.Decimal `json:"shortfall"`
}

func Insufficient(employeeID string, year int, available, requested decimal.Decimal) *AppError {
	e := newAppError(CodeInsufficientBalance, http.StatusUnprocessableEntity,
		"insufficient annual leave: available %s, requested %s", available.String(), requested.String())
	e.Details = InsufficientBalanceDetails{
		EmployeeID: employeeID,
		Year:       year,
		Available:  available,
		Requested:  requested,
		Shortfall:  requested.Sub(available),
	}
	return e
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// AsAppError returns the first *AppError in the chain, or wraps err as an
// internal error.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// CodeOf returns the stable code of err, or "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return AsAppError(err).Code
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrLockTimeout)
}
