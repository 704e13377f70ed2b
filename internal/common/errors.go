package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

// NewAppError constructs an AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// DecodeError reports raw text that is not a valid DATEV-encoded number.
// It is never coerced to zero; the containing row is rejected instead.
type DecodeError struct {
	Raw    string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %s", e.Raw, e.Reason)
}

// RowRejected reports a row that was dropped during extraction: either the
// mandatory personnel number is missing or a numeric field failed to decode.
// Page is 1-based, Row is the 0-based index of the row on its page.
type RowRejected struct {
	Page   int
	Row    int
	PersNr string
	Field  string
	Reason string
	Cause  error
}

func (e *RowRejected) Error() string {
	msg := fmt.Sprintf("page %d row %d rejected: %s", e.Page, e.Row, e.Reason)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %s)", e.Field)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RowRejected) Unwrap() error {
	return e.Cause
}

// HeaderParseError reports a page whose reporting period could not be
// determined. All rows on that page are rejected as a consequence.
type HeaderParseError struct {
	Page   int
	Header string
}

func (e *HeaderParseError) Error() string {
	return fmt.Sprintf("page %d: no reporting period in header %q", e.Page, truncate(e.Header, 80))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
