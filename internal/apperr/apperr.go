// Package apperr holds the error taxonomy shared by the ledgers, the order
// engine and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeAlreadyPaid       Code = "ALREADY_PAID"
	CodeCannotModify      Code = "CANNOT_MODIFY"
	CodeCannotDelete      Code = "CANNOT_DELETE"
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodeInProgress        Code = "REQUEST_IN_PROGRESS"
)

// Kind groups codes by how a caller should react: not found, bad input or
// a business-rule conflict.
type Kind uint8

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

var kinds = map[Code]Kind{
	CodeNotFound:          KindNotFound,
	CodeValidation:        KindValidation,
	CodeInvalidAmount:     KindValidation,
	CodeInsufficientStock: KindConflict,
	CodeAlreadyPaid:       KindConflict,
	CodeCannotModify:      KindConflict,
	CodeCannotDelete:      KindConflict,
	CodeInProgress:        KindConflict,
}

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so errors.Is(err, ErrNotFound)
// works for every not-found error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) Kind() Kind { return kinds[e.Code] }

var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrInsufficientStock = &Error{Code: CodeInsufficientStock, Message: "insufficient stock"}
	ErrAlreadyPaid       = &Error{Code: CodeAlreadyPaid, Message: "order is already paid"}
	ErrCannotModify      = &Error{Code: CodeCannotModify, Message: "order cannot be modified"}
	ErrCannotDelete      = &Error{Code: CodeCannotDelete, Message: "order cannot be deleted"}
	ErrInvalidAmount     = &Error{Code: CodeInvalidAmount, Message: "amount must be positive"}
	ErrInProgress        = &Error{Code: CodeInProgress, Message: "request is already in progress"}
)

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error { return newf(CodeNotFound, format, args...) }

func Validation(format string, args ...any) error { return newf(CodeValidation, format, args...) }

func InsufficientStock(format string, args ...any) error {
	return newf(CodeInsufficientStock, format, args...)
}

func AlreadyPaid(format string, args ...any) error { return newf(CodeAlreadyPaid, format, args...) }

func CannotModify(format string, args ...any) error { return newf(CodeCannotModify, format, args...) }

func CannotDelete(format string, args ...any) error { return newf(CodeCannotDelete, format, args...) }

func InvalidAmount(format string, args ...any) error { return newf(CodeInvalidAmount, format, args...) }

func InProgress(format string, args ...any) error { return newf(CodeInProgress, format, args...) }

// KindOf reports the kind of the first *Error in err's chain. Anything else is
// internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
