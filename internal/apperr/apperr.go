// Package apperr holds the error kinds shared by the ledgers and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	KindDuplicateScan    Kind = "DUPLICATE_SCAN"
	KindNoStock          Kind = "NO_STOCK_AVAILABLE"
	KindShiftAlreadyOpen Kind = "SHIFT_ALREADY_OPEN"
	KindNoOpenShift      Kind = "NO_OPEN_SHIFT"
	KindInvalidInput     Kind = "INVALID_INPUT"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindStorageConflict  Kind = "STORAGE_CONFLICT"
	KindUnauthorized     Kind = "UNAUTHORIZED"
	KindForbidden        Kind = "FORBIDDEN"
	KindInternal         Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
	// Status overrides the default HTTP status of Kind when non-zero.
	Status int
	// Detail is rendered next to the message, e.g. the shift that is already open.
	Detail any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return Wrap(KindInternal, msg, err)
}

// WithStatus returns a copy of err carrying an explicit HTTP status.
// Errors that are not *Error are returned untouched.
func WithStatus(err error, status int) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.Status = status
	return &cp
}

// KindOf reports the kind of err, KindInternal for foreign errors and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the status the API answers with.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	switch KindOf(err) {
	case KindDuplicateScan, KindNoStock, KindShiftAlreadyOpen, KindConflict, KindStorageConflict:
		return fiber.StatusConflict
	case KindNoOpenShift, KindNotFound:
		return fiber.StatusNotFound
	case KindInvalidInput:
		return fiber.StatusBadRequest
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}
