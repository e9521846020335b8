package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a failure so handlers can dispatch on a structured code
// instead of sniffing message substrings.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindDuplicate    Kind = "duplicate"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

// Error carries a kind alongside the underlying cause and a user-facing
// message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given kind and message
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// FromDB maps a gorm error onto a structured Error. Requires the database
// to be opened with TranslateError so driver-specific constraint errors
// arrive as gorm sentinel errors.
func FromDB(err error) *Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(KindNotFound, "record not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(KindDuplicate, "a record with these details already exists", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Wrap(KindValidation, "cannot perform this action because the record is referenced elsewhere", err)
	default:
		return Wrap(KindInternal, "operation failed", err)
	}
}

// KindOf extracts the kind from an error, defaulting to internal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsDuplicate reports whether err represents a uniqueness violation
func IsDuplicate(err error) bool {
	return KindOf(err) == KindDuplicate || errors.Is(err, gorm.ErrDuplicatedKey)
}

// IsNotFound reports whether err represents a missing record
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound || errors.Is(err, gorm.ErrRecordNotFound)
}
