package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind classifies core failures so callers can map them to transport
// codes without string matching.
type ErrorKind string

const (
	KindInvalidTransition      ErrorKind = "invalid_transition"
	KindDuplicateInvoiceNumber ErrorKind = "duplicate_invoice_number"
	KindMalformedDate          ErrorKind = "malformed_date"
	KindConstraintViolation    ErrorKind = "constraint_violation"
	KindNotFound               ErrorKind = "not_found"
)

// Error carries a kind plus enough context (entity, id, attempted action)
// for the caller to build a useful response.
type Error struct {
	Kind   ErrorKind
	Entity string
	ID     uint
	Action string
	Status string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Entity != "" {
		if e.ID != 0 {
			msg = fmt.Sprintf("%s: %s %d", msg, e.Entity, e.ID)
		} else {
			msg = fmt.Sprintf("%s: %s", msg, e.Entity)
		}
	}
	if e.Action != "" {
		msg = fmt.Sprintf("%s (action %q)", msg, e.Action)
	}
	if e.Status != "" {
		msg = fmt.Sprintf("%s (status %q)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the error kind, or "" for errors not raised by this core.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

func notFound(entity string, id uint) error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

// wrapDBError translates gorm errors for a given entity into core kinds.
// Anything unrecognized passes through untouched so transient store failures
// stay visible to the caller.
func wrapDBError(err error, entity string, id uint) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindConstraintViolation, Entity: entity, ID: id, Err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &Error{Kind: KindConstraintViolation, Entity: entity, ID: id, Err: err}
	default:
		return err
	}
}
