package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindInvalidQuantity     ErrorKind = "invalid_quantity"
	KindInvalidSplitCount   ErrorKind = "invalid_split_count"
	KindItemNotInOrder      ErrorKind = "item_not_in_order"
	KindAlreadyOccupied     ErrorKind = "already_occupied"
	KindPaymentNotConfirmed ErrorKind = "payment_not_confirmed"
	KindInvalidTransition   ErrorKind = "invalid_transition"
	KindInvalidAmount       ErrorKind = "invalid_amount"
	KindInvalidRequest      ErrorKind = "invalid_request"
	KindSplitsLocked        ErrorKind = "splits_locked"
	KindStorageFailure      ErrorKind = "storage_failure"
)

// Error is returned by every service operation that fails.
type Error struct {
	Kind    ErrorKind
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

// Is matches on kind so callers can write errors.Is(err, services.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidQuantity     = &Error{Kind: KindInvalidQuantity, Message: "quantity must be positive"}
	ErrInvalidSplitCount   = &Error{Kind: KindInvalidSplitCount, Message: "split count must be at least 1"}
	ErrItemNotInOrder      = &Error{Kind: KindItemNotInOrder, Message: "item does not belong to order"}
	ErrAlreadyOccupied     = &Error{Kind: KindAlreadyOccupied, Message: "table already occupied"}
	ErrPaymentNotConfirmed = &Error{Kind: KindPaymentNotConfirmed, Message: "payment not confirmed"}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition, Message: "invalid status transition"}
	ErrInvalidAmount       = &Error{Kind: KindInvalidAmount, Message: "invalid amount"}
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest, Message: "invalid request"}
	ErrSplitsLocked        = &Error{Kind: KindSplitsLocked, Message: "bill already partially paid"}
	ErrStorageFailure      = &Error{Kind: KindStorageFailure, Message: "storage failure"}
)

// KindOf returns the kind of a service error, StorageFailure for anything else.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindStorageFailure
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(entity string, id uint) *Error {
	return newError(KindNotFound, "%s %d not found", entity, id)
}

// dbError classifies a gorm error. Service errors pass through untouched so
// they survive a db.Transaction callback.
func dbError(err error, op string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: KindNotFound, Message: op, Err: err}
	}
	return &Error{Kind: KindStorageFailure, Message: "failed to " + op, Err: err}
}

// findErr maps a lookup error to NotFound for the given entity.
func findErr(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity, id)
	}
	return dbError(err, "load "+entity)
}
