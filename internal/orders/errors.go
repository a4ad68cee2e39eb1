package orders

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	KindInvalidOrder       FailureKind = "INVALID_ORDER"
	KindInvalidLineItem    FailureKind = "INVALID_LINE_ITEM"
	KindInsufficientStock  FailureKind = "INSUFFICIENT_STOCK"
	KindBackendUnavailable FailureKind = "BACKEND_UNAVAILABLE"
)

var (
	ErrInvalidOrder       = errors.New("invalid order")
	ErrInvalidLineItem    = errors.New("invalid line item")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrBackendUnavailable = errors.New("backend unavailable")

	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConstraintViolation marks a statement rejected by a schema constraint,
	// as opposed to an infrastructure failure.
	ErrConstraintViolation = errors.New("constraint violation")
)

var kindErrors = map[FailureKind]error{
	KindInvalidOrder:       ErrInvalidOrder,
	KindInvalidLineItem:    ErrInvalidLineItem,
	KindInsufficientStock:  ErrInsufficientStock,
	KindBackendUnavailable: ErrBackendUnavailable,
}

// CheckoutError is returned by PlaceOrder for every failed attempt.
// Line is 1-based and zero when the failure is not tied to a cart line.
type CheckoutError struct {
	Kind      FailureKind
	Line      int
	ProductID int64
	Err       error
}

func (e *CheckoutError) Error() string {
	msg := "checkout: " + kindErrors[e.Kind].Error()
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d, product %d)", e.Line, e.ProductID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CheckoutError) Unwrap() []error {
	errs := []error{kindErrors[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf reports the failure kind carried by err.
func KindOf(err error) (FailureKind, bool) {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
