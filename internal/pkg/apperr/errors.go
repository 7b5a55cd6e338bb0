// Package apperr carries the error taxonomy shared by the order and catalog services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how the caller should react to it.
type Kind string

const (
	KindUnknown           Kind = "UNKNOWN"
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindInvalidState      Kind = "INVALID_STATE"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindOrderRejected     Kind = "ORDER_REJECTED"
	KindDependencyFailure Kind = "DEPENDENCY_FAILURE"
)

// Code is the machine-readable code exposed on the wire.
type Code string

const (
	// Catalog codes
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeProductNotFound  Code = "PRODUCT_NOT_FOUND"
	CodeDatabaseError    Code = "DATABASE_ERROR"
	CodeCalculationError Code = "CALCULATION_ERROR"
	CodeUpdateFailed     Code = "UPDATE_FAILED"

	// Order codes
	CodeOrderNotFound         Code = "ORDER_NOT_FOUND"
	CodeInsufficientStock     Code = "INSUFFICIENT_STOCK"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeInvalidState          Code = "INVALID_STATE"
	CodeOrderRejected         Code = "ORDER_REJECTED"
	CodeDependencyUnavailable Code = "DEPENDENCY_UNAVAILABLE"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// kindOfCode gives the kind a bare wire code maps back to.
var kindOfCode = map[Code]Kind{
	CodeInvalidInput:          KindInvalidInput,
	CodeProductNotFound:       KindNotFound,
	CodeOrderNotFound:         KindNotFound,
	CodeDatabaseError:         KindDependencyFailure,
	CodeCalculationError:      KindDependencyFailure,
	CodeUpdateFailed:          KindDependencyFailure,
	CodeInsufficientStock:     KindInsufficientStock,
	CodeInvalidTransition:     KindInvalidTransition,
	CodeInvalidState:          KindInvalidState,
	CodeOrderRejected:         KindOrderRejected,
	CodeDependencyUnavailable: KindDependencyFailure,
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an error of the given kind and code.
func New(kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind that keeps cause on its chain.
func Wrap(cause error, kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func InvalidInput(format string, args ...any) *Error {
	return New(KindInvalidInput, CodeInvalidInput, format, args...)
}

func ProductNotFound(productID string) *Error {
	return New(KindNotFound, CodeProductNotFound, "product %s not found", productID)
}

func OrderNotFound(orderID string) *Error {
	return New(KindNotFound, CodeOrderNotFound, "order %s not found", orderID)
}

func InsufficientStock(productID string, requested, free int) *Error {
	return New(KindInsufficientStock, CodeInsufficientStock,
		"insufficient stock for product %s: requested %d, available %d", productID, requested, free)
}

func Database(cause error, format string, args ...any) *Error {
	return Wrap(cause, KindDependencyFailure, CodeDatabaseError, format, args...)
}

func Unavailable(cause error, format string, args ...any) *Error {
	return Wrap(cause, KindDependencyFailure, CodeDependencyUnavailable, format, args...)
}

// FromCode rebuilds an error received from a remote service.
func FromCode(code Code, message string) *Error {
	kind, ok := kindOfCode[code]
	if !ok {
		kind = KindUnknown
	}
	return &Error{Kind: kind, Code: code, Message: message}
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the outermost classified error in err's chain.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsKind reports whether any classified error on err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// RootKind returns the innermost classified kind on err's chain.
func RootKind(err error) Kind {
	kind := KindUnknown
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		kind = e.Kind
		err = e.Cause
	}
	return kind
}

// HTTPStatus maps err to the response status a handler should write.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidInput, KindInvalidTransition:
		return http.StatusBadRequest
	case KindInsufficientStock, KindInvalidState:
		return http.StatusConflict
	case KindDependencyFailure:
		return http.StatusServiceUnavailable
	case KindOrderRejected:
		switch RootKind(err) {
		case KindInvalidInput:
			return http.StatusBadRequest
		case KindNotFound:
			return http.StatusUnprocessableEntity
		case KindDependencyFailure:
			return http.StatusServiceUnavailable
		default:
			return http.StatusConflict
		}
	default:
		return http.StatusInternalServerError
	}
}
