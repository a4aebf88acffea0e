// Package apperror defines the error taxonomy shared by the onboarding saga,
// the repositories and the HTTP layer.
//
// Every failure that crosses a layer boundary carries a Kind. Callers branch
// on the kind with KindOf or errors.Is against the Err* sentinels, never on
// message text.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindConflict     Kind = "CONFLICT"
	KindNotFound     Kind = "NOT_FOUND"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindProvider     Kind = "PROVIDER"
	KindTechnical    Kind = "TECHNICAL"
	KindCompensation Kind = "COMPENSATION"
)

// Sentinels usable with errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrProvider     = errors.New("identity provider failure")
	ErrTechnical    = errors.New("technical failure")
	ErrCompensation = errors.New("compensation failure")
)

var sentinels = map[Kind]error{
	KindValidation:   ErrValidation,
	KindConflict:     ErrConflict,
	KindNotFound:     ErrNotFound,
	KindUnauthorized: ErrUnauthorized,
	KindProvider:     ErrProvider,
	KindTechnical:    ErrTechnical,
	KindCompensation: ErrCompensation,
}

// Error is a kinded error. Op names the operation that failed
// (e.g. "user.save"), Message is safe to show to a caller, Err is the cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = sentinels[e.Kind].Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func newError(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

func Validation(op, message string) *Error { return newError(KindValidation, op, message, nil) }

func Conflict(op, message string, cause error) *Error {
	return newError(KindConflict, op, message, cause)
}

func NotFound(op, message string) *Error { return newError(KindNotFound, op, message, nil) }

func Unauthorized(op, message string) *Error {
	return newError(KindUnauthorized, op, message, nil)
}

func Provider(op, message string, cause error) *Error {
	return newError(KindProvider, op, message, cause)
}

func Technical(op string, cause error) *Error { return newError(KindTechnical, op, "", cause) }

func Compensation(op string, cause error) *Error {
	return newError(KindCompensation, op, "", cause)
}

// KindOf returns the kind of the first *Error in err's chain. Errors without
// a kind are reported as technical.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTechnical
}

// PublicMessage returns the message a caller may see. Only validation,
// conflict, not-found and unauthorized details are surfaced verbatim.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "sign-in failed"
	}
	switch e.Kind {
	case KindValidation, KindConflict, KindNotFound, KindUnauthorized:
		if e.Message != "" {
			return e.Message
		}
		return sentinels[e.Kind].Error()
	default:
		return "sign-in failed"
	}
}

// HTTPStatus maps an error's kind onto a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
