package errors

import "errors"

// Kind classifies a failure so the HTTP layer can map it to a status code.
type Kind string

const (
	KindNotFound                   Kind = "NotFound"
	KindInvalidState               Kind = "InvalidState"
	KindAlreadyRevoked             Kind = "AlreadyRevoked"
	KindDuplicateActiveCertificate Kind = "DuplicateActiveCertificate"
	KindDuplicatePendingRequest    Kind = "DuplicatePendingRequest"
	KindTemplateNotFound           Kind = "TemplateNotFound"
	KindTemplateInactive           Kind = "TemplateInactive"
	KindNoActiveTemplate           Kind = "NoActiveTemplate"
	KindTamperDetected             Kind = "TamperDetected"
	KindValidation                 Kind = "ValidationError"
	KindConflict                   Kind = "Conflict"
	KindUnavailable                Kind = "Unavailable"
)

// Error is a domain failure with a stable kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, ErrOptimisticLock) against a differently worded instance.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Validation is a shorthand for a KindValidation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// ErrOptimisticLock the row was modified by another operation
var ErrOptimisticLock = New(KindConflict, "record was modified by another operation, reload and retry")
