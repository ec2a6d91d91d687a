package errors

import (
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/lib/pq"
)

// Kind classifies an error into one of the envelope error types
type Kind int

const (
	KindOther Kind = iota
	KindValidation
	KindNotFound
	KindIntegrity
	KindInvalidData
	KindAccepted
	// KindTooLarge is a request body cut off at the configured size limit.
	KindTooLarge
)

// Error types as they appear in the response envelope
const (
	TypeValidation = "VALIDATION_ERROR"
	TypeNotFound   = "HTTP_404"
	TypeIntegrity  = "INTEGRITY_ERROR"
	TypeInvalid    = "INVALID_DATA"
	TypeAccepted   = "ACCEPTED_WITH_CAVEAT"
	TypeOther      = "OTHER"
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return TypeValidation
	case KindNotFound:
		return TypeNotFound
	case KindIntegrity:
		return TypeIntegrity
	case KindInvalidData:
		return TypeInvalid
	case KindAccepted:
		return TypeAccepted
	default:
		return TypeOther
	}
}

// FieldError is a single validation failure for a field
type FieldError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// FieldErrors maps a field name to the list of its failures
type FieldErrors map[string][]FieldError

// Add appends a failure for field
func (fe FieldErrors) Add(field, code, message string) {
	fe[field] = append(fe[field], FieldError{Message: message, Code: code})
}

func (fe FieldErrors) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(fe))
}

// AppError represents an application error
type AppError struct {
	Kind    Kind        `json:"kind"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Object  interface{} `json:"-"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation wraps field errors produced by a schema check
func Validation(details FieldErrors) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: "validation failed",
		Details: details,
		Err:     details,
	}
}

// ValidationMessage builds a validation error that is not bound to a field
func ValidationMessage(code, message string) *AppError {
	details := FieldErrors{}
	details.Add("non_field_errors", code, message)
	return Validation(details)
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

// NotFoundMessage is a not-found error carrying its own message
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: message,
	}
}

func Integrity(err error) *AppError {
	return &AppError{
		Kind:    KindIntegrity,
		Message: "integrity constraint violated",
		Err:     err,
	}
}

// InvalidData is a domain rejection whose message is shown to the caller as is
func InvalidData(message string) *AppError {
	return &AppError{
		Kind:    KindInvalidData,
		Message: message,
	}
}

// Accepted signals a partial success: obj is returned to the caller with message
func Accepted(obj interface{}, message string) *AppError {
	return &AppError{
		Kind:    KindAccepted,
		Message: message,
		Object:  obj,
	}
}

// TooLarge reports a request body over the size limit
func TooLarge(message string, err error) *AppError {
	return &AppError{
		Kind:    KindTooLarge,
		Message: message,
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Kind:    KindOther,
		Message: "internal server error",
		Err:     err,
	}
}

// integrityClass is the SQLSTATE class for integrity constraint violations
const integrityClass = "23"

// Classify maps any error onto an AppError. Errors that are already
// classified are returned unchanged.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var fieldErrs FieldErrors
	if stderrors.As(err, &fieldErrs) {
		return Validation(fieldErrs)
	}

	if stderrors.Is(err, sql.ErrNoRows) {
		return NotFound("object", err)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && string(pqErr.Code.Class()) == integrityClass {
		return Integrity(err)
	}

	return Internal(err)
}

// KindOf returns the kind of err after classification
func KindOf(err error) Kind {
	if err == nil {
		return KindOther
	}
	return Classify(err).Kind
}
