// Package apperr carries the stable machine-readable error codes clients key
// their retry behavior on (e.g. SUBMIT_IN_PROGRESS means "poll again" while
// ATTEMPT_NOT_EDITABLE means "already done").
package apperr

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeNotFound             Code = "NOT_FOUND"
	CodeInvalidPin           Code = "INVALID_PIN"
	CodeRateLimited          Code = "RATE_LIMITED"
	CodeExamNotPublished     Code = "EXAM_NOT_PUBLISHED"
	CodeExamHasNoQuestions   Code = "EXAM_HAS_NO_QUESTIONS"
	CodeAttemptExpired       Code = "ATTEMPT_EXPIRED"
	CodeAttemptNotEditable   Code = "ATTEMPT_NOT_EDITABLE"
	CodeSubmitInProgress     Code = "SUBMIT_IN_PROGRESS"
	CodeResumeNotFound       Code = "RESUME_NOT_FOUND"
	CodeResumeAmbiguous      Code = "RESUME_AMBIGUOUS"
	CodeAttemptNotResumable  Code = "ATTEMPT_NOT_RESUMABLE"
	CodeCSRFRejected         Code = "CSRF_REJECTED"
	CodeInternal             Code = "INTERNAL"
)

// Error pairs a stable code with a human-readable message. Details carries
// supplementary values (e.g. the terminal status of a non-resumable attempt).
type Error struct {
	Code    Code
	Message string
	Details map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, cause: cause}
}

func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus maps codes onto the wire contract. Security failures
// deliberately map to generic statuses; the audit trail keeps the specifics.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeAttemptNotEditable, CodeExamNotPublished, CodeExamHasNoQuestions:
		return http.StatusBadRequest
	case CodeInvalidPin:
		return http.StatusUnauthorized
	case CodeCSRFRejected:
		return http.StatusForbidden
	case CodeNotFound, CodeResumeNotFound:
		return http.StatusNotFound
	case CodeSubmitInProgress, CodeResumeAmbiguous, CodeAttemptExpired, CodeAttemptNotResumable:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf extracts the stable code from any error in the chain, or INTERNAL.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// As is a convenience wrapper around errors.As for controllers.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}
