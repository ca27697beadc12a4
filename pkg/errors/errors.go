package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error independently of its code.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindRateLimited  Kind = "rate_limited"
	KindUnexpected   Kind = "unexpected"
)

// statusByKind is the single place where kinds turn into transport statuses.
var statusByKind = map[Kind]int{
	KindValidation:   http.StatusBadRequest,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindRateLimited:  http.StatusTooManyRequests,
	KindUnexpected:   http.StatusInternalServerError,
}

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"description"`
	Kind    Kind   `json:"-"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors by code so cloned errors still compare equal to their template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Code: code, Kind: kind, Status: StatusFor(kind), Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, template *Error, message string) *Error {
	wrapped := Clone(template, message)
	wrapped.Err = err
	return wrapped
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Generic errors shared by every module.
var (
	ErrNotFound     = New(KindNotFound, "General.NotFound", "resource not found")
	ErrValidation   = New(KindValidation, "General.Validation", "validation failed")
	ErrConflict     = New(KindConflict, "General.Conflict", "conflict")
	ErrUnauthorized = New(KindUnauthorized, "General.Unauthorized", "unauthorized")
	ErrForbidden    = New(KindForbidden, "General.Forbidden", "forbidden")
	ErrInternal     = New(KindUnexpected, "General.UnexpectedError", "an unexpected error occurred")
	ErrTooManyCalls = New(KindRateLimited, "General.TooManyRequests", "too many requests")

	ErrInvalidCredentials = New(KindUnauthorized, "Auth.InvalidCredentials", "invalid email or password")
	ErrCacheMiss          = New(KindNotFound, "Cache.Miss", "cache miss")
)

// Time zone errors.
var (
	ErrInvalidTimeZone = New(KindValidation, "TimeZone.Invalid", "time zone is not recognised")
)

// Catalog errors.
var (
	ErrLearningSystemNotFound      = New(KindNotFound, "LearningSystem.NotFound", "learning system not found")
	ErrLearningSystemDuplicateName = New(KindConflict, "LearningSystem.DuplicateName", "a learning system with this name already exists")
	ErrSubjectNotFound             = New(KindNotFound, "Subject.NotFound", "subject not found")
	ErrSubjectDuplicateName        = New(KindConflict, "Subject.DuplicateName", "a subject with this name already exists in the learning system")
	ErrQualificationNotFound       = New(KindNotFound, "Qualification.NotFound", "qualification not found")
	ErrQualificationDuplicateName  = New(KindConflict, "Qualification.DuplicateName", "a qualification with this name already exists for the subject")
	ErrQualificationInvalid        = New(KindValidation, "Qualification.Invalid", "one or more qualification ids are invalid")
)

// People errors.
var (
	ErrPersonDuplicateEmail    = New(KindConflict, "Person.DuplicateEmail", "a person with this email already exists")
	ErrPersonInvalidCountry    = New(KindValidation, "Person.InvalidCountryCode", "country code does not map to a time zone")
	ErrStudentNotFound         = New(KindNotFound, "Student.NotFound", "student not found")
	ErrTutorNotFound           = New(KindNotFound, "Tutor.NotFound", "tutor not found")
	ErrTutorNoQualifications   = New(KindValidation, "Tutor.NoQualifications", "the tutor must have at least one qualification before setting availability")
	ErrAvailabilityInvalidSlot = New(KindValidation, "Availability.InvalidTimeSlot", "the provided time slot is invalid")
)

// Booking errors.
var (
	ErrBookingQualificationUnavailable = New(KindValidation, "Booking.QualificationNotAvailable", "the tutor does not offer this qualification")
	ErrBookingStudentNotInterested     = New(KindValidation, "Booking.StudentNotInterestedInQualification", "the student is not interested in this qualification")
	ErrBookingTutorNotAvailable        = New(KindValidation, "Booking.TutorNotAvailable", "the tutor is not available at the requested time")
	ErrBookingOverlapping              = New(KindConflict, "Booking.OverlappingBooking", "the tutor already has a booking at this time")
	ErrBookingPastStartTime            = New(KindValidation, "Booking.PastStartTime", "booking start time must be in the future")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	if clone.Status == 0 {
		clone.Status = StatusFor(clone.Kind)
	}
	return &clone
}

// Clonef formats the message before cloning.
func Clonef(err *Error, format string, args ...interface{}) *Error {
	return Clone(err, fmt.Sprintf(format, args...))
}
