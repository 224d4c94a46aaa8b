package booking

import (
	"errors"
	"fmt"
)

// Validation failures, in the order the validator checks them.
var (
	ErrUnknownVariant          = errors.New("booking: unknown variant")
	ErrMissingTimeFields       = errors.New("booking: date, hour and minute are required")
	ErrOutOfBusinessWindow     = errors.New("booking: start hour is outside business hours")
	ErrMissingDuration         = errors.New("booking: duration is required")
	ErrMissingRequiredRelation = errors.New("booking: required relation is missing")
)

// Recurrence failures. Both wrap ErrRecurrence.
var (
	ErrRecurrence         = errors.New("booking: invalid recurrence")
	ErrMissingRecurrence  = fmt.Errorf("%w: series needs a recurrence rule", ErrRecurrence)
	ErrInvalidFrequency   = fmt.Errorf("%w: unsupported frequency", ErrRecurrence)
	ErrInvalidTermination = fmt.Errorf("%w: invalid termination", ErrRecurrence)
)

// ErrPermissionDenied is returned when the actor may not assign the chosen employees.
var ErrPermissionDenied = errors.New("booking: permission denied")

// ErrNotValidated is returned by Assemble for a request that did not come out of the validator.
var ErrNotValidated = errors.New("booking: request was not validated")

// Attendance failures.
var (
	ErrUnknownAttendee  = errors.New("booking: unknown attendee")
	ErrAlreadyResponded = errors.New("booking: attendee already responded")
	ErrInvalidDecision  = errors.New("booking: decision must be accepted or declined")
)

// ValidationError names the field that broke a rule. Err is one of the
// sentinels above, so callers can use errors.Is for the rule and errors.As
// for the field.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (%s)", e.Err.Error(), e.Field)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func fieldError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// Code returns a short machine-readable name for a core error, or "" when
// err is not one of ours. Transports use it to tag responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnknownVariant):
		return "unknown_variant"
	case errors.Is(err, ErrMissingTimeFields):
		return "missing_time_fields"
	case errors.Is(err, ErrOutOfBusinessWindow):
		return "out_of_business_window"
	case errors.Is(err, ErrMissingDuration):
		return "missing_duration"
	case errors.Is(err, ErrMissingRequiredRelation):
		return "missing_required_relation"
	case errors.Is(err, ErrMissingRecurrence):
		return "missing_recurrence"
	case errors.Is(err, ErrInvalidFrequency):
		return "invalid_frequency"
	case errors.Is(err, ErrInvalidTermination):
		return "invalid_termination"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrUnknownAttendee):
		return "unknown_attendee"
	case errors.Is(err, ErrAlreadyResponded):
		return "already_responded"
	case errors.Is(err, ErrInvalidDecision):
		return "invalid_decision"
	default:
		return ""
	}
}

// IsValidation reports whether err is an input error the caller can fix by
// re-prompting.
func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr) || errors.Is(err, ErrRecurrence) || errors.Is(err, ErrUnknownVariant)
}
