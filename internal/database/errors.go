package database

import "errors"

var (
	ErrBookingNotFound    = errors.New("booking not found")
	ErrAttendeeNotFound   = errors.New("attendee not found")
	ErrAttendeeNotPending = errors.New("attendee already responded")
)
