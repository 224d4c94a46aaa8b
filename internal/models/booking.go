package models

import "time"

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// TimestampLayout is the naive local timestamp of a confirmed booking.
// No offset is attached on purpose: the wall-clock time is what the user picked.
const TimestampLayout = "2006-01-02T15:04:05"

// BookingRequest is a booking under construction. It is filled field by field
// and validated as a whole before it becomes a ConfirmedBooking.
type BookingRequest struct {
	Variant         Variant         `json:"variant"`
	EmployeeIDs     []string        `json:"employee_ids,omitempty"`
	ClientIDs       []string        `json:"client_ids,omitempty"`
	ServiceID       string          `json:"service_id,omitempty"`
	StartDate       time.Time       `json:"start_date"`
	StartHour       *int            `json:"start_hour,omitempty"`
	StartMinute     *int            `json:"start_minute,omitempty"`
	DurationMinutes int             `json:"duration_minutes,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Recurrence      *RecurrenceSpec `json:"recurrence,omitempty"`
}

// Clone returns a deep copy so that callers can keep mutating their draft.
func (r BookingRequest) Clone() BookingRequest {
	out := r
	out.EmployeeIDs = append([]string(nil), r.EmployeeIDs...)
	out.ClientIDs = append([]string(nil), r.ClientIDs...)
	if r.StartHour != nil {
		h := *r.StartHour
		out.StartHour = &h
	}
	if r.StartMinute != nil {
		m := *r.StartMinute
		out.StartMinute = &m
	}
	out.Recurrence = r.Recurrence.Clone()
	return out
}

// ConfirmedBooking is the validated, authorized and assembled booking handed
// to the scheduling store. It is never modified after assembly.
type ConfirmedBooking struct {
	Variant         Variant         `json:"variant"`
	Timestamp       string          `json:"timestamp"`
	StartDate       string          `json:"start_date"`
	StartHour       int             `json:"start_hour"`
	StartMinute     int             `json:"start_minute"`
	DurationMinutes int             `json:"duration_minutes"`
	EmployeeID      string          `json:"employee_id,omitempty"`
	EmployeeIDs     []string        `json:"employee_ids,omitempty"`
	ClientID        string          `json:"client_id,omitempty"`
	ClientIDs       []string        `json:"client_ids,omitempty"`
	ServiceID       string          `json:"service_id,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Recurrence      *RecurrenceSpec `json:"recurrence,omitempty"`
	Attendees       []Attendee      `json:"attendees,omitempty"`
	CreatedBy       string          `json:"created_by"`
}

// HasClient reports whether at least one client is attached.
func (b ConfirmedBooking) HasClient() bool {
	return b.ClientID != "" || len(b.ClientIDs) > 0
}

// StoredBooking is a ConfirmedBooking as read back from the scheduling store.
type StoredBooking struct {
	ID int64 `json:"id"`
	ConfirmedBooking
	CreatedAt time.Time `json:"created_at"`
}

// IntPtr is a small helper for the optional hour/minute fields.
func IntPtr(v int) *int {
	return &v
}
