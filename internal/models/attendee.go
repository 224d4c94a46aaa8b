package models

import "time"

// AttendeeStatus is the invitation state of a meeting attendee.
type AttendeeStatus string

const (
	AttendeePending  AttendeeStatus = "pending"
	AttendeeAccepted AttendeeStatus = "accepted"
	AttendeeDeclined AttendeeStatus = "declined"
)

// Terminal reports whether no further transition is allowed.
func (s AttendeeStatus) Terminal() bool {
	return s == AttendeeAccepted || s == AttendeeDeclined
}

// PartyKind tells whether a party reference points at an employee or a client.
type PartyKind string

const (
	PartyEmployee PartyKind = "employee"
	PartyClient   PartyKind = "client"
)

// Attendee is an invited party of a meeting.
type Attendee struct {
	PartyID     string         `json:"party_id"`
	PartyKind   PartyKind      `json:"party_kind"`
	Status      AttendeeStatus `json:"status"`
	RespondedAt *time.Time     `json:"responded_at,omitempty"`
}
