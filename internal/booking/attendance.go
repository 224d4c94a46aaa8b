package booking

import (
	"time"

	"appointly/internal/models"
)

// InitialAttendees builds the invitation list of a meeting. The creator, if
// listed among the employees, is accepted; every other employee and client
// starts pending. It returns nil for fewer than two employees.
func InitialAttendees(creatorID string, employeeIDs, clientIDs []string) []models.Attendee {
	if len(employeeIDs) < 2 {
		return nil
	}

	out := make([]models.Attendee, 0, len(employeeIDs)+len(clientIDs))
	for _, id := range employeeIDs {
		status := models.AttendeePending
		if id == creatorID {
			status = models.AttendeeAccepted
		}
		out = append(out, models.Attendee{PartyID: id, PartyKind: models.PartyEmployee, Status: status})
	}
	for _, id := range clientIDs {
		out = append(out, models.Attendee{PartyID: id, PartyKind: models.PartyClient, Status: models.AttendeePending})
	}
	return out
}

// Respond moves a pending attendee to accepted or declined. The attendee is
// matched by party kind and id. The input slice is not modified; the updated
// list and the updated attendee are returned.
func Respond(attendees []models.Attendee, kind models.PartyKind, partyID string, decision models.AttendeeStatus, at time.Time) ([]models.Attendee, models.Attendee, error) {
	if !decision.Terminal() {
		return nil, models.Attendee{}, ErrInvalidDecision
	}

	idx := -1
	for i, a := range attendees {
		if a.PartyKind == kind && a.PartyID == partyID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, models.Attendee{}, ErrUnknownAttendee
	}
	if attendees[idx].Status.Terminal() {
		return nil, models.Attendee{}, ErrAlreadyResponded
	}

	out := make([]models.Attendee, len(attendees))
	copy(out, attendees)
	ts := at
	out[idx].Status = decision
	out[idx].RespondedAt = &ts
	return out, out[idx], nil
}

// Summary counts attendees per status.
func Summary(attendees []models.Attendee) map[models.AttendeeStatus]int {
	out := map[models.AttendeeStatus]int{
		models.AttendeePending:  0,
		models.AttendeeAccepted: 0,
		models.AttendeeDeclined: 0,
	}
	for _, a := range attendees {
		out[a.Status]++
	}
	return out
}
