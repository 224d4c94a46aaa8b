package models

import "time"

// Draft is a booking request being filled in by an actor, one field at a
// time. Discarding a draft needs no cleanup: nothing is persisted until submit.
type Draft struct {
	ID        string         `json:"id"`
	ActorID   string         `json:"actor_id"`
	Request   BookingRequest `json:"request"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DraftPatch carries the fields to overwrite on a draft. Nil means "leave as is".
type DraftPatch struct {
	EmployeeIDs     *[]string  `json:"employee_ids,omitempty"`
	ClientIDs       *[]string  `json:"client_ids,omitempty"`
	ServiceID       *string    `json:"service_id,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	StartHour       *int       `json:"start_hour,omitempty"`
	StartMinute     *int       `json:"start_minute,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	Frequency       *Frequency `json:"frequency,omitempty"`
	Until           *time.Time `json:"until,omitempty"`
	Count           *int       `json:"count,omitempty"`
}

// Apply copies the set fields of p onto the request.
func (p DraftPatch) Apply(r *BookingRequest) {
	if p.EmployeeIDs != nil {
		r.EmployeeIDs = append([]string(nil), (*p.EmployeeIDs)...)
	}
	if p.ClientIDs != nil {
		r.ClientIDs = append([]string(nil), (*p.ClientIDs)...)
	}
	if p.ServiceID != nil {
		r.ServiceID = *p.ServiceID
	}
	if p.StartDate != nil {
		r.StartDate = TruncateDay(*p.StartDate)
	}
	if p.StartHour != nil {
		r.StartHour = IntPtr(*p.StartHour)
	}
	if p.StartMinute != nil {
		r.StartMinute = IntPtr(*p.StartMinute)
	}
	if p.DurationMinutes != nil {
		r.DurationMinutes = *p.DurationMinutes
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.Frequency != nil {
		if r.Recurrence == nil {
			r.Recurrence = NewRecurrence(*p.Frequency)
		} else {
			r.Recurrence.Frequency = *p.Frequency
		}
	}
	// until и count взаимоисключающие, последний выигрывает
	if p.Until != nil {
		r.ensureRecurrence().SetUntil(*p.Until)
	}
	if p.Count != nil {
		r.ensureRecurrence().SetAfterCount(*p.Count)
	}
}

func (r *BookingRequest) ensureRecurrence() *RecurrenceSpec {
	if r.Recurrence == nil {
		r.Recurrence = &RecurrenceSpec{}
	}
	return r.Recurrence
}
