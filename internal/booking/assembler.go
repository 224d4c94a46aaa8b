package booking

import (
	"fmt"
	"slices"

	"appointly/internal/models"
)

// Assemble composes the confirmed booking from a validated request and the
// authorization granted for it. It is deterministic and has no side effects.
func Assemble(v ValidatedRequest, auth Authorization) (models.ConfirmedBooking, error) {
	if !v.ok {
		return models.ConfirmedBooking{}, ErrNotValidated
	}
	if !auth.Covers(v.req.EmployeeIDs) {
		return models.ConfirmedBooking{}, ErrPermissionDenied
	}

	req := v.req
	policy := v.policy

	out := models.ConfirmedBooking{
		Variant:         req.Variant,
		Timestamp:       timestamp(req),
		StartDate:       req.StartDate.Format(models.DateLayout),
		StartHour:       *req.StartHour,
		StartMinute:     *req.StartMinute,
		DurationMinutes: req.DurationMinutes,
		ServiceID:       req.ServiceID,
		Notes:           req.Notes,
		CreatedBy:       auth.ActorID,
	}

	out.EmployeeID, out.EmployeeIDs = pick(req.EmployeeIDs, policy.EmployeeMultiple)
	out.ClientID, out.ClientIDs = pick(req.ClientIDs, policy.ClientMultiple)

	if req.Variant == models.VariantSeries {
		out.Recurrence = req.Recurrence.Clone()
	}
	if req.Variant == models.VariantMeeting {
		out.Attendees = InitialAttendees(auth.ActorID, out.EmployeeIDs, out.ClientIDs)
	}
	return out, nil
}

// pick returns the primary id and the list kept on the booking: the whole
// ordered list for multi-party relations, only the first id otherwise.
func pick(ids []string, multiple bool) (string, []string) {
	if len(ids) == 0 {
		return "", nil
	}
	if multiple {
		return ids[0], slices.Clone(ids)
	}
	return ids[0], []string{ids[0]}
}

// timestamp merges date, hour and minute into a naive local timestamp.
func timestamp(req models.BookingRequest) string {
	d := req.StartDate
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:00", d.Year(), int(d.Month()), d.Day(), *req.StartHour, *req.StartMinute)
}

// Pipeline runs validate, authorize and assemble in order. Each stage stops
// the run with its own error.
type Pipeline struct {
	validator *Validator
}

func NewPipeline(validator *Validator) *Pipeline {
	if validator == nil {
		validator = NewValidator(DefaultRules())
	}
	return &Pipeline{validator: validator}
}

// Validator returns the validator used by the pipeline.
func (p *Pipeline) Validator() *Validator {
	return p.validator
}

// Confirm turns a request into a confirmed booking on behalf of actor.
func (p *Pipeline) Confirm(actor models.Actor, req models.BookingRequest) (models.ConfirmedBooking, error) {
	validated, err := p.validator.Validate(req)
	if err != nil {
		return models.ConfirmedBooking{}, err
	}

	auth, err := Check(actor, validated.EmployeeIDs())
	if err != nil {
		return models.ConfirmedBooking{}, err
	}

	return Assemble(validated, auth)
}
