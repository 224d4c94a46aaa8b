package booking

import (
	"slices"
	"strings"

	"appointly/internal/models"
)

// Rules are the time-window limits the validator enforces.
type Rules struct {
	StartHour      int
	EndHour        int
	Minutes        []int
	MaxOccurrences int
}

// DefaultRules returns the business window used by the console: starts from
// 06:00 to 21:45 on a quarter-hour grid, series of at most 365 occurrences.
func DefaultRules() Rules {
	return Rules{
		StartHour:      models.BusinessStartHour,
		EndHour:        models.BusinessEndHour,
		Minutes:        slices.Clone(models.QuarterMinutes),
		MaxOccurrences: models.MaxOccurrences,
	}
}

func (r Rules) withDefaults() Rules {
	def := DefaultRules()
	if r.StartHour == 0 && r.EndHour == 0 {
		r.StartHour, r.EndHour = def.StartHour, def.EndHour
	}
	if len(r.Minutes) == 0 {
		r.Minutes = def.Minutes
	}
	if r.MaxOccurrences <= 0 {
		r.MaxOccurrences = def.MaxOccurrences
	}
	return r
}

// ValidatedRequest is a BookingRequest that passed every structural check.
// Only Validator.Validate produces one, so later stages do not re-check.
type ValidatedRequest struct {
	req    models.BookingRequest
	policy VariantPolicy
	ok     bool
}

// Request returns a copy of the validated request.
func (v ValidatedRequest) Request() models.BookingRequest {
	return v.req.Clone()
}

// Policy returns the variant policy the request was checked against.
func (v ValidatedRequest) Policy() VariantPolicy {
	return v.policy
}

// EmployeeIDs returns the cleaned, de-duplicated employee list.
func (v ValidatedRequest) EmployeeIDs() []string {
	return slices.Clone(v.req.EmployeeIDs)
}

// Validator checks booking requests. It keeps no state between calls and is
// safe for concurrent use.
type Validator struct {
	rules Rules
}

func NewValidator(rules Rules) *Validator {
	return &Validator{rules: rules.withDefaults()}
}

// Rules returns the effective rules.
func (v *Validator) Rules() Rules {
	return v.rules
}

// Validate runs the checks in a fixed order and stops at the first failure:
// time fields, business window, duration, required relations, recurrence.
func (v *Validator) Validate(req models.BookingRequest) (ValidatedRequest, error) {
	if !req.Variant.Valid() {
		return ValidatedRequest{}, fieldError("variant", ErrUnknownVariant)
	}

	req = normalize(req)

	switch {
	case req.StartDate.IsZero():
		return ValidatedRequest{}, fieldError("start_date", ErrMissingTimeFields)
	case req.StartHour == nil:
		return ValidatedRequest{}, fieldError("start_hour", ErrMissingTimeFields)
	case req.StartMinute == nil || !slices.Contains(v.rules.Minutes, *req.StartMinute):
		return ValidatedRequest{}, fieldError("start_minute", ErrMissingTimeFields)
	}

	// Both ends are inclusive. Duration is not checked against closing time.
	if h := *req.StartHour; h < v.rules.StartHour || h > v.rules.EndHour {
		return ValidatedRequest{}, fieldError("start_hour", ErrOutOfBusinessWindow)
	}

	if req.DurationMinutes <= 0 {
		return ValidatedRequest{}, fieldError("duration_minutes", ErrMissingDuration)
	}

	policy := PolicyFor(req.Variant)
	for _, rel := range policy.Required() {
		if !hasRelation(req, rel) {
			return ValidatedRequest{}, fieldError(string(rel), ErrMissingRequiredRelation)
		}
	}

	if req.Variant == models.VariantSeries {
		if err := ValidateRecurrence(req.Recurrence, req.StartDate, v.rules.MaxOccurrences); err != nil {
			return ValidatedRequest{}, err
		}
	}

	return ValidatedRequest{req: req, policy: policy, ok: true}, nil
}

func hasRelation(req models.BookingRequest, rel Relation) bool {
	switch rel {
	case RelationEmployee:
		return len(req.EmployeeIDs) > 0
	case RelationClient:
		return len(req.ClientIDs) > 0
	case RelationService:
		return req.ServiceID != ""
	default:
		return false
	}
}

// normalize returns a cleaned copy: blank ids dropped, duplicates removed
// keeping the first occurrence, the date truncated to the day.
func normalize(req models.BookingRequest) models.BookingRequest {
	out := req.Clone()
	out.EmployeeIDs = orderedSet(out.EmployeeIDs)
	out.ClientIDs = orderedSet(out.ClientIDs)
	out.ServiceID = strings.TrimSpace(out.ServiceID)
	if !out.StartDate.IsZero() {
		out.StartDate = models.TruncateDay(out.StartDate)
	}
	return out
}

func orderedSet(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
