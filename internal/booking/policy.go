package booking

import "appointly/internal/models"

// Relation names a related party of a booking.
type Relation string

const (
	RelationClient   Relation = "client"
	RelationService  Relation = "service"
	RelationEmployee Relation = "employee"
)

// VariantPolicy says which relations a variant requires and whether they
// accept more than one party.
type VariantPolicy struct {
	NeedsClient      bool `json:"needs_client"`
	NeedsService     bool `json:"needs_service"`
	NeedsEmployee    bool `json:"needs_employee"`
	ClientMultiple   bool `json:"client_multiple"`
	EmployeeMultiple bool `json:"employee_multiple"`
}

var policies = map[models.Variant]VariantPolicy{
	models.VariantOneTime: {NeedsClient: true, NeedsService: true, NeedsEmployee: true},
	models.VariantSeries:  {NeedsClient: true, NeedsService: true, NeedsEmployee: true},
	models.VariantMeeting: {NeedsEmployee: true, ClientMultiple: true, EmployeeMultiple: true},
	models.VariantTask:    {NeedsEmployee: true},
}

// PolicyFor returns the fixed policy of a variant. Unknown variants get the
// zero policy; the validator rejects them before consulting it.
func PolicyFor(v models.Variant) VariantPolicy {
	return policies[v]
}

// Policies returns a copy of the whole table keyed by variant.
func Policies() map[models.Variant]VariantPolicy {
	out := make(map[models.Variant]VariantPolicy, len(policies))
	for k, v := range policies {
		out[k] = v
	}
	return out
}

// Required lists the relations the policy marks as mandatory, in check order.
func (p VariantPolicy) Required() []Relation {
	var out []Relation
	if p.NeedsEmployee {
		out = append(out, RelationEmployee)
	}
	if p.NeedsClient {
		out = append(out, RelationClient)
	}
	if p.NeedsService {
		out = append(out, RelationService)
	}
	return out
}
