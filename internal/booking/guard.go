package booking

import (
	"slices"

	"appointly/internal/models"
)

// Scope is the breadth of booking authority an actor was granted.
type Scope string

const (
	ScopeAdmin Scope = "admin"
	ScopeAll   Scope = "all"
	ScopeSelf  Scope = "self"
)

// Authorization records that an actor may assign a given set of employees.
// Only the guard produces a non-zero value.
type Authorization struct {
	ActorID     string
	Scope       Scope
	employeeIDs []string
}

// Covers reports whether the authorization was granted for exactly this
// employee assignment.
func (a Authorization) Covers(employeeIDs []string) bool {
	if a.Scope == "" {
		return false
	}
	return slices.Equal(a.employeeIDs, employeeIDs)
}

// Override applies the general admin rule: admin on any resource allows any
// booking mutation. It is checked before the scheduling guard.
func Override(actor models.Actor, employeeIDs []string) (Authorization, bool) {
	if !actor.IsAdmin() {
		return Authorization{}, false
	}
	return Authorization{ActorID: actor.ID, Scope: ScopeAdmin, employeeIDs: slices.Clone(employeeIDs)}, true
}

// Authorize is the scheduling guard. write_all or admin on scheduling allow
// any assignment; plain write allows only an empty assignment or the actor
// alone; anything else is denied. The rule does not depend on the variant.
func Authorize(actor models.Actor, employeeIDs []string) (Authorization, error) {
	ids := slices.Clone(employeeIDs)

	if actor.Can(models.ResourceScheduling, models.ActionAdmin) {
		return Authorization{ActorID: actor.ID, Scope: ScopeAdmin, employeeIDs: ids}, nil
	}
	if actor.Can(models.ResourceScheduling, models.ActionWriteAll) {
		return Authorization{ActorID: actor.ID, Scope: ScopeAll, employeeIDs: ids}, nil
	}
	if actor.Can(models.ResourceScheduling, models.ActionWrite) {
		for _, id := range ids {
			if actor.ID == "" || id != actor.ID {
				return Authorization{}, ErrPermissionDenied
			}
		}
		return Authorization{ActorID: actor.ID, Scope: ScopeSelf, employeeIDs: ids}, nil
	}
	return Authorization{}, ErrPermissionDenied
}

// Check runs the admin override and then the scheduling guard.
func Check(actor models.Actor, employeeIDs []string) (Authorization, error) {
	if auth, ok := Override(actor, employeeIDs); ok {
		return auth, nil
	}
	return Authorize(actor, employeeIDs)
}
