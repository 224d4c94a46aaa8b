package models

import "strings"

// Resource names used in permission grants.
const (
	ResourceScheduling = "scheduling"
)

// Actions recognised on a resource.
const (
	ActionRead     = "read"
	ActionWrite    = "write"
	ActionWriteAll = "write_all"
	ActionAdmin    = "admin"
)

// Permission is a single (resource, action) grant.
type Permission struct {
	Resource string `json:"resource" yaml:"resource"`
	Action   string `json:"action" yaml:"action"`
}

// ParsePermission reads the "action:resource" notation used in the API key
// configuration, e.g. "write_all:scheduling".
func ParsePermission(raw string) (Permission, bool) {
	action, resource, ok := strings.Cut(strings.TrimSpace(raw), ":")
	action = strings.ToLower(strings.TrimSpace(action))
	resource = strings.ToLower(strings.TrimSpace(resource))
	if !ok || action == "" || resource == "" {
		return Permission{}, false
	}
	return Permission{Resource: resource, Action: action}, true
}

func (p Permission) String() string {
	return p.Action + ":" + p.Resource
}

// Actor is the authenticated caller creating or editing a booking. It is
// only referenced for the duration of a request.
type Actor struct {
	ID          string       `json:"id"`
	Kind        PartyKind    `json:"kind,omitempty"` // empty for API callers, who are employees
	Name        string       `json:"name,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// NewActor builds an actor from "action:resource" strings, skipping
// malformed entries.
func NewActor(id, name string, grants []string) Actor {
	a := Actor{ID: id, Name: name}
	for _, g := range grants {
		if p, ok := ParsePermission(g); ok {
			a.Permissions = append(a.Permissions, p)
		}
	}
	return a
}

// Party returns the kind of party the actor answers invitations as.
func (a Actor) Party() PartyKind {
	if a.Kind == "" {
		return PartyEmployee
	}
	return a.Kind
}

// Can reports whether the actor holds action on resource.
func (a Actor) Can(resource, action string) bool {
	for _, p := range a.Permissions {
		if p.Resource == resource && p.Action == action {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor holds admin on any resource.
func (a Actor) IsAdmin() bool {
	for _, p := range a.Permissions {
		if p.Action == ActionAdmin {
			return true
		}
	}
	return false
}
