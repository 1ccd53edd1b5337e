package identity

import "strings"

// Role is a closed set of actor roles recognized by the engine.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTranslator Role = "translator"
	RoleReviewer   Role = "reviewer"
)

var roleSet = map[Role]struct{}{
	RoleAdmin:      {},
	RoleTranslator: {},
	RoleReviewer:   {},
}

// ParseRole converts a string into a known Role.
func ParseRole(value string) (Role, bool) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := roleSet[normalized]
	return normalized, ok
}

// Actor identifies who is performing an operation. Authentication happens
// outside the engine; the engine only authorizes against role and ownership.
type Actor struct {
	ID   string
	Role Role
}

// Action enumerates the role-gated operations of the engine.
type Action string

const (
	ActionCreatePacket  Action = "create_packet"
	ActionArchivePacket Action = "archive_packet"
	ActionSaveDraft     Action = "save_draft"
	ActionSubmit        Action = "submit"
	ActionReview        Action = "review"
	ActionExport        Action = "export"
)

// allowed is the single authorization table: every role check in the engine
// consults this map instead of comparing role strings ad hoc.
var allowed = map[Role]map[Action]struct{}{
	RoleAdmin: {
		ActionCreatePacket:  {},
		ActionArchivePacket: {},
		ActionExport:        {},
	},
	RoleTranslator: {
		ActionSaveDraft: {},
		ActionSubmit:    {},
	},
	RoleReviewer: {
		ActionReview: {},
		ActionExport: {},
	},
}

// Can reports whether the actor's role permits the action. Ownership guards
// (a translator touching only their own units) are enforced separately by the
// lifecycle engine.
func (a Actor) Can(action Action) bool {
	grants, ok := allowed[a.Role]
	if !ok {
		return false
	}
	_, ok = grants[action]
	return ok
}
