// internal/domain/models/session.go
package models

import "time"

// Phase is the named state of one caller's conversation.
type Phase string

const (
	PhaseUnauthenticated  Phase = "unauthenticated"
	PhaseAwaitingPassword Phase = "awaiting_password"
	PhaseAuthenticated    Phase = "authenticated"

	// Admin sub-flows. Only reachable with RoleAdmin.
	PhaseAddingAdminPhone      Phase = "adding_admin_phone"
	PhaseAddingAdminConfirm    Phase = "adding_admin_confirm"
	PhaseAddingUserPhone       Phase = "adding_user_phone"
	PhaseAddingUserSelectGroup Phase = "adding_user_select_group"
	PhaseSearchingUserPhone    Phase = "searching_user_phone"
	PhaseComposingBroadcast    Phase = "composing_broadcast"

	// Reachable by both roles.
	PhaseBrowsingFolder Phase = "browsing_folder"
)

// AdminSubflow reports whether p is one of the admin-only sub-flow phases.
func (p Phase) AdminSubflow() bool {
	switch p {
	case PhaseAddingAdminPhone, PhaseAddingAdminConfirm,
		PhaseAddingUserPhone, PhaseAddingUserSelectGroup,
		PhaseSearchingUserPhone, PhaseComposingBroadcast:
		return true
	}
	return false
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseUnauthenticated, PhaseAwaitingPassword, PhaseAuthenticated, PhaseBrowsingFolder:
		return true
	}
	return p.AdminSubflow()
}

// Scratch keys held in Session.Scratch during admin sub-flows.
const (
	ScratchPendingPhone   = "pending_phone"
	ScratchPendingHash    = "pending_hash"
	ScratchBroadcastGroup = "broadcast_group"
)

// Session is the persisted conversation state of one caller.
//
// Phone is the claimed phone number and only identifies the account once
// Role is set. Role is written only as the result of a successful password
// verification. Plaintext passwords are never stored here.
type Session struct {
	CallerID  int64             `bson:"_id"`
	Phase     Phase             `bson:"phase"`
	Phone     string            `bson:"phone,omitempty"`
	Role      Role              `bson:"role,omitempty"`
	Scratch   map[string]string `bson:"scratch,omitempty"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// Authenticated reports whether the session carries a verified role.
func (s Session) Authenticated() bool {
	if s.Role != RoleAdmin && s.Role != RoleMember {
		return false
	}
	return s.Phase != PhaseUnauthenticated && s.Phase != PhaseAwaitingPassword && s.Phase != ""
}

// Get returns a scratch value or "".
func (s Session) Get(key string) string {
	if s.Scratch == nil {
		return ""
	}
	return s.Scratch[key]
}
