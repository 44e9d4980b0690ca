// internal/app/system/authz/authz.go
package authz

import (
	"errors"

	"github.com/dalemusser/filescout/internal/domain/models"
)

// Action names a gated operation.
type Action string

// Administration actions. All of them require an admin subject.
const (
	ActionAddAdmin    Action = "add_admin"
	ActionAddUser     Action = "add_user"
	ActionListUsers   Action = "list_users"
	ActionListAdmins  Action = "list_admins"
	ActionFindUser    Action = "find_user"
	ActionDeleteUser  Action = "delete_user"
	ActionDeleteAdmin Action = "delete_admin"
	ActionChangeGroup Action = "change_group"
	ActionBroadcast   Action = "broadcast"
)

// ActionBrowse is folder browsing, open to every authenticated subject.
const ActionBrowse Action = "browse"

var adminActions = map[Action]bool{
	ActionAddAdmin:    true,
	ActionAddUser:     true,
	ActionListUsers:   true,
	ActionListAdmins:  true,
	ActionFindUser:    true,
	ActionDeleteUser:  true,
	ActionDeleteAdmin: true,
	ActionChangeGroup: true,
	ActionBroadcast:   true,
}

var (
	// ErrDenied is the only detail a denied caller ever sees.
	ErrDenied = errors.New("not permitted")

	// ErrLastAdmin blocks removing the only remaining admin.
	ErrLastAdmin = errors.New("cannot delete the last remaining admin")

	// ErrProtectedAdmin blocks removing the bootstrap admin.
	ErrProtectedAdmin = errors.New("the bootstrap admin cannot be deleted")
)

// Subject is the caller identity as established by a verified session.
// A zero Subject is unauthenticated.
type Subject struct {
	Role  models.Role
	Phone string
	Group string // member's group; empty for admins
}

// Authenticated reports whether the subject passed credential verification.
func (s Subject) Authenticated() bool {
	return (s.Role == models.RoleAdmin || s.Role == models.RoleMember) && s.Phone != ""
}

// IsAdmin reports whether the subject is a verified admin.
func (s Subject) IsAdmin() bool {
	return HasAnyRole(s, models.RoleAdmin)
}

// IsMember reports whether the subject is a verified member.
func (s Subject) IsMember() bool {
	return HasAnyRole(s, models.RoleMember)
}

// Authorize decides whether s may perform a. Unknown actions are denied.
func Authorize(s Subject, a Action) error {
	if !s.Authenticated() {
		return ErrDenied
	}
	if a == ActionBrowse {
		return nil
	}
	if adminActions[a] && s.IsAdmin() {
		return nil
	}
	return ErrDenied
}

// BrowseScope returns the scope tag applied to folder lookups for s.
// Admins browse unscoped (empty tag). A member without a group fails
// closed rather than falling back to unscoped access.
func BrowseScope(s Subject) (string, error) {
	if err := Authorize(s, ActionBrowse); err != nil {
		return "", err
	}
	if s.IsAdmin() {
		return "", nil
	}
	if s.Group == "" {
		return "", ErrDenied
	}
	return s.Group, nil
}

// AuthorizeAdminDeletion checks that s may delete the admin identified by
// target. protected is the bootstrap admin's phone (may be empty) and
// remaining is the current number of admins, target included.
func AuthorizeAdminDeletion(s Subject, target, protected string, remaining int64) error {
	if err := Authorize(s, ActionDeleteAdmin); err != nil {
		return err
	}
	if protected != "" && target == protected {
		return ErrProtectedAdmin
	}
	if remaining <= 1 {
		return ErrLastAdmin
	}
	return nil
}
