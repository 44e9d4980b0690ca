// internal/app/system/authz/roles.go
package authz

import (
	"strings"

	"github.com/dalemusser/filescout/internal/domain/models"
)

// HasAnyRole reports whether the subject is authenticated with any of the
// given roles.
func HasAnyRole(s Subject, roles ...models.Role) bool {
	if !s.Authenticated() {
		return false
	}
	for _, want := range roles {
		if s.Role == want {
			return true
		}
	}
	return false
}

// ParseRole maps a stored role string to a Role. Anything unrecognized
// yields RoleNone, so a corrupted session value never grants access.
func ParseRole(s string) models.Role {
	switch models.Role(strings.ToLower(strings.TrimSpace(s))) {
	case models.RoleAdmin:
		return models.RoleAdmin
	case models.RoleMember:
		return models.RoleMember
	default:
		return models.RoleNone
	}
}
