package enums

import (
	"fmt"
	"strings"
)

// UserRole is the coarse permission carried in access tokens.
type UserRole string

const (
	UserRoleAdmin        UserRole = "admin"
	UserRoleAssetManager UserRole = "asset_manager"
	UserRoleViewer       UserRole = "viewer"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleAssetManager,
	UserRoleViewer,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanMutate reports whether the role may change asset state.
func (r UserRole) CanMutate() bool {
	return r == UserRoleAdmin || r == UserRoleAssetManager
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validUserRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
