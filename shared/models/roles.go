package models

import "regexp"

// Default roles and permission codes seeded by the migrations.
const (
	RoleUser    = "user"
	RoleManager = "manager"

	PermissionUser    = "user.user"
	PermissionManager = "manager.manager"

	// UnknownRole is reported by /auth/me for users without a role.
	UnknownRole = "unknown"
)

// Permission is a single permission code.
type Permission struct {
	ID          int    `db:"id" json:"-"`
	Code        string `db:"code" json:"code"`
	Description string `db:"description" json:"description"`
}

// Role groups permissions.
type Role struct {
	ID          int          `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Description string       `db:"description" json:"description"`
	Permissions []Permission `db:"-" json:"permissions"`
}

// PermissionCodes returns the codes of the role's permissions in order.
func (r *Role) PermissionCodes() []string {
	if r == nil {
		return []string{}
	}
	codes := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		codes = append(codes, p.Code)
	}
	return codes
}

// HasPermission проверяет, есть ли в списке указанный код разрешения.
func HasPermission(permissions []string, target string) bool {
	for _, p := range permissions {
		if p == target {
			return true
		}
	}
	return false
}

// permissionCodePattern - коды вида "scope.action", например catalog.edit.
var permissionCodePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)

// IsValidPermissionCode reports whether code has the "scope.action" shape.
func IsValidPermissionCode(code string) bool {
	return permissionCodePattern.MatchString(code)
}
