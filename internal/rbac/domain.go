package rbac

import "time"

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64
	Name        string
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// RoleAssignment replaces one role's entire permission set.
type RoleAssignment struct {
	RoleID        int64
	PermissionIDs []int64
}

// UserAssignment replaces one user's entire role set.
type UserAssignment struct {
	UserID  int64
	RoleIDs []int64
}

// Grant describes everything the guard needs to decide for one user: the
// superadmin flag and the user's roles with their permissions attached.
type Grant struct {
	UserID       int64
	IsSuperadmin bool
	Roles        []Role
}
