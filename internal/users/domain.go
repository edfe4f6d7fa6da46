package users

import "time"

// User represents a user account for management. The password hash never
// leaves the repository layer in API responses.
type User struct {
	ID           int64
	Username     string
	IsSuperadmin bool
	Roles        []RoleRef
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleRef is a user's view of an attached role.
type RoleRef struct {
	ID   int64
	Name string
}
