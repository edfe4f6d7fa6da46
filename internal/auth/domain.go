package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsSuperadmin bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
