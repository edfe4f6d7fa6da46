package users

import "context"

// NewUser carries the fields needed to provision an account.
type NewUser struct {
	Username     string
	PasswordHash string
	IsSuperadmin bool
	RoleIDs      []int64
}

// UserUpdate carries a full replacement of a user's mutable fields. An
// empty PasswordHash keeps the stored credential.
type UserUpdate struct {
	Username     string
	PasswordHash string
	RoleIDs      []int64
}

// RepositoryPort defines data access methods for users. Creation and
// update attach the role set in the same transaction as the user row, so
// no reader ever observes a half-updated account.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	UsersByIDs(ctx context.Context, ids []int64) ([]User, error)
	CreateUser(ctx context.Context, user NewUser) (User, error)
	UpdateUser(ctx context.Context, id int64, update UserUpdate) (User, error)
	DeleteUsers(ctx context.Context, ids []int64) error
	ExistingRoleIDs(ctx context.Context, ids []int64) ([]int64, error)
	HasSuperadmin(ctx context.Context) (bool, error)
}
