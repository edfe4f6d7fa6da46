package rbac

import "context"

// TxRepository exposes the operations a batch assignment runs inside a
// single transaction. Each Replace call swaps the full association set;
// existence checks return the subset of the requested ids that exist.
type TxRepository interface {
	ExistingUserIDs(ctx context.Context, ids []int64) ([]int64, error)
	ExistingRoleIDs(ctx context.Context, ids []int64) ([]int64, error)
	ExistingPermissionIDs(ctx context.Context, ids []int64) ([]int64, error)
	ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
}

// Repository defines data access for roles, permissions, and their
// associations. Single-shot calls run on the pool; WithTx scopes a callback
// to one transaction so a rejected batch leaves the store unchanged.
type Repository interface {
	TxRepository
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name string) (Role, error)
	DeleteRoles(ctx context.Context, ids []int64) error

	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id int64) (Permission, error)
	CreatePermission(ctx context.Context, name, description string) (Permission, error)
	UpdatePermission(ctx context.Context, id int64, name, description string) (Permission, error)
	DeletePermissions(ctx context.Context, ids []int64) error

	Grants(ctx context.Context, userID int64) (Grant, error)
}
