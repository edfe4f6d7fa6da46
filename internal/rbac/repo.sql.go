package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sopami/sopami/internal/platform/db"
	"github.com/sopami/sopami/internal/shared"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query
// helpers serve single-shot calls and transactional batches.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a transaction; any error rolls back every
// mutation made through the TxRepository.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicateName
	}
	return err
}

// Roles

const roleWithPermissionsQuery = `
SELECT r.id, r.name, r.created_at, r.updated_at, p.id, p.name, p.description
FROM roles r
LEFT JOIN role_permissions rp ON rp.role_id = r.id
LEFT JOIN permissions p ON p.id = rp.permission_id
`

func scanRolesWithPermissions(rows pgx.Rows) ([]Role, error) {
	var roles []Role
	index := make(map[int64]int)
	for rows.Next() {
		var role Role
		var permID *int64
		var permName, permDesc *string
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt, &permID, &permName, &permDesc); err != nil {
			return nil, err
		}
		pos, ok := index[role.ID]
		if !ok {
			pos = len(roles)
			index[role.ID] = pos
			roles = append(roles, role)
		}
		if permID != nil {
			perm := Permission{ID: *permID}
			if permName != nil {
				perm.Name = *permName
			}
			if permDesc != nil {
				perm.Description = *permDesc
			}
			roles[pos].Permissions = append(roles[pos].Permissions, perm)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// ListRoles returns all roles with their permissions attached.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, roleWithPermissionsQuery+` ORDER BY r.id, p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRolesWithPermissions(rows)
}

// GetRole fetches a role by ID with its permissions.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	rows, err := r.pool.Query(ctx, roleWithPermissionsQuery+` WHERE r.id = $1 ORDER BY p.id`, id)
	if err != nil {
		return Role{}, err
	}
	defer rows.Close()
	roles, err := scanRolesWithPermissions(rows)
	if err != nil {
		return Role{}, err
	}
	if len(roles) == 0 {
		return Role{}, shared.ErrNotFound
	}
	return roles[0], nil
}

// CreateRole inserts a new role.
func (r *PGRepository) CreateRole(ctx context.Context, name string) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name) VALUES ($1) RETURNING id, name, created_at, updated_at`, name)
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, mapWriteError(err)
	}
	return role, nil
}

// UpdateRole renames an existing role.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, name string) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE roles SET name = $2, updated_at = now() WHERE id = $1 RETURNING id, name, created_at, updated_at`,
		id, name)
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, mapWriteError(err)
	}
	return role, nil
}

// DeleteRoles removes the given roles; junction rows cascade away with them.
func (r *PGRepository) DeleteRoles(ctx context.Context, ids []int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = ANY($1)`, ids)
	return err
}

// Permissions

// ListPermissions returns all permissions ordered by id.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var perm Permission
		if err := rows.Scan(&perm.ID, &perm.Name, &perm.Description); err != nil {
			return nil, err
		}
		perms = append(perms, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// GetPermission fetches a permission by ID.
func (r *PGRepository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, description FROM permissions WHERE id = $1`, id)
	var perm Permission
	if err := row.Scan(&perm.ID, &perm.Name, &perm.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return perm, nil
}

// CreatePermission inserts a new permission.
func (r *PGRepository) CreatePermission(ctx context.Context, name, description string) (Permission, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (name, description) VALUES ($1, $2) RETURNING id, name, description`,
		name, description)
	var perm Permission
	if err := row.Scan(&perm.ID, &perm.Name, &perm.Description); err != nil {
		return Permission{}, mapWriteError(err)
	}
	return perm, nil
}

// UpdatePermission updates an existing permission.
func (r *PGRepository) UpdatePermission(ctx context.Context, id int64, name, description string) (Permission, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE permissions SET name = $2, description = $3, updated_at = now() WHERE id = $1 RETURNING id, name, description`,
		id, name, description)
	var perm Permission
	if err := row.Scan(&perm.ID, &perm.Name, &perm.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, mapWriteError(err)
	}
	return perm, nil
}

// DeletePermissions removes the given permissions; junction rows cascade.
func (r *PGRepository) DeletePermissions(ctx context.Context, ids []int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE id = ANY($1)`, ids)
	return err
}

// Existence checks and association replacement, shared between pool and tx.

func existingIDs(ctx context.Context, q querier, table string, ids []int64) ([]int64, error) {
	rows, err := q.Query(ctx, `SELECT id FROM `+table+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var found []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found = append(found, id)
	}
	return found, rows.Err()
}

func replaceRolePermissions(ctx context.Context, q querier, roleID int64, permissionIDs []int64) error {
	if _, err := q.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	if len(permissionIDs) == 0 {
		return nil
	}
	_, err := q.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id) SELECT $1, unnest($2::bigint[])`,
		roleID, permissionIDs)
	return err
}

func replaceUserRoles(ctx context.Context, q querier, userID int64, roleIDs []int64) error {
	if _, err := q.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}
	_, err := q.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) SELECT $1, unnest($2::bigint[])`,
		userID, roleIDs)
	return err
}

// ExistingUserIDs returns the subset of ids present in users.
func (r *PGRepository) ExistingUserIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return existingIDs(ctx, r.pool, "users", ids)
}

// ExistingRoleIDs returns the subset of ids present in roles.
func (r *PGRepository) ExistingRoleIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return existingIDs(ctx, r.pool, "roles", ids)
}

// ExistingPermissionIDs returns the subset of ids present in permissions.
func (r *PGRepository) ExistingPermissionIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return existingIDs(ctx, r.pool, "permissions", ids)
}

// ReplaceRolePermissions atomically swaps a role's permission set.
func (r *PGRepository) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return r.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.ReplaceRolePermissions(ctx, roleID, permissionIDs)
	})
}

// ReplaceUserRoles atomically swaps a user's role set.
func (r *PGRepository) ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return r.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.ReplaceUserRoles(ctx, userID, roleIDs)
	})
}

func (t *txRepo) ExistingUserIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return existingIDs(ctx, t.tx, "users", ids)
}

func (t *txRepo) ExistingRoleIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return existingIDs(ctx, t.tx, "roles", ids)
}

func (t *txRepo) ExistingPermissionIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return existingIDs(ctx, t.tx, "permissions", ids)
}

func (t *txRepo) ReplaceRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return replaceRolePermissions(ctx, t.tx, roleID, permissionIDs)
}

func (t *txRepo) ReplaceUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return replaceUserRoles(ctx, t.tx, userID, roleIDs)
}

// Grants loads the decision inputs for one user: the superadmin flag plus
// the user's roles with permissions. Missing user maps to ErrNotFound.
func (r *PGRepository) Grants(ctx context.Context, userID int64) (Grant, error) {
	grant := Grant{UserID: userID}
	row := r.pool.QueryRow(ctx, `SELECT is_superadmin FROM users WHERE id = $1`, userID)
	if err := row.Scan(&grant.IsSuperadmin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, shared.ErrNotFound
		}
		return Grant{}, err
	}

	rows, err := r.pool.Query(ctx, `
SELECT r.id, r.name, r.created_at, r.updated_at, p.id, p.name, p.description
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
LEFT JOIN role_permissions rp ON rp.role_id = r.id
LEFT JOIN permissions p ON p.id = rp.permission_id
WHERE ur.user_id = $1
ORDER BY r.id, p.id`, userID)
	if err != nil {
		return Grant{}, err
	}
	defer rows.Close()
	roles, err := scanRolesWithPermissions(rows)
	if err != nil {
		return Grant{}, err
	}
	grant.Roles = roles
	return grant, nil
}

var _ Repository = (*PGRepository)(nil)
