package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/sopami/sopami/internal/shared"
)

// Service orchestrates role and permission management plus the assignment
// engine. Every assignment replaces the target's full association set;
// batches run in a single transaction and fail fast at the first bad pair.
type Service struct {
	repo Repository
}

// NewService constructs a Service backed by the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validateIDs(kind string, ids []int64) error {
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: %s id %d must be a positive integer", shared.ErrInvalidInput, kind, id)
		}
	}
	return nil
}

// dedupeIDs drops repeated ids, preserving first-seen order. Existence
// checks compare counts against distinct store rows, and junction inserts
// carry a primary key on the pair, so repeated ids must collapse before
// either runs.
func dedupeIDs(ids []int64) []int64 {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// requireAll checks that every requested id exists, using one batched
// lookup. A count mismatch names the missing ids.
func requireAll(kind string, requested, found []int64) error {
	if len(found) == len(requested) {
		return nil
	}
	present := make(map[int64]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []string
	for _, id := range requested {
		if _, ok := present[id]; !ok {
			missing = append(missing, fmt.Sprintf("%d", id))
		}
	}
	return fmt.Errorf("%w: %s ids %s do not exist", shared.ErrNotFound, kind, strings.Join(missing, ", "))
}

// Role management

// ListRoles returns all roles with their permissions.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	if id <= 0 {
		return Role{}, fmt.Errorf("%w: role id must be a positive integer", shared.ErrInvalidInput)
	}
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalidInput)
	}
	return s.repo.CreateRole(ctx, name)
}

// UpdateRole renames an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name string) (Role, error) {
	if id <= 0 {
		return Role{}, fmt.Errorf("%w: role id must be a positive integer", shared.ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrInvalidInput)
	}
	return s.repo.UpdateRole(ctx, id, name)
}

// DeleteRoles removes the listed roles. Every id must resolve or the whole
// request is rejected.
func (s *Service) DeleteRoles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no role ids provided", shared.ErrInvalidInput)
	}
	if err := validateIDs("role", ids); err != nil {
		return err
	}
	ids = dedupeIDs(ids)
	found, err := s.repo.ExistingRoleIDs(ctx, ids)
	if err != nil {
		return err
	}
	if err := requireAll("role", ids, found); err != nil {
		return err
	}
	return s.repo.DeleteRoles(ctx, ids)
}

// Permission management

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// GetPermission fetches a permission by ID.
func (s *Service) GetPermission(ctx context.Context, id int64) (Permission, error) {
	if id <= 0 {
		return Permission{}, fmt.Errorf("%w: permission id must be a positive integer", shared.ErrInvalidInput)
	}
	return s.repo.GetPermission(ctx, id)
}

// CreatePermission inserts a new permission.
func (s *Service) CreatePermission(ctx context.Context, name, description string) (Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("%w: permission name required", shared.ErrInvalidInput)
	}
	return s.repo.CreatePermission(ctx, name, strings.TrimSpace(description))
}

// UpdatePermission updates an existing permission.
func (s *Service) UpdatePermission(ctx context.Context, id int64, name, description string) (Permission, error) {
	if id <= 0 {
		return Permission{}, fmt.Errorf("%w: permission id must be a positive integer", shared.ErrInvalidInput)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, fmt.Errorf("%w: permission name required", shared.ErrInvalidInput)
	}
	return s.repo.UpdatePermission(ctx, id, name, strings.TrimSpace(description))
}

// DeletePermissions removes the listed permissions, all-or-nothing.
func (s *Service) DeletePermissions(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no permission ids provided", shared.ErrInvalidInput)
	}
	if err := validateIDs("permission", ids); err != nil {
		return err
	}
	ids = dedupeIDs(ids)
	found, err := s.repo.ExistingPermissionIDs(ctx, ids)
	if err != nil {
		return err
	}
	if err := requireAll("permission", ids, found); err != nil {
		return err
	}
	return s.repo.DeletePermissions(ctx, ids)
}

// Assignment engine

func (s *Service) applyRoleAssignment(ctx context.Context, tx TxRepository, pair RoleAssignment) error {
	if pair.RoleID <= 0 {
		return fmt.Errorf("%w: role id %d must be a positive integer", shared.ErrInvalidInput, pair.RoleID)
	}
	if err := validateIDs("permission", pair.PermissionIDs); err != nil {
		return err
	}
	pair.PermissionIDs = dedupeIDs(pair.PermissionIDs)
	if found, err := tx.ExistingRoleIDs(ctx, []int64{pair.RoleID}); err != nil {
		return err
	} else if len(found) == 0 {
		return fmt.Errorf("%w: role %d does not exist", shared.ErrNotFound, pair.RoleID)
	}
	if len(pair.PermissionIDs) > 0 {
		found, err := tx.ExistingPermissionIDs(ctx, pair.PermissionIDs)
		if err != nil {
			return err
		}
		if err := requireAll("permission", pair.PermissionIDs, found); err != nil {
			return err
		}
	}
	return tx.ReplaceRolePermissions(ctx, pair.RoleID, pair.PermissionIDs)
}

func (s *Service) applyUserAssignment(ctx context.Context, tx TxRepository, pair UserAssignment) error {
	if pair.UserID <= 0 {
		return fmt.Errorf("%w: user id %d must be a positive integer", shared.ErrInvalidInput, pair.UserID)
	}
	if err := validateIDs("role", pair.RoleIDs); err != nil {
		return err
	}
	pair.RoleIDs = dedupeIDs(pair.RoleIDs)
	if found, err := tx.ExistingUserIDs(ctx, []int64{pair.UserID}); err != nil {
		return err
	} else if len(found) == 0 {
		return fmt.Errorf("%w: user %d does not exist", shared.ErrNotFound, pair.UserID)
	}
	if len(pair.RoleIDs) > 0 {
		found, err := tx.ExistingRoleIDs(ctx, pair.RoleIDs)
		if err != nil {
			return err
		}
		if err := requireAll("role", pair.RoleIDs, found); err != nil {
			return err
		}
	}
	return tx.ReplaceUserRoles(ctx, pair.UserID, pair.RoleIDs)
}

// SetRolePermissions replaces a role's permission set with exactly the
// given set. Assigning the same set twice is a no-op on the final state.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.applyRoleAssignment(ctx, tx, RoleAssignment{RoleID: roleID, PermissionIDs: permissionIDs})
	})
}

// SetUserRoles replaces a user's role set with exactly the given set.
func (s *Service) SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return s.applyUserAssignment(ctx, tx, UserAssignment{UserID: userID, RoleIDs: roleIDs})
	})
}

// AssignPermissions processes role-permission pairs inside one transaction.
// Processing stops at the first failing pair; the error names it, and the
// transaction rollback leaves the store unchanged.
func (s *Service) AssignPermissions(ctx context.Context, pairs []RoleAssignment) error {
	if len(pairs) == 0 {
		return fmt.Errorf("%w: no role-permission assignments provided", shared.ErrInvalidInput)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for i, pair := range pairs {
			if err := s.applyRoleAssignment(ctx, tx, pair); err != nil {
				return fmt.Errorf("assignment %d (role %d): %w", i, pair.RoleID, err)
			}
		}
		return nil
	})
}

// AssignRoles processes user-role pairs inside one transaction, failing
// fast at the first bad pair.
func (s *Service) AssignRoles(ctx context.Context, pairs []UserAssignment) error {
	if len(pairs) == 0 {
		return fmt.Errorf("%w: no user-role assignments provided", shared.ErrInvalidInput)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for i, pair := range pairs {
			if err := s.applyUserAssignment(ctx, tx, pair); err != nil {
				return fmt.Errorf("assignment %d (user %d): %w", i, pair.UserID, err)
			}
		}
		return nil
	})
}
