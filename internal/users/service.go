package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sopami/sopami/internal/shared"
)

// Service handles user business logic: account provisioning with validated
// role sets, protected bulk deletion, and the startup superadmin seed.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func validateRoleIDs(ids []int64) error {
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: role id %d must be a positive integer", shared.ErrInvalidInput, id)
		}
	}
	return nil
}

// dedupeIDs drops repeated ids, preserving first-seen order. Store lookups
// return distinct rows and the user_roles insert carries a pair primary
// key, so repeated ids must collapse before either runs.
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

// requireRoles verifies every requested role exists via one batched lookup.
func (s *Service) requireRoles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.repo.ExistingRoleIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}
	present := make(map[int64]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, fmt.Sprintf("%d", id))
		}
	}
	return fmt.Errorf("%w: roles with ids %s do not exist", shared.ErrNotFound, strings.Join(missing, ", "))
}

// ListUsers returns all users with their roles.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser fetches one user with roles.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: user id must be a positive integer", shared.ErrInvalidInput)
	}
	return s.repo.GetUser(ctx, id)
}

// CreateUser provisions an account. Every referenced role must exist; the
// password is stored only as a bcrypt hash.
func (s *Service) CreateUser(ctx context.Context, username, password string, roleIDs []int64) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, fmt.Errorf("%w: username and password are required", shared.ErrInvalidInput)
	}
	if err := validateRoleIDs(roleIDs); err != nil {
		return User{}, err
	}
	roleIDs = dedupeIDs(roleIDs)
	if err := s.requireRoles(ctx, roleIDs); err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.repo.CreateUser(ctx, NewUser{
		Username:     username,
		PasswordHash: string(hash),
		RoleIDs:      roleIDs,
	})
}

// UpdateUser rewrites a user's profile and replaces the role set with
// exactly the given set. An empty password keeps the stored credential.
func (s *Service) UpdateUser(ctx context.Context, id int64, username, password string, roleIDs []int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: user id must be a positive integer", shared.ErrInvalidInput)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, fmt.Errorf("%w: username is required", shared.ErrInvalidInput)
	}
	if err := validateRoleIDs(roleIDs); err != nil {
		return User{}, err
	}
	roleIDs = dedupeIDs(roleIDs)
	if err := s.requireRoles(ctx, roleIDs); err != nil {
		return User{}, err
	}
	update := UserUpdate{Username: username, RoleIDs: roleIDs}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		update.PasswordHash = string(hash)
	}
	return s.repo.UpdateUser(ctx, id, update)
}

// DeleteUsers removes the listed users. Every id must resolve, and no
// resolved user may hold the superadmin role; either condition rejects the
// whole request with nothing deleted.
func (s *Service) DeleteUsers(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no user ids provided", shared.ErrInvalidInput)
	}
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: user id %d must be a positive integer", shared.ErrInvalidInput, id)
		}
	}
	ids = dedupeIDs(ids)
	resolved, err := s.repo.UsersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(resolved) != len(ids) {
		return fmt.Errorf("%w: one or more users not found", shared.ErrNotFound)
	}
	for _, user := range resolved {
		for _, role := range user.Roles {
			if role.Name == shared.SuperadminRoleName {
				return fmt.Errorf("%w: user %d holds the superadmin role and cannot be deleted", shared.ErrProtected, user.ID)
			}
		}
	}
	return s.repo.DeleteUsers(ctx, ids)
}

// EnsureSuperadmin creates a superadmin account when none exists. Running
// it again with a superadmin present creates nothing. Returns true when an
// account was created.
func (s *Service) EnsureSuperadmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, fmt.Errorf("%w: bootstrap credentials are required", shared.ErrInvalidInput)
	}
	exists, err := s.repo.HasSuperadmin(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	if _, err := s.repo.CreateUser(ctx, NewUser{
		Username:     username,
		PasswordHash: string(hash),
		IsSuperadmin: true,
	}); err != nil {
		return false, fmt.Errorf("bootstrap superadmin: %w", err)
	}
	return true, nil
}
