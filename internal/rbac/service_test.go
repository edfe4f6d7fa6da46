package rbac

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sopami/sopami/internal/shared"
)

type mockUser struct {
	id           int64
	isSuperadmin bool
}

type mockRepository struct {
	roles       map[int64]*Role
	permissions map[int64]*Permission
	users       map[int64]mockUser
	rolePerms   map[int64][]int64
	userRoles   map[int64][]int64

	nextRoleID int64
	nextPermID int64

	// Error injection
	txError     error
	grantsError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:       make(map[int64]*Role),
		permissions: make(map[int64]*Permission),
		users:       make(map[int64]mockUser),
		rolePerms:   make(map[int64][]int64),
		userRoles:   make(map[int64][]int64),
		nextRoleID:  1,
		nextPermID:  1,
	}
}

func (m *mockRepository) addUser(id int64, superadmin bool) {
	m.users[id] = mockUser{id: id, isSuperadmin: superadmin}
}

func (m *mockRepository) addRole(name string) int64 {
	id := m.nextRoleID
	m.nextRoleID++
	m.roles[id] = &Role{ID: id, Name: name}
	return id
}

func (m *mockRepository) addPermission(name string) int64 {
	id := m.nextPermID
	m.nextPermID++
	m.permissions[id] = &Permission{ID: id, Name: name}
	return id
}

func copyAssoc(src map[int64][]int64) map[int64][]int64 {
	dst := make(map[int64][]int64, len(src))
	for k, v := range src {
		dst[k] = append([]int64(nil), v...)
	}
	return dst
}

// WithTx snapshots the association tables and restores them when the
// callback fails, mirroring a transaction rollback.
func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	rolePerms := copyAssoc(m.rolePerms)
	userRoles := copyAssoc(m.userRoles)
	if err := fn(ctx, m); err != nil {
		m.rolePerms = rolePerms
		m.userRoles = userRoles
		return err
	}
	return nil
}

func (m *mockRepository) ExistingUserIDs(_ context.Context, ids []int64) ([]int64, error) {
	var found []int64
	seen := make(map[int64]struct{})
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := m.users[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

func (m *mockRepository) ExistingRoleIDs(_ context.Context, ids []int64) ([]int64, error) {
	var found []int64
	seen := make(map[int64]struct{})
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := m.roles[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

func (m *mockRepository) ExistingPermissionIDs(_ context.Context, ids []int64) ([]int64, error) {
	var found []int64
	seen := make(map[int64]struct{})
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := m.permissions[id]; ok {
			found = append(found, id)
		}
	}
	return found, nil
}

func (m *mockRepository) ReplaceRolePermissions(_ context.Context, roleID int64, permissionIDs []int64) error {
	m.rolePerms[roleID] = append([]int64(nil), permissionIDs...)
	return nil
}

func (m *mockRepository) ReplaceUserRoles(_ context.Context, userID int64, roleIDs []int64) error {
	m.userRoles[userID] = append([]int64(nil), roleIDs...)
	return nil
}

func (m *mockRepository) ListRoles(_ context.Context) ([]Role, error) {
	var roles []Role
	for _, r := range m.roles {
		roles = append(roles, m.roleWithPermissions(r.ID))
	}
	return roles, nil
}

func (m *mockRepository) roleWithPermissions(id int64) Role {
	role := *m.roles[id]
	for _, pid := range m.rolePerms[id] {
		if p, ok := m.permissions[pid]; ok {
			role.Permissions = append(role.Permissions, *p)
		}
	}
	return role
}

func (m *mockRepository) GetRole(_ context.Context, id int64) (Role, error) {
	if _, ok := m.roles[id]; !ok {
		return Role{}, shared.ErrNotFound
	}
	return m.roleWithPermissions(id), nil
}

func (m *mockRepository) CreateRole(_ context.Context, name string) (Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return Role{}, fmt.Errorf("%w: role %q", shared.ErrDuplicateName, name)
		}
	}
	id := m.addRole(name)
	return *m.roles[id], nil
}

func (m *mockRepository) UpdateRole(_ context.Context, id int64, name string) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	for otherID, r := range m.roles {
		if otherID != id && r.Name == name {
			return Role{}, fmt.Errorf("%w: role %q", shared.ErrDuplicateName, name)
		}
	}
	role.Name = name
	return m.roleWithPermissions(id), nil
}

func (m *mockRepository) DeleteRoles(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(m.roles, id)
		delete(m.rolePerms, id)
		for uid, rids := range m.userRoles {
			var kept []int64
			for _, rid := range rids {
				if rid != id {
					kept = append(kept, rid)
				}
			}
			m.userRoles[uid] = kept
		}
	}
	return nil
}

func (m *mockRepository) ListPermissions(_ context.Context) ([]Permission, error) {
	var perms []Permission
	for _, p := range m.permissions {
		perms = append(perms, *p)
	}
	return perms, nil
}

func (m *mockRepository) GetPermission(_ context.Context, id int64) (Permission, error) {
	p, ok := m.permissions[id]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	return *p, nil
}

func (m *mockRepository) CreatePermission(_ context.Context, name, description string) (Permission, error) {
	for _, p := range m.permissions {
		if p.Name == name {
			return Permission{}, fmt.Errorf("%w: permission %q", shared.ErrDuplicateName, name)
		}
	}
	id := m.addPermission(name)
	m.permissions[id].Description = description
	return *m.permissions[id], nil
}

func (m *mockRepository) UpdatePermission(_ context.Context, id int64, name, description string) (Permission, error) {
	p, ok := m.permissions[id]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	p.Name = name
	p.Description = description
	return *p, nil
}

func (m *mockRepository) DeletePermissions(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(m.permissions, id)
		for rid, pids := range m.rolePerms {
			var kept []int64
			for _, pid := range pids {
				if pid != id {
					kept = append(kept, pid)
				}
			}
			m.rolePerms[rid] = kept
		}
	}
	return nil
}

func (m *mockRepository) Grants(_ context.Context, userID int64) (Grant, error) {
	if m.grantsError != nil {
		return Grant{}, m.grantsError
	}
	u, ok := m.users[userID]
	if !ok {
		return Grant{}, shared.ErrNotFound
	}
	grant := Grant{UserID: userID, IsSuperadmin: u.isSuperadmin}
	for _, rid := range m.userRoles[userID] {
		if _, ok := m.roles[rid]; ok {
			grant.Roles = append(grant.Roles, m.roleWithPermissions(rid))
		}
	}
	return grant, nil
}

// ============================================================================
// ROLE AND PERMISSION MANAGEMENT
// ============================================================================

func TestCreateRole(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	role, err := svc.CreateRole(context.Background(), "  editor  ")
	require.NoError(t, err)
	assert.Equal(t, "editor", role.Name)
	assert.Positive(t, role.ID)
}

func TestCreateRoleDuplicateName(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	_, err := svc.CreateRole(context.Background(), "editor")
	require.NoError(t, err)

	_, err = svc.CreateRole(context.Background(), "editor")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrDuplicateName)
}

func TestCreateRoleBlankName(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	_, err := svc.CreateRole(context.Background(), "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGetRoleRejectsNonPositiveID(t *testing.T) {
	svc := NewService(newMockRepository())

	for _, id := range []int64{0, -3} {
		_, err := svc.GetRole(context.Background(), id)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	}
}

func TestDeleteRolesAllOrNothing(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	editorID := repo.addRole("editor")

	err := svc.DeleteRoles(context.Background(), []int64{editorID, 99})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Contains(t, err.Error(), "99")

	// The resolvable role survives a partially unresolvable request.
	_, err = svc.GetRole(context.Background(), editorID)
	assert.NoError(t, err)
}

func TestDeleteRolesRemovesAssignments(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	repo.addUser(1, false)
	editorID := repo.addRole("editor")
	permID := repo.addPermission("post_create")
	repo.rolePerms[editorID] = []int64{permID}
	repo.userRoles[1] = []int64{editorID}

	require.NoError(t, svc.DeleteRoles(context.Background(), []int64{editorID}))
	assert.Empty(t, repo.userRoles[1])
}

func TestDeletePermissionsUnknownID(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	err := svc.DeletePermissions(context.Background(), []int64{42})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteRolesRejectsEmptyAndInvalidIDs(t *testing.T) {
	svc := NewService(newMockRepository())

	err := svc.DeleteRoles(context.Background(), nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	err = svc.DeleteRoles(context.Background(), []int64{1, 0})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

// ============================================================================
// ASSIGNMENT ENGINE
// ============================================================================

func TestSetRolePermissionsReplacesSet(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	roleID := repo.addRole("editor")
	p1 := repo.addPermission("post_list")
	p2 := repo.addPermission("post_create")
	p3 := repo.addPermission("post_delete")

	require.NoError(t, svc.SetRolePermissions(context.Background(), roleID, []int64{p1, p2}))
	assert.ElementsMatch(t, []int64{p1, p2}, repo.rolePerms[roleID])

	// Reassignment replaces, it never merges.
	require.NoError(t, svc.SetRolePermissions(context.Background(), roleID, []int64{p2, p3}))
	assert.ElementsMatch(t, []int64{p2, p3}, repo.rolePerms[roleID])
}

func TestSetRolePermissionsDuplicateIDs(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	roleID := repo.addRole("editor")
	p1 := repo.addPermission("post_list")

	// A repeated id collapses to a single membership instead of tripping
	// the existence check or the pair insert.
	require.NoError(t, svc.SetRolePermissions(context.Background(), roleID, []int64{p1, p1}))
	assert.Equal(t, []int64{p1}, repo.rolePerms[roleID])
}

func TestDeleteRolesDuplicateIDs(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	editorID := repo.addRole("editor")

	require.NoError(t, svc.DeleteRoles(context.Background(), []int64{editorID, editorID}))
	_, err := svc.GetRole(context.Background(), editorID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSetRolePermissionsIdempotent(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	roleID := repo.addRole("editor")
	p1 := repo.addPermission("post_list")

	require.NoError(t, svc.SetRolePermissions(context.Background(), roleID, []int64{p1}))
	require.NoError(t, svc.SetRolePermissions(context.Background(), roleID, []int64{p1}))
	assert.Equal(t, []int64{p1}, repo.rolePerms[roleID])
}

func TestSetRolePermissionsEmptySetClears(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	roleID := repo.addRole("editor")
	p1 := repo.addPermission("post_list")
	repo.rolePerms[roleID] = []int64{p1}

	require.NoError(t, svc.SetRolePermissions(context.Background(), roleID, nil))
	assert.Empty(t, repo.rolePerms[roleID])
}

func TestSetRolePermissionsUnknownRole(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	p1 := repo.addPermission("post_list")

	err := svc.SetRolePermissions(context.Background(), 42, []int64{p1})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSetRolePermissionsUnknownPermission(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	roleID := repo.addRole("editor")
	p1 := repo.addPermission("post_list")
	repo.rolePerms[roleID] = []int64{p1}

	err := svc.SetRolePermissions(context.Background(), roleID, []int64{p1, 77})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Contains(t, err.Error(), "77")

	// Rejected assignment leaves the previous set in place.
	assert.Equal(t, []int64{p1}, repo.rolePerms[roleID])
}

func TestSetUserRolesReplacesSet(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	repo.addUser(7, false)
	editor := repo.addRole("editor")
	viewer := repo.addRole("viewer")

	require.NoError(t, svc.SetUserRoles(context.Background(), 7, []int64{editor}))
	assert.Equal(t, []int64{editor}, repo.userRoles[7])

	require.NoError(t, svc.SetUserRoles(context.Background(), 7, []int64{viewer}))
	assert.Equal(t, []int64{viewer}, repo.userRoles[7])
}

func TestSetUserRolesRejectsNonPositiveIDs(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	repo.addUser(7, false)

	err := svc.SetUserRoles(context.Background(), 7, []int64{-1})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	err = svc.SetUserRoles(context.Background(), 0, nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestAssignPermissionsBatchFailFast(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	editor := repo.addRole("editor")
	viewer := repo.addRole("viewer")
	p1 := repo.addPermission("post_list")
	repo.rolePerms[editor] = []int64{p1}

	pairs := []RoleAssignment{
		{RoleID: viewer, PermissionIDs: []int64{p1}},
		{RoleID: 99, PermissionIDs: []int64{p1}},
		{RoleID: editor, PermissionIDs: nil},
	}

	err := svc.AssignPermissions(context.Background(), pairs)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Contains(t, err.Error(), "assignment 1")

	// One transaction for the whole batch: even the pair processed before
	// the failure is rolled back.
	assert.Empty(t, repo.rolePerms[viewer])
	assert.Equal(t, []int64{p1}, repo.rolePerms[editor])
}

func TestAssignPermissionsBatchSuccess(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	editor := repo.addRole("editor")
	viewer := repo.addRole("viewer")
	p1 := repo.addPermission("post_list")
	p2 := repo.addPermission("post_create")

	pairs := []RoleAssignment{
		{RoleID: editor, PermissionIDs: []int64{p1, p2}},
		{RoleID: viewer, PermissionIDs: []int64{p1}},
	}

	require.NoError(t, svc.AssignPermissions(context.Background(), pairs))
	assert.ElementsMatch(t, []int64{p1, p2}, repo.rolePerms[editor])
	assert.Equal(t, []int64{p1}, repo.rolePerms[viewer])
}

func TestAssignPermissionsEmptyBatch(t *testing.T) {
	svc := NewService(newMockRepository())

	err := svc.AssignPermissions(context.Background(), nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestAssignRolesBatchFailFast(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	repo.addUser(1, false)
	repo.addUser(2, false)
	editor := repo.addRole("editor")
	repo.userRoles[2] = []int64{editor}

	pairs := []UserAssignment{
		{UserID: 1, RoleIDs: []int64{editor}},
		{UserID: 404, RoleIDs: []int64{editor}},
	}

	err := svc.AssignRoles(context.Background(), pairs)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Contains(t, err.Error(), "user 404")

	assert.Empty(t, repo.userRoles[1])
	assert.Equal(t, []int64{editor}, repo.userRoles[2])
}

func TestAssignRolesEmptySetClearsMembership(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	repo.addUser(1, false)
	editor := repo.addRole("editor")
	repo.userRoles[1] = []int64{editor}

	require.NoError(t, svc.AssignRoles(context.Background(), []UserAssignment{{UserID: 1, RoleIDs: nil}}))
	assert.Empty(t, repo.userRoles[1])
}
