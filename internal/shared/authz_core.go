package shared

// Core platform permissions. Each protected operation names exactly one of
// these; the guard grants access when any of the caller's roles carries it.
const (
	PermUserList   = "user_list"
	PermUserDetail = "user_detail"
	PermUserCreate = "user_create"
	PermUserUpdate = "user_update"
	PermUserDelete = "user_delete"

	PermRoleList   = "role_list"
	PermRoleDetail = "role_detail"
	PermRoleCreate = "role_create"
	PermRoleUpdate = "role_update"
	PermRoleDelete = "role_delete"
	PermRoleAssign = "role_assign"

	PermPermissionList   = "permission_list"
	PermPermissionDetail = "permission_detail"
	PermPermissionCreate = "permission_create"
	PermPermissionUpdate = "permission_update"
	PermPermissionDelete = "permission_delete"
	PermPermissionAssign = "permission_assign"

	PermPostList   = "post_list"
	PermPostDetail = "post_detail"
	PermPostCreate = "post_create"
	PermPostUpdate = "post_update"
	PermPostDelete = "post_delete"
)

// SuperadminRoleName is the role whose holders are protected from deletion.
const SuperadminRoleName = "superadmin"

// CoreScopes lists every permission the platform defines.
func CoreScopes() []string {
	return []string{
		PermUserList, PermUserDetail, PermUserCreate, PermUserUpdate, PermUserDelete,
		PermRoleList, PermRoleDetail, PermRoleCreate, PermRoleUpdate, PermRoleDelete, PermRoleAssign,
		PermPermissionList, PermPermissionDetail, PermPermissionCreate, PermPermissionUpdate,
		PermPermissionDelete, PermPermissionAssign,
		PermPostList, PermPostDetail, PermPostCreate, PermPostUpdate, PermPostDelete,
	}
}
