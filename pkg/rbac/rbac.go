package rbac

import "slices"

// 权限常量
const (
	PermissionCreateProject    = "project:create"
	PermissionReadProject      = "project:read"
	PermissionUpdateProject    = "project:update"
	PermissionPinProgress      = "project:progress"
	PermissionProjectLifecycle = "project:lifecycle"
	PermissionReplayOutbox     = "outbox:replay"
)

// 角色常量
const (
	RoleContractor = "contractor"
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleContractor: {
		PermissionCreateProject,
		PermissionReadProject,
		PermissionUpdateProject,
		PermissionPinProgress,
		PermissionProjectLifecycle,
	},
	// 业主只能查看，以及暂停/恢复/结束工程
	RoleOwner: {
		PermissionReadProject,
		PermissionProjectLifecycle,
	},
	RoleAdmin: {
		PermissionCreateProject,
		PermissionReadProject,
		PermissionUpdateProject,
		PermissionPinProgress,
		PermissionProjectLifecycle,
		PermissionReplayOutbox,
	},
}

// ValidRole 判断角色是否存在
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role, permission string) bool {
	return slices.Contains(rolePermissions[role], permission)
}

// CheckPermission 检查角色是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(userID int, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     userID,
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     int
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions: " + e.Permission
}
