package user

import "github.com/trezcool/alama/core"

// Each check returns a *core.PermissionError unless usr is an active holder of the required role.
// Superusers do not implicitly hold any role.

func RequireStudent(usr User) error {
	return requireRole(usr, RoleStudent)
}

func RequireInstructor(usr User) error {
	return requireRole(usr, RoleInstructor)
}

func RequireDepartmentHead(usr User) error {
	return requireRole(usr, RoleDepartmentHead)
}

func RequireSuperuser(usr User) error {
	if usr.ID == "" || !usr.IsActive || !usr.IsSuperuser {
		return core.NewPermissionError("superuser")
	}
	return nil
}

func requireRole(usr User, role Role) error {
	if usr.ID == "" || !usr.IsActive || usr.Role != role {
		return core.NewPermissionError(string(role))
	}
	return nil
}
