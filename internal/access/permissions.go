package access

import (
	"strings"

	"github.com/caycohq/cayco-server/internal/database/models"
)

// Permission strings are "resource.action", e.g. "jobs.view" or
// "users.invite". Company Owner holds the wildcard.
var fixedPermissions = map[string][]string{
	RoleCompanyOwner: {"*"},
	RoleOperationsManager: {
		"jobs.view", "jobs.create", "jobs.edit", "jobs.delete",
		"schedules.view", "schedules.create", "schedules.edit", "schedules.delete",
		"customers.view", "customers.create", "customers.edit",
		"estimates.view", "estimates.create", "estimates.edit",
		"invoices.view", "invoices.create", "invoices.edit",
		"reports.view", "users.view", "users.invite",
		"work.view", "work.manage",
		"inbox.view",
	},
	RoleEstimator: {
		"jobs.view", "customers.view", "customers.create", "customers.edit",
		"estimates.view", "estimates.create", "estimates.edit", "estimates.delete",
		"work.view",
		"inbox.view",
	},
	RoleAccountant: {
		"jobs.view", "customers.view", "invoices.view", "invoices.create",
		"invoices.edit", "invoices.delete", "reports.view",
		"work.view",
		"inbox.view",
	},
	RoleStaff: {
		"jobs.view", "schedules.view", "jobs.edit",
		"work.view",
		"inbox.view",
	},
	RoleClient: {
		"jobs.view", "invoices.view", "schedules.view",
		"work.view",
		"inbox.view",
	},
}

// HasPermission is a pure capability check over the fixed role matrix plus
// whatever custom roles the organization has defined. The role argument is
// the effective role resolved from the request's membership.
func HasPermission(role, permission string, customRoles []models.Role) bool {
	if role == RoleSuperAdmin {
		return true
	}

	if perms, ok := fixedPermissions[role]; ok {
		for _, p := range perms {
			if p == "*" || p == permission {
				return true
			}
		}
		return false
	}

	resource, action, found := strings.Cut(permission, ".")
	if !found {
		return false
	}

	for _, cr := range customRoles {
		if cr.Name != role || !cr.IsActive {
			continue
		}
		for _, perm := range cr.Permissions {
			if perm.Resource != resource && perm.Resource != "*" {
				continue
			}
			for _, a := range perm.Actions {
				if a == action || a == "manage" {
					return true
				}
			}
		}
	}

	return false
}
