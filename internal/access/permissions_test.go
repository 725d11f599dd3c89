package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/caycohq/cayco-server/internal/access"
	"github.com/caycohq/cayco-server/internal/database/models"
)

func TestHasPermission_FixedRoles(t *testing.T) {
	t.Run("super admin can do anything", func(t *testing.T) {
		assert.True(t, access.HasPermission(access.RoleSuperAdmin, "anything.at_all", nil))
	})

	t.Run("company owner holds the wildcard", func(t *testing.T) {
		assert.True(t, access.HasPermission(access.RoleCompanyOwner, "jobs.delete", nil))
		assert.True(t, access.HasPermission(access.RoleCompanyOwner, "invoices.create", nil))
	})

	t.Run("operations manager", func(t *testing.T) {
		assert.True(t, access.HasPermission(access.RoleOperationsManager, "jobs.create", nil))
		assert.True(t, access.HasPermission(access.RoleOperationsManager, "users.invite", nil))
		assert.False(t, access.HasPermission(access.RoleOperationsManager, "customers.delete", nil))
	})

	t.Run("estimator", func(t *testing.T) {
		assert.True(t, access.HasPermission(access.RoleEstimator, "estimates.delete", nil))
		assert.False(t, access.HasPermission(access.RoleEstimator, "invoices.create", nil))
		assert.False(t, access.HasPermission(access.RoleEstimator, "jobs.create", nil))
	})

	t.Run("accountant", func(t *testing.T) {
		assert.True(t, access.HasPermission(access.RoleAccountant, "invoices.delete", nil))
		assert.False(t, access.HasPermission(access.RoleAccountant, "jobs.edit", nil))
	})

	t.Run("staff", func(t *testing.T) {
		assert.True(t, access.HasPermission(access.RoleStaff, "jobs.view", nil))
		assert.True(t, access.HasPermission(access.RoleStaff, "jobs.edit", nil))
		assert.False(t, access.HasPermission(access.RoleStaff, "jobs.delete", nil))
	})

	t.Run("client", func(t *testing.T) {
		assert.True(t, access.HasPermission(access.RoleClient, "invoices.view", nil))
		assert.False(t, access.HasPermission(access.RoleClient, "invoices.edit", nil))
	})
}

func TestHasPermission_CustomRoles(t *testing.T) {
	customRoles := []models.Role{
		{
			Name:     "Field Supervisor",
			IsActive: true,
			Permissions: models.PermissionList{
				{Resource: "jobs", Actions: []string{"view", "edit"}},
				{Resource: "customers", Actions: []string{"manage"}},
			},
		},
		{
			Name:     "Retired Role",
			IsActive: false,
			Permissions: models.PermissionList{
				{Resource: "jobs", Actions: []string{"manage"}},
			},
		},
	}

	t.Run("explicit action", func(t *testing.T) {
		assert.True(t, access.HasPermission("Field Supervisor", "jobs.view", customRoles))
		assert.True(t, access.HasPermission("Field Supervisor", "jobs.edit", customRoles))
		assert.False(t, access.HasPermission("Field Supervisor", "jobs.delete", customRoles))
	})

	t.Run("manage implies any action on the resource", func(t *testing.T) {
		assert.True(t, access.HasPermission("Field Supervisor", "customers.delete", customRoles))
		assert.True(t, access.HasPermission("Field Supervisor", "customers.view", customRoles))
	})

	t.Run("inactive custom role grants nothing", func(t *testing.T) {
		assert.False(t, access.HasPermission("Retired Role", "jobs.view", customRoles))
	})

	t.Run("unknown role grants nothing", func(t *testing.T) {
		assert.False(t, access.HasPermission("Ghost Role", "jobs.view", customRoles))
	})

	t.Run("malformed permission string", func(t *testing.T) {
		assert.False(t, access.HasPermission("Field Supervisor", "jobs", customRoles))
	})
}

func TestAssignableRoles(t *testing.T) {
	assert.True(t, access.IsFixedRole(access.RoleSuperAdmin))
	assert.False(t, access.IsAssignableRole(access.RoleSuperAdmin))

	for _, role := range access.AssignableRoles {
		assert.True(t, access.IsFixedRole(role))
		assert.True(t, access.IsAssignableRole(role))
	}

	assert.False(t, access.IsFixedRole("Field Supervisor"))
	assert.False(t, access.IsAssignableRole("Field Supervisor"))
}
