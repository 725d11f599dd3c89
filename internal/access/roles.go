package access

// Fixed system roles. Super Admin is global and bypasses organization
// scoping; every other role only has meaning on a Membership.
const (
	RoleSuperAdmin        = "Super Admin"
	RoleCompanyOwner      = "Company Owner"
	RoleOperationsManager = "Operations Manager"
	RoleEstimator         = "Estimator"
	RoleAccountant        = "Accountant"
	RoleStaff             = "Staff"
	RoleClient            = "Client"
)

var fixedRoles = map[string]struct{}{
	RoleSuperAdmin:        {},
	RoleCompanyOwner:      {},
	RoleOperationsManager: {},
	RoleEstimator:         {},
	RoleAccountant:        {},
	RoleStaff:             {},
	RoleClient:            {},
}

// AssignableRoles are the fixed roles an organization can grant through an
// invite. Super Admin is never assignable.
var AssignableRoles = []string{
	RoleCompanyOwner,
	RoleOperationsManager,
	RoleEstimator,
	RoleAccountant,
	RoleStaff,
	RoleClient,
}

func IsFixedRole(role string) bool {
	_, ok := fixedRoles[role]
	return ok
}

func IsAssignableRole(role string) bool {
	return IsFixedRole(role) && role != RoleSuperAdmin
}
