package dto

type PermissionDTO struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

type CreateRoleRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Permissions []PermissionDTO `json:"permissions"`
}

func (r CreateRoleRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name == "" {
		errors["name"] = "Name is required"
	} else if len(r.Name) > 64 {
		errors["name"] = "Name must be at most 64 characters"
	}
	if len(r.Permissions) == 0 {
		errors["permissions"] = "At least one permission is required"
	}
	for _, p := range r.Permissions {
		if p.Resource == "" || len(p.Actions) == 0 {
			errors["permissions"] = "Each permission needs a resource and at least one action"
			break
		}
	}

	return errors
}

type UpdateRoleRequest struct {
	Description *string         `json:"description"`
	Permissions []PermissionDTO `json:"permissions"`
	IsActive    *bool           `json:"is_active"`
}
