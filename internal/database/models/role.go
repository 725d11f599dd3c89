package models

import "github.com/google/uuid"

// Role is an organization-defined named permission set, extending the fixed
// role enum. System roles are seeded per organization and immutable.
type Role struct {
	Base
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_org_role_name" json:"organization_id"`
	Name           string         `gorm:"not null;uniqueIndex:idx_org_role_name" json:"name"`
	Description    string         `json:"description"`
	Permissions    PermissionList `gorm:"type:text" json:"permissions"`
	IsSystemRole   bool           `gorm:"default:false" json:"is_system_role"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	CreatedByID    *uuid.UUID     `gorm:"type:uuid" json:"created_by,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}
