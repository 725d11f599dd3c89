package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record shared across organizations. Email is
// deliberately not globally unique: uniqueness is enforced per organization
// through Membership, so the same address can appear in several tenants.
type User struct {
	Base
	Email        string `gorm:"index;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`

	// GlobalRole is only authoritative for Super Admin. Everyone else acts
	// under the role on their Membership for the request's organization.
	GlobalRole string `gorm:"default:'Staff'" json:"global_role"`

	Phone  string `json:"phone"`
	Avatar string `json:"avatar"`

	// CurrentOrganizationID is a cached pointer at the last organization the
	// user logged into. Never used for authorization decisions.
	CurrentOrganizationID *uuid.UUID `gorm:"type:uuid;index" json:"current_organization_id,omitempty"`

	IsActive           bool `gorm:"default:true" json:"is_active"`
	EmailNotifications bool `gorm:"default:true" json:"email_notifications"`

	InviteToken          *string    `gorm:"index" json:"-"`
	InviteTokenExpiresAt *time.Time `json:"-"`

	// Reset tokens are stored hashed; the plaintext only ever lives in the
	// reset email.
	ResetTokenHash      *string    `gorm:"index" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}
