package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership lifecycle. A membership is created pending by an invite, becomes
// active when the invite is accepted (or immediately, for self-registration),
// and goes inactive when the user is removed from the organization.
const (
	MembershipPending  = "pending"
	MembershipActive   = "active"
	MembershipInactive = "inactive"
)

// Membership binds a User to a Company with a role and lifecycle status. It
// is the source of truth for who can act as what, where: authorization always
// reads the membership role for the request's organization, never the role
// cached on the user.
type Membership struct {
	Base
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_org" json:"user_id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_org" json:"organization_id"`
	Role           string    `gorm:"not null" json:"role"`
	Status         string    `gorm:"not null;default:'pending'" json:"status"`

	// Display name within this organization, set when the invite is accepted.
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	InvitedByID *uuid.UUID `gorm:"type:uuid" json:"invited_by,omitempty"`
	JoinedAt    *time.Time `json:"joined_at,omitempty"`

	// Per-organization onboarding-complete marker. The welcome email for an
	// organization is sent at most once under normal operation.
	RegistrationEmailSent   bool       `gorm:"default:false" json:"registration_email_sent"`
	RegistrationEmailSentAt *time.Time `json:"registration_email_sent_at,omitempty"`

	User         *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Organization *Company `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (Membership) TableName() string {
	return "memberships"
}
