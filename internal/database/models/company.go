package models

import "github.com/google/uuid"

// Company is a tenant. Identifier is the public-facing 8-character key users
// supply at login alongside email and password; it is generated once at
// creation and never changes.
type Company struct {
	Base
	Name       string    `gorm:"not null" json:"name"`
	Identifier string    `gorm:"uniqueIndex;not null;size:8" json:"organization_id"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null" json:"owner_id"`

	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Industry string `json:"industry"`
	Website  string `json:"website"`

	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`

	// Pricing rules
	DefaultMarkup float64 `gorm:"default:0.25" json:"default_markup"`
	LaborRate     float64 `gorm:"default:50" json:"labor_rate"`

	// Settings
	Currency string `gorm:"default:'USD'" json:"currency"`
	Timezone string `gorm:"default:'America/New_York'" json:"timezone"`
	Plan     string `gorm:"default:'Free'" json:"plan"` // Free, Basic, Professional, Enterprise

	Memberships []Membership `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Company) TableName() string {
	return "companies"
}
