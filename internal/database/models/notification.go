package models

import "github.com/google/uuid"

type Notification struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Type           string    `gorm:"not null" json:"type"` // e.g. user_invited, job_assigned
	Title          string    `gorm:"not null" json:"title"`
	Body           string    `json:"body"`
	Link           string    `json:"link"`
	Read           bool      `gorm:"default:false" json:"read"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}
