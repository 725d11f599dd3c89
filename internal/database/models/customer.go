package models

import "github.com/google/uuid"

type Customer struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string    `gorm:"not null" json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Street         string    `json:"street"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	ZipCode        string    `json:"zip_code"`
	Notes          string    `json:"notes"`
}

func (Customer) TableName() string {
	return "customers"
}
