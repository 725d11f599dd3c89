package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusLead       = "lead"
	JobStatusScheduled  = "scheduled"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
)

type Job struct {
	Base
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index" json:"organization_id"`
	CustomerID     *uuid.UUID `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	AssignedToID   *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to,omitempty"`
	Title          string     `gorm:"not null" json:"title"`
	Description    string     `json:"description"`
	Status         string     `gorm:"default:'lead'" json:"status"`
	Address        string     `json:"address"`
	ScheduledFor   *time.Time `json:"scheduled_for,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	EstimatedCost  float64    `json:"estimated_cost"`

	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

func (Job) TableName() string {
	return "jobs"
}
