package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with UUID primary key and timestamps
type Base struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Permission grants a set of actions on one resource, e.g.
// {Resource: "invoices", Actions: ["view", "create"]}.
type Permission struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
}

// PermissionList is a custom type stored as a JSON column
type PermissionList []Permission

// Scan implements the sql.Scanner interface for reading from database
func (p *PermissionList) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("PermissionList: expected []byte or string, got %T", value)
	}

	if len(data) == 0 {
		*p = nil
		return nil
	}

	return json.Unmarshal(data, p)
}

// Value implements the driver.Valuer interface for writing to database
func (p PermissionList) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
