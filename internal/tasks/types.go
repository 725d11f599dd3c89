package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeNotificationEmail = "email:notification"
)

// NotificationEmailPayload identifies a persisted notification whose email
// copy should be delivered in the background.
type NotificationEmailPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

func NewNotificationEmailTask(payload NotificationEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotificationEmail, data), nil
}
