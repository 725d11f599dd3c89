package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/caycohq/cayco-server/internal/database/models"
	"github.com/caycohq/cayco-server/internal/mailer"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	mail   mailer.Sender
	logger *slog.Logger
}

func NewHandler(db *gorm.DB, mail mailer.Sender, logger *slog.Logger) *Handler {
	return &Handler{db: db, mail: mail, logger: logger}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeNotificationEmail, h.HandleNotificationEmail)
}

// HandleNotificationEmail delivers the email copy of a notification. A
// deleted notification or an opted-out recipient is not an error; retrying
// would never change the outcome.
func (h *Handler) HandleNotificationEmail(ctx context.Context, t *asynq.Task) error {
	var payload NotificationEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling payload: %v: %w", err, asynq.SkipRetry)
	}

	var n models.Notification
	err := h.db.WithContext(ctx).
		Preload("User").
		First(&n, "id = ? AND organization_id = ?", payload.NotificationID, payload.OrganizationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Debug("notification gone, skipping email", "id", payload.NotificationID)
			return nil
		}
		return err
	}

	if n.User == nil || !n.User.EmailNotifications || !n.User.IsActive {
		return nil
	}

	subject, body := mailer.NotificationEmail(n.Title, n.Body, n.Link)
	if _, err := h.mail.Send(ctx, n.User.Email, subject, body); err != nil {
		return fmt.Errorf("sending notification email: %w", err)
	}

	h.logger.Info("notification email sent", "notification", n.ID, "user", n.UserID)
	return nil
}
