package notify

import (
	"context"
	"log/slog"

	"github.com/caycohq/cayco-server/internal/database/models"
	"github.com/caycohq/cayco-server/internal/realtime"
	"github.com/caycohq/cayco-server/internal/tasks"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// Service persists notifications, broadcasts them to the organization's
// realtime channel, and queues an email copy for recipients that want one.
// Broadcast and enqueue failures are logged and swallowed; the notification
// row is the primary state and it has already been committed.
type Service struct {
	db          *gorm.DB
	broadcaster realtime.Broadcaster
	queue       *asynq.Client
	logger      *slog.Logger
}

func NewService(db *gorm.DB, broadcaster realtime.Broadcaster, queue *asynq.Client, logger *slog.Logger) *Service {
	if broadcaster == nil {
		broadcaster = realtime.Noop{}
	}
	return &Service{db: db, broadcaster: broadcaster, queue: queue, logger: logger}
}

func (s *Service) Create(ctx context.Context, n *models.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return err
	}

	if err := s.broadcaster.Broadcast(ctx, n.OrganizationID, "notification:new", n); err != nil {
		s.logger.Warn("notification broadcast failed", "error", err)
	}

	if s.queue != nil {
		task, err := tasks.NewNotificationEmailTask(tasks.NotificationEmailPayload{
			NotificationID: n.ID,
			OrganizationID: n.OrganizationID,
		})
		if err == nil {
			_, err = s.queue.EnqueueContext(ctx, task, asynq.Queue("low"))
		}
		if err != nil {
			s.logger.Warn("notification email enqueue failed", "error", err)
		}
	}

	return nil
}

func (s *Service) ListForUser(ctx context.Context, orgID, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	q := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Order("created_at DESC").
		Limit(100)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var ns []models.Notification
	err := q.Find(&ns).Error
	return ns, err
}

func (s *Service) MarkRead(ctx context.Context, orgID, userID, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND organization_id = ? AND user_id = ?", id, orgID, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, orgID, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("organization_id = ? AND user_id = ? AND read = ?", orgID, userID, false).
		Update("read", true).Error
}
