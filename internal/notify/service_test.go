package notify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/caycohq/cayco-server/internal/access"
	"github.com/caycohq/cayco-server/internal/database/models"
	"github.com/caycohq/cayco-server/internal/notify"
	"github.com/caycohq/cayco-server/internal/testutil"
)

// spyBroadcaster records broadcasts and can be told to fail.
type spyBroadcaster struct {
	events []string
	err    error
}

func (s *spyBroadcaster) Broadcast(_ context.Context, _ uuid.UUID, event string, _ interface{}) error {
	s.events = append(s.events, event)
	return s.err
}

func TestNotifyCreate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	company := testutil.CreateTestCompany(t, db)
	user := testutil.CreateTestMember(t, db, company, access.RoleStaff)

	t.Run("persists and broadcasts", func(t *testing.T) {
		spy := &spyBroadcaster{}
		svc := notify.NewService(db, spy, nil, logger)

		n := &models.Notification{
			OrganizationID: company.ID,
			UserID:         user.ID,
			Type:           "job_assigned",
			Title:          "New job assignment",
		}
		require.NoError(t, svc.Create(ctx, n))
		assert.NotEqual(t, uuid.Nil, n.ID)
		assert.Equal(t, []string{"notification:new"}, spy.events)
	})

	t.Run("broadcast failure does not fail the create", func(t *testing.T) {
		spy := &spyBroadcaster{err: errors.New("redis down")}
		svc := notify.NewService(db, spy, nil, logger)

		n := &models.Notification{
			OrganizationID: company.ID,
			UserID:         user.ID,
			Type:           "job_assigned",
			Title:          "Second assignment",
		}
		require.NoError(t, svc.Create(ctx, n))

		var saved models.Notification
		require.NoError(t, db.First(&saved, "id = ?", n.ID).Error)
	})
}

func TestNotifyReadState(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := notify.NewService(db, nil, nil, logger)

	company := testutil.CreateTestCompany(t, db)
	other := testutil.CreateTestCompany(t, db)
	user := testutil.CreateTestMember(t, db, company, access.RoleStaff)

	seed := func(title string) *models.Notification {
		n := &models.Notification{
			OrganizationID: company.ID,
			UserID:         user.ID,
			Type:           "mention",
			Title:          title,
		}
		require.NoError(t, svc.Create(ctx, n))
		return n
	}

	first := seed("first")
	seed("second")

	t.Run("list unread only", func(t *testing.T) {
		require.NoError(t, svc.MarkRead(ctx, company.ID, user.ID, first.ID))

		unread, err := svc.ListForUser(ctx, company.ID, user.ID, true)
		require.NoError(t, err)
		require.Len(t, unread, 1)
		assert.Equal(t, "second", unread[0].Title)

		all, err := svc.ListForUser(ctx, company.ID, user.ID, false)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("mark read is tenant scoped", func(t *testing.T) {
		err := svc.MarkRead(ctx, other.ID, user.ID, first.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("mark all read", func(t *testing.T) {
		require.NoError(t, svc.MarkAllRead(ctx, company.ID, user.ID))
		unread, err := svc.ListForUser(ctx, company.ID, user.ID, true)
		require.NoError(t, err)
		assert.Empty(t, unread)
	})
}
