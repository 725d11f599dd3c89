package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caycohq/cayco-server/internal/api/dto"
	"github.com/caycohq/cayco-server/internal/api/middleware"
	"github.com/caycohq/cayco-server/internal/notify"
)

type NotificationHandler struct {
	svc *notify.Service
}

func NewNotificationHandler(svc *notify.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.svc.ListForUser(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), unreadOnly)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list notifications"})
		return
	}

	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid notification ID"})
		return
	}

	ctx := r.Context()
	if err := h.svc.MarkRead(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Notification not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to mark notification read"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Notification marked read"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.svc.MarkAllRead(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx)); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to mark notifications read"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "All notifications marked read"})
}
