package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caycohq/cayco-server/internal/api/dto"
	"github.com/caycohq/cayco-server/internal/api/middleware"
	"github.com/caycohq/cayco-server/internal/api/validation"
	"github.com/caycohq/cayco-server/internal/database/models"
	"github.com/caycohq/cayco-server/internal/notify"
)

var validJobStatuses = map[string]struct{}{
	models.JobStatusLead:       {},
	models.JobStatusScheduled:  {},
	models.JobStatusInProgress: {},
	models.JobStatusCompleted:  {},
	models.JobStatusCancelled:  {},
}

type JobHandler struct {
	db       *gorm.DB
	notifier *notify.Service
}

func NewJobHandler(db *gorm.DB, notifier *notify.Service) *JobHandler {
	return &JobHandler{db: db, notifier: notifier}
}

type JobRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Address       string     `json:"address"`
	CustomerID    *string    `json:"customer_id"`
	AssignedToID  *string    `json:"assigned_to"`
	ScheduledFor  *time.Time `json:"scheduled_for"`
	EstimatedCost float64    `json:"estimated_cost"`
}

func (r JobRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Title) == "" {
		errs["title"] = "Title is required"
	}
	if r.Status != "" {
		if _, ok := validJobStatuses[r.Status]; !ok {
			errs["status"] = "Invalid status"
		}
	}
	if r.EstimatedCost < 0 {
		errs["estimated_cost"] = "Estimated cost cannot be negative"
	}
	return errs
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	params := paginationFrom(r)

	q := h.db.WithContext(r.Context()).Model(&models.Job{}).Where("organization_id = ?", orgID)
	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if assignee := r.URL.Query().Get("assigned_to"); assignee != "" {
		if id, err := uuid.Parse(assignee); err == nil {
			q = q.Where("assigned_to_id = ?", id)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list jobs"})
		return
	}

	var jobs []models.Job
	if err := q.Preload("Customer").Order("created_at DESC").
		Limit(params.PerPage).Offset(params.Offset()).Find(&jobs).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list jobs"})
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       jobs,
		Total:      total,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages(total, params.PerPage),
	})
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, ok := h.findJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	ctx := r.Context()
	orgID := middleware.GetOrganizationID(ctx)

	job := models.Job{
		OrganizationID: orgID,
		Title:          validation.SanitizeString(req.Title),
		Description:    validation.SanitizeString(req.Description),
		Address:        validation.SanitizeString(req.Address),
		Status:         models.JobStatusLead,
		ScheduledFor:   req.ScheduledFor,
		EstimatedCost:  req.EstimatedCost,
	}
	if req.Status != "" {
		job.Status = req.Status
	}

	if req.CustomerID != nil {
		id, err := uuid.Parse(*req.CustomerID)
		if err != nil || !h.customerInOrg(ctx, id, orgID) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Unknown customer"})
			return
		}
		job.CustomerID = &id
	}
	if req.AssignedToID != nil {
		id, err := uuid.Parse(*req.AssignedToID)
		if err != nil || !h.memberInOrg(ctx, id, orgID) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Assignee is not a member of this organization"})
			return
		}
		job.AssignedToID = &id
	}

	if err := h.db.WithContext(ctx).Create(&job).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create job"})
		return
	}

	h.notifyAssignment(ctx, &job)
	writeJSON(w, http.StatusCreated, job)
}

func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	job, ok := h.findJob(w, r)
	if !ok {
		return
	}

	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	ctx := r.Context()
	orgID := middleware.GetOrganizationID(ctx)
	prevAssignee := job.AssignedToID

	job.Title = validation.SanitizeString(req.Title)
	job.Description = validation.SanitizeString(req.Description)
	job.Address = validation.SanitizeString(req.Address)
	job.ScheduledFor = req.ScheduledFor
	job.EstimatedCost = req.EstimatedCost

	if req.Status != "" && req.Status != job.Status {
		job.Status = req.Status
		if req.Status == models.JobStatusCompleted {
			now := time.Now().UTC()
			job.CompletedAt = &now
		}
	}

	if req.CustomerID != nil {
		id, err := uuid.Parse(*req.CustomerID)
		if err != nil || !h.customerInOrg(ctx, id, orgID) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Unknown customer"})
			return
		}
		job.CustomerID = &id
	}
	if req.AssignedToID != nil {
		id, err := uuid.Parse(*req.AssignedToID)
		if err != nil || !h.memberInOrg(ctx, id, orgID) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Assignee is not a member of this organization"})
			return
		}
		job.AssignedToID = &id
	}

	if err := h.db.WithContext(ctx).Save(job).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update job"})
		return
	}

	if job.AssignedToID != nil && (prevAssignee == nil || *prevAssignee != *job.AssignedToID) {
		h.notifyAssignment(ctx, job)
	}

	writeJSON(w, http.StatusOK, job)
}

func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	job, ok := h.findJob(w, r)
	if !ok {
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(job).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete job"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Job deleted"})
}

func (h *JobHandler) findJob(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid job ID"})
		return nil, false
	}

	var job models.Job
	err = h.db.WithContext(r.Context()).
		Where("id = ? AND organization_id = ?", id, middleware.GetOrganizationID(r.Context())).
		Preload("Customer").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Job not found"})
		} else {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load job"})
		}
		return nil, false
	}
	return &job, true
}

func (h *JobHandler) customerInOrg(ctx context.Context, id, orgID uuid.UUID) bool {
	var count int64
	h.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Count(&count)
	return count > 0
}

func (h *JobHandler) memberInOrg(ctx context.Context, userID, orgID uuid.UUID) bool {
	var count int64
	h.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND organization_id = ? AND status = ?", userID, orgID, models.MembershipActive).
		Count(&count)
	return count > 0
}

// notifyAssignment is best effort. A failed notification never fails the
// write that triggered it.
func (h *JobHandler) notifyAssignment(ctx context.Context, job *models.Job) {
	if h.notifier == nil || job.AssignedToID == nil {
		return
	}
	_ = h.notifier.Create(ctx, &models.Notification{
		OrganizationID: job.OrganizationID,
		UserID:         *job.AssignedToID,
		Type:           "job_assigned",
		Title:          "New job assignment",
		Body:           "You have been assigned to " + job.Title,
		Link:           "/jobs/" + job.ID.String(),
	})
}
