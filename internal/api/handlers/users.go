package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caycohq/cayco-server/internal/access"
	"github.com/caycohq/cayco-server/internal/api/dto"
	"github.com/caycohq/cayco-server/internal/api/middleware"
	"github.com/caycohq/cayco-server/internal/api/validation"
	"github.com/caycohq/cayco-server/internal/database/models"
	"github.com/caycohq/cayco-server/internal/membership"
)

type UserHandler struct {
	db          *gorm.DB
	memberships *membership.Service
}

func NewUserHandler(db *gorm.DB, memberships *membership.Service) *UserHandler {
	return &UserHandler{db: db, memberships: memberships}
}

// MemberDTO flattens a membership and its user record into the shape the
// team page consumes. Role and names are the per-organization values.
type MemberDTO struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	JoinedAt  string `json:"joined_at,omitempty"`
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	members, err := h.memberships.ListForOrganization(r.Context(), orgID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list members"})
		return
	}

	out := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		d := MemberDTO{
			UserID:    m.UserID.String(),
			FirstName: m.FirstName,
			LastName:  m.LastName,
			Role:      m.Role,
			Status:    m.Status,
		}
		if m.User != nil {
			d.Email = m.User.Email
		}
		if m.JoinedAt != nil {
			d.JoinedAt = m.JoinedAt.Format(time.RFC3339)
		}
		out = append(out, d)
	}

	writeJSON(w, http.StatusOK, out)
}

// Me reports the authenticated user along with the organization context the
// request resolved to.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetUser(ctx)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":            user,
		"role":            middleware.GetUserRole(ctx),
		"organization_id": middleware.GetOrganizationID(ctx).String(),
	})
}

// MyOrganizations lists every organization the user actively belongs to,
// which backs the workspace switcher.
func (h *UserHandler) MyOrganizations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	members, err := h.memberships.ListActiveForUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list organizations"})
		return
	}

	type orgDTO struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Identifier string `json:"organization_id"`
		Role       string `json:"role"`
	}
	out := make([]orgDTO, 0, len(members))
	for _, m := range members {
		d := orgDTO{ID: m.OrganizationID.String(), Role: m.Role}
		if m.Organization != nil {
			d.Name = m.Organization.Name
			d.Identifier = m.Organization.Identifier
		}
		out = append(out, d)
	}

	writeJSON(w, http.StatusOK, out)
}

// SwitchOrganization updates the cached current organization. The cache is a
// convenience default; the membership check here mirrors what the auth
// middleware enforces on every request anyway.
func (h *UserHandler) SwitchOrganization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrganizationID string `json:"organization_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid organization ID"})
		return
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	m, err := h.memberships.FindActive(ctx, userID, orgID)
	if err != nil {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "You are not a member of this organization"})
		return
	}

	if err := h.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("current_organization_id", orgID).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to switch organization"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organization_id": orgID.String(),
		"role":            m.Role,
	})
}

type UpdateUserRequest struct {
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Phone              *string `json:"phone"`
	EmailNotifications *bool   `json:"email_notifications"`
}

// Update edits profile fields. Users can edit themselves; owners and
// operations managers can edit anyone in the organization. Per-organization
// display names live on the membership, the rest on the user record.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	ctx := r.Context()
	orgID := middleware.GetOrganizationID(ctx)
	actorID := middleware.GetUserID(ctx)
	actorRole := middleware.GetUserRole(ctx)

	if targetID != actorID {
		switch actorRole {
		case access.RoleSuperAdmin, access.RoleCompanyOwner, access.RoleOperationsManager:
		default:
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Insufficient permissions"})
			return
		}
	}

	m, err := h.memberships.FindActive(ctx, targetID, orgID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Member not found"})
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	memberUpdates := map[string]interface{}{}
	if req.FirstName != nil {
		memberUpdates["first_name"] = validation.SanitizeString(*req.FirstName)
	}
	if req.LastName != nil {
		memberUpdates["last_name"] = validation.SanitizeString(*req.LastName)
	}
	if len(memberUpdates) > 0 {
		if err := h.db.WithContext(ctx).Model(m).Updates(memberUpdates).Error; err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update member"})
			return
		}
	}

	userUpdates := map[string]interface{}{}
	if req.Phone != nil {
		userUpdates["phone"] = validation.SanitizeString(*req.Phone)
	}
	if req.EmailNotifications != nil {
		userUpdates["email_notifications"] = *req.EmailNotifications
	}
	if len(userUpdates) > 0 {
		if err := h.db.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", targetID).
			Updates(userUpdates).Error; err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update user"})
			return
		}
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "User updated"})
}
