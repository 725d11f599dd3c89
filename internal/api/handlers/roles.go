package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caycohq/cayco-server/internal/access"
	"github.com/caycohq/cayco-server/internal/api/dto"
	"github.com/caycohq/cayco-server/internal/api/middleware"
	"github.com/caycohq/cayco-server/internal/database/models"
)

// RoleHandler manages organization-defined roles. The fixed role set is not
// stored in this table and cannot be edited through this surface.
type RoleHandler struct {
	db *gorm.DB
}

func NewRoleHandler(db *gorm.DB) *RoleHandler {
	return &RoleHandler{db: db}
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	var roles []models.Role
	if err := h.db.WithContext(r.Context()).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&roles).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list roles"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fixed_roles":  access.AssignableRoles,
		"custom_roles": roles,
	})
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	name := strings.TrimSpace(req.Name)
	if access.IsFixedRole(name) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Role name conflicts with a built-in role"})
		return
	}

	ctx := r.Context()
	actorID := middleware.GetUserID(ctx)
	role := models.Role{
		OrganizationID: middleware.GetOrganizationID(ctx),
		Name:           name,
		Description:    req.Description,
		Permissions:    toPermissionList(req.Permissions),
		IsActive:       true,
		CreatedByID:    &actorID,
	}

	if err := h.db.WithContext(ctx).Create(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "A role with this name already exists"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create role"})
		return
	}

	writeJSON(w, http.StatusCreated, role)
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	role, ok := h.findRole(w, r)
	if !ok {
		return
	}
	if role.IsSystemRole {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "System roles cannot be modified"})
		return
	}

	var req dto.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	updates := map[string]interface{}{}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Permissions != nil {
		updates["permissions"] = toPermissionList(req.Permissions)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		writeJSON(w, http.StatusOK, role)
		return
	}

	if err := h.db.WithContext(r.Context()).Model(role).Updates(updates).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update role"})
		return
	}

	writeJSON(w, http.StatusOK, role)
}

func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	role, ok := h.findRole(w, r)
	if !ok {
		return
	}
	if role.IsSystemRole {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "System roles cannot be deleted"})
		return
	}

	ctx := r.Context()

	// Holders of the role fall back to Staff so no membership is left with a
	// dangling role name.
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Membership{}).
			Where("organization_id = ? AND role = ?", role.OrganizationID, role.Name).
			Update("role", access.RoleStaff).Error; err != nil {
			return err
		}
		return tx.Delete(role).Error
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete role"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Role deleted"})
}

func (h *RoleHandler) findRole(w http.ResponseWriter, r *http.Request) (*models.Role, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid role ID"})
		return nil, false
	}

	var role models.Role
	err = h.db.WithContext(r.Context()).
		Where("id = ? AND organization_id = ?", id, middleware.GetOrganizationID(r.Context())).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Role not found"})
		} else {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load role"})
		}
		return nil, false
	}
	return &role, true
}

func toPermissionList(in []dto.PermissionDTO) models.PermissionList {
	out := make(models.PermissionList, 0, len(in))
	for _, p := range in {
		out = append(out, models.Permission{Resource: p.Resource, Actions: p.Actions})
	}
	return out
}
