package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caycohq/cayco-server/internal/api/dto"
	"github.com/caycohq/cayco-server/internal/api/middleware"
	"github.com/caycohq/cayco-server/internal/api/validation"
	"github.com/caycohq/cayco-server/internal/database/models"
)

type CustomerHandler struct {
	db *gorm.DB
}

func NewCustomerHandler(db *gorm.DB) *CustomerHandler {
	return &CustomerHandler{db: db}
}

type CustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Notes   string `json:"notes"`
}

func (r CustomerRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errs["name"] = "Name is required"
	}
	if r.Email != "" && !validation.IsValidEmail(r.Email) {
		errs["email"] = "Invalid email format"
	}
	return errs
}

func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())
	params := paginationFrom(r)

	q := h.db.WithContext(r.Context()).Model(&models.Customer{}).Where("organization_id = ?", orgID)
	if search := r.URL.Query().Get("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list customers"})
		return
	}

	var customers []models.Customer
	if err := q.Order("created_at DESC").Limit(params.PerPage).Offset(params.Offset()).Find(&customers).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list customers"})
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       customers,
		Total:      total,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages(total, params.PerPage),
	})
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.findCustomer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	// Tenant comes from the request context, never from the payload.
	customer := models.Customer{
		OrganizationID: middleware.GetOrganizationID(r.Context()),
		Name:           validation.SanitizeString(req.Name),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:          validation.SanitizeString(req.Phone),
		Street:         validation.SanitizeString(req.Street),
		City:           validation.SanitizeString(req.City),
		State:          validation.SanitizeString(req.State),
		ZipCode:        validation.SanitizeString(req.ZipCode),
		Notes:          validation.SanitizeString(req.Notes),
	}

	if err := h.db.WithContext(r.Context()).Create(&customer).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create customer"})
		return
	}

	writeJSON(w, http.StatusCreated, customer)
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.findCustomer(w, r)
	if !ok {
		return
	}

	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	customer.Name = validation.SanitizeString(req.Name)
	customer.Email = strings.ToLower(strings.TrimSpace(req.Email))
	customer.Phone = validation.SanitizeString(req.Phone)
	customer.Street = validation.SanitizeString(req.Street)
	customer.City = validation.SanitizeString(req.City)
	customer.State = validation.SanitizeString(req.State)
	customer.ZipCode = validation.SanitizeString(req.ZipCode)
	customer.Notes = validation.SanitizeString(req.Notes)

	if err := h.db.WithContext(r.Context()).Save(customer).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update customer"})
		return
	}

	writeJSON(w, http.StatusOK, customer)
}

func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.findCustomer(w, r)
	if !ok {
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(customer).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete customer"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Customer deleted"})
}

// findCustomer scopes the lookup to the request's organization. A row owned
// by another tenant is indistinguishable from a missing one.
func (h *CustomerHandler) findCustomer(w http.ResponseWriter, r *http.Request) (*models.Customer, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid customer ID"})
		return nil, false
	}

	var customer models.Customer
	err = h.db.WithContext(r.Context()).
		Where("id = ? AND organization_id = ?", id, middleware.GetOrganizationID(r.Context())).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Customer not found"})
		} else {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load customer"})
		}
		return nil, false
	}
	return &customer, true
}

func paginationFrom(r *http.Request) dto.PaginationParams {
	params := dto.PaginationParams{}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		params.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil {
		params.PerPage = v
	}
	params.Normalize()
	return params
}

func totalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	pages := int(total) / perPage
	if int(total)%perPage > 0 {
		pages++
	}
	return pages
}
