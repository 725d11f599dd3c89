package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/caycohq/cayco-server/internal/api/dto"
	"github.com/caycohq/cayco-server/internal/api/middleware"
	"github.com/caycohq/cayco-server/internal/auth"
	"github.com/caycohq/cayco-server/internal/membership"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	resp, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		CompanyName: req.CompanyName,
		Phone:       req.Phone,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Registration failed"})
		return
	}

	setSessionCookie(w, resp.Token)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		OrganizationID: req.OrganizationID,
		Email:          req.Email,
		Password:       req.Password,
	})
	if err != nil {
		switch err {
		case auth.ErrInvalidOrganization, auth.ErrInvalidCredentials, auth.ErrInactiveUser:
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: err.Error()})
		case auth.ErrPendingInvite:
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: err.Error()})
		case auth.ErrNotMember:
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		}
		return
	}

	setSessionCookie(w, resp.Token)
	writeJSON(w, http.StatusOK, resp)
}

// Invite is protected: only owners and operations managers reach it.
func (h *AuthHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req dto.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	user, err := h.authService.Invite(r.Context(), auth.InviteInput{
		OrganizationID: middleware.GetOrganizationID(r.Context()),
		Email:          req.Email,
		Role:           req.Role,
		InvitedByID:    middleware.GetUserID(r.Context()),
	})
	if err != nil {
		switch err {
		case auth.ErrInvalidRole:
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		case auth.ErrAlreadyMember:
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to send invitation"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, dto.SuccessResponse{
		Message: "Invitation sent to " + user.Email,
	})
}

func (h *AuthHandler) VerifyInvite(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Token is required"})
		return
	}

	preview, err := h.authService.VerifyInvite(r.Context(), token)
	if err != nil {
		switch err {
		case auth.ErrInviteInvalid:
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to verify invitation"})
		}
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

func (h *AuthHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req dto.AcceptInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	resp, err := h.authService.AcceptInvite(r.Context(), auth.AcceptInviteInput{
		Token:     req.Token,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch err {
		case auth.ErrInviteInvalid:
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to accept invitation"})
		}
		return
	}

	setSessionCookie(w, resp.Token)
	writeJSON(w, http.StatusOK, resp)
}

// ForgotOrganizationID always answers the same way so the endpoint cannot be
// used to probe which emails hold accounts.
func (h *AuthHandler) ForgotOrganizationID(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotOrganizationIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	if err := h.authService.ForgotOrganizationID(r.Context(), req.Email, req.Password); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Request failed"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{
		Message: "If the credentials match an account, an email has been sent",
	})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email, req.OrganizationID); err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Request failed"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{
		Message: "If an account exists, a password reset email has been sent",
	})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	resp, err := h.authService.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		switch err {
		case auth.ErrResetInvalid:
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to reset password"})
		}
		return
	}

	setSessionCookie(w, resp.Token)
	writeJSON(w, http.StatusOK, resp)
}

// RemoveMember deactivates a membership in the caller's organization.
func (h *AuthHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user ID"})
		return
	}

	ctx := r.Context()
	err = h.authService.RemoveMember(ctx, middleware.GetOrganizationID(ctx), middleware.GetUserID(ctx), targetID)
	if err != nil {
		switch err {
		case auth.ErrCannotRemoveSelf, membership.ErrCannotRemoveOwner:
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		case auth.ErrUserNotFound:
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Member not found"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to remove member"})
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Member removed"})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   7 * 24 * 3600,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
