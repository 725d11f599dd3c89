package handlers

import (
	"net/http"

	"github.com/caycohq/cayco-server/internal/api/dto"
	"github.com/caycohq/cayco-server/internal/api/middleware"
	"github.com/caycohq/cayco-server/internal/onboarding"
)

type OnboardingHandler struct {
	svc *onboarding.Service
}

func NewOnboardingHandler(svc *onboarding.Service) *OnboardingHandler {
	return &OnboardingHandler{svc: svc}
}

func (h *OnboardingHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status, err := h.svc.StatusFor(ctx, middleware.GetUser(ctx), middleware.GetOrganizationID(ctx))
	if err != nil {
		if err == onboarding.ErrNotMember {
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load onboarding status"})
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Complete marks onboarding done for this organization. Calling it again is
// a no-op success, so a flaky client retry never double-sends the welcome
// email.
func (h *OnboardingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.svc.Complete(ctx, middleware.GetUser(ctx), middleware.GetOrganizationID(ctx))
	if err != nil {
		if err == onboarding.ErrNotMember {
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to complete onboarding"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Onboarding completed"})
}

func (h *OnboardingHandler) ResendWelcome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := h.svc.ResendWelcomeEmail(ctx, middleware.GetUser(ctx), middleware.GetOrganizationID(ctx))
	if err != nil {
		if err == onboarding.ErrNotMember {
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to send welcome email"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Welcome email sent"})
}
