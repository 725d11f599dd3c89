package onboarding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/caycohq/cayco-server/internal/database/models"
	"github.com/caycohq/cayco-server/internal/mailer"
	"github.com/caycohq/cayco-server/internal/membership"
	"github.com/caycohq/cayco-server/internal/organization"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotMember = errors.New("no membership for this organization")

// Service drives the per-organization onboarding checklist and the one-shot
// welcome email. RegistrationEmailSent on the membership is the
// authoritative "onboarding complete" marker for that organization; a user
// onboards independently in each organization they join.
type Service struct {
	db          *gorm.DB
	memberships *membership.Service
	orgs        *organization.Service
	mail        mailer.Sender
	logger      *slog.Logger
}

func NewService(db *gorm.DB, memberships *membership.Service, orgs *organization.Service, mail mailer.Sender, logger *slog.Logger) *Service {
	return &Service{db: db, memberships: memberships, orgs: orgs, mail: mail, logger: logger}
}

type Status struct {
	Steps          map[string]bool `json:"steps"`
	Progress       float64         `json:"progress"`
	CompletedSteps int             `json:"completed_steps"`
	TotalSteps     int             `json:"total_steps"`
	Completed      bool            `json:"onboarding_completed"`
}

func allDone() *Status {
	steps := map[string]bool{
		"companyInfo":   true,
		"teamSetup":     true,
		"pricingRules":  true,
		"firstCustomer": true,
	}
	return &Status{Steps: steps, Progress: 100, CompletedSteps: len(steps), TotalSteps: len(steps), Completed: true}
}

// StatusFor computes the checklist from live data plus the per-organization
// completion flag. Super Admins are always complete.
func (s *Service) StatusFor(ctx context.Context, user *models.User, orgID uuid.UUID) (*Status, error) {
	if user.GlobalRole == "Super Admin" {
		return allDone(), nil
	}

	company, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var memberCount int64
	if err := db.Model(&models.Membership{}).
		Where("organization_id = ? AND status = ?", orgID, models.MembershipActive).
		Count(&memberCount).Error; err != nil {
		return nil, err
	}

	var customerCount int64
	if err := db.Model(&models.Customer{}).
		Where("organization_id = ?", orgID).
		Count(&customerCount).Error; err != nil {
		return nil, err
	}

	steps := map[string]bool{
		"companyInfo":   company.Name != "" && company.Email != "",
		"teamSetup":     memberCount > 1,
		"pricingRules":  company.DefaultMarkup > 0,
		"firstCustomer": customerCount > 0,
	}

	completed := 0
	for _, done := range steps {
		if done {
			completed++
		}
	}

	st := &Status{
		Steps:          steps,
		CompletedSteps: completed,
		TotalSteps:     len(steps),
		Progress:       float64(completed) / float64(len(steps)) * 100,
	}

	m, err := s.memberships.Find(ctx, user.ID, orgID)
	if err == nil {
		st.Completed = m.RegistrationEmailSent
	}
	return st, nil
}

// Complete marks onboarding finished for (user, organization) and sends the
// welcome email carrying the organization identifier. It is idempotent: a
// second call is a no-op success. The flag flips regardless of whether the
// send worked, so a flaky provider cannot wedge the workflow in a retry
// loop; ResendWelcomeEmail is the explicit recovery path.
func (s *Service) Complete(ctx context.Context, user *models.User, orgID uuid.UUID) error {
	m, err := s.memberships.Find(ctx, user.ID, orgID)
	if err != nil {
		if errors.Is(err, membership.ErrNotFound) {
			return ErrNotMember
		}
		return err
	}

	if m.RegistrationEmailSent {
		return nil
	}

	company, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		return err
	}

	if err := s.sendWelcome(ctx, user, company); err != nil {
		s.logger.Warn("failed to send welcome email",
			"user", user.ID, "organization", company.Identifier, "error", err)
	}

	now := time.Now()
	return s.db.WithContext(ctx).Model(m).Updates(map[string]interface{}{
		"registration_email_sent":    true,
		"registration_email_sent_at": now,
	}).Error
}

// ResendWelcomeEmail is the manual recovery affordance for a failed welcome
// send. Unlike Complete, a send failure here surfaces to the caller.
func (s *Service) ResendWelcomeEmail(ctx context.Context, user *models.User, orgID uuid.UUID) error {
	m, err := s.memberships.Find(ctx, user.ID, orgID)
	if err != nil {
		if errors.Is(err, membership.ErrNotFound) {
			return ErrNotMember
		}
		return err
	}

	company, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		return err
	}

	if err := s.sendWelcome(ctx, user, company); err != nil {
		return err
	}

	now := time.Now()
	return s.db.WithContext(ctx).Model(m).Updates(map[string]interface{}{
		"registration_email_sent":    true,
		"registration_email_sent_at": now,
	}).Error
}

func (s *Service) sendWelcome(ctx context.Context, user *models.User, company *models.Company) error {
	subject, body := mailer.WelcomeEmail(user.FirstName, company.Name, company.Identifier)
	_, err := s.mail.Send(ctx, user.Email, subject, body)
	return err
}
