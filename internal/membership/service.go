package membership

import (
	"context"
	"errors"
	"time"

	"github.com/caycohq/cayco-server/internal/access"
	"github.com/caycohq/cayco-server/internal/database/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("membership not found")
	// ErrDuplicateMembership means the (user, organization) pair already has
	// a pending or active membership.
	ErrDuplicateMembership = errors.New("user already belongs to this organization")
	// ErrCannotRemoveOwner blocks the removal path for Owner memberships;
	// ownership must be transferred first.
	ErrCannotRemoveOwner = errors.New("cannot remove the company owner")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type CreateInput struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           string
	Status         string
	InvitedByID    *uuid.UUID
}

// Create inserts a membership for the pair, enforcing the one-membership-per
// (user, organization) invariant. A previously deactivated pair is revived
// in place rather than duplicated, so the unique index holds.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Membership, error) {
	db := s.db.WithContext(ctx)

	var existing models.Membership
	err := db.Where("user_id = ? AND organization_id = ?", input.UserID, input.OrganizationID).
		First(&existing).Error
	switch {
	case err == nil:
		if existing.Status != models.MembershipInactive {
			return nil, ErrDuplicateMembership
		}
		// Re-invite of a removed member: reuse the record.
		existing.Role = input.Role
		existing.Status = input.Status
		existing.InvitedByID = input.InvitedByID
		existing.JoinedAt = nil
		if err := db.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		// fall through to insert
	default:
		return nil, err
	}

	m := models.Membership{
		UserID:         input.UserID,
		OrganizationID: input.OrganizationID,
		Role:           input.Role,
		Status:         input.Status,
		InvitedByID:    input.InvitedByID,
	}
	if m.Status == "" {
		m.Status = models.MembershipPending
	}
	if m.Status == models.MembershipActive {
		now := time.Now()
		m.JoinedAt = &now
	}
	if err := db.Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateMembership
		}
		return nil, err
	}
	return &m, nil
}

// Find returns the membership for the pair regardless of status.
func (s *Service) Find(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// FindActive returns the active membership for the pair.
func (s *Service) FindActive(ctx context.Context, userID, orgID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ? AND status = ?",
			userID, orgID, models.MembershipActive).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Activate moves a pending membership to active and stamps JoinedAt.
func (s *Service) Activate(ctx context.Context, m *models.Membership) error {
	now := time.Now()
	m.Status = models.MembershipActive
	m.JoinedAt = &now
	return s.db.WithContext(ctx).Save(m).Error
}

// Deactivate removes a member from the organization and reconciles the user
// record: the cached organization pointer is reassigned to a remaining
// active membership or cleared, and the user is switched inactive when no
// active memberships remain anywhere.
func (s *Service) Deactivate(ctx context.Context, m *models.Membership) error {
	if m.Role == access.RoleCompanyOwner {
		return ErrCannotRemoveOwner
	}

	db := s.db.WithContext(ctx)

	m.Status = models.MembershipInactive
	if err := db.Save(m).Error; err != nil {
		return err
	}

	var remaining []models.Membership
	if err := db.Where("user_id = ? AND status = ? AND organization_id <> ?",
		m.UserID, models.MembershipActive, m.OrganizationID).
		Find(&remaining).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if len(remaining) == 0 {
		updates["is_active"] = false
		updates["current_organization_id"] = nil
	} else {
		updates["current_organization_id"] = remaining[0].OrganizationID
	}
	return db.Model(&models.User{}).Where("id = ?", m.UserID).Updates(updates).Error
}

// ListActiveForUser returns all active memberships for a user with their
// organizations preloaded.
func (s *Service) ListActiveForUser(ctx context.Context, userID uuid.UUID) ([]models.Membership, error) {
	var ms []models.Membership
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ? AND status = ?", userID, models.MembershipActive).
		Find(&ms).Error
	return ms, err
}

// ListForOrganization returns every non-inactive membership in an
// organization with users preloaded.
func (s *Service) ListForOrganization(ctx context.Context, orgID uuid.UUID) ([]models.Membership, error) {
	var ms []models.Membership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ? AND status <> ?", orgID, models.MembershipInactive).
		Find(&ms).Error
	return ms, err
}
