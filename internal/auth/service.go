package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/caycohq/cayco-server/internal/access"
	"github.com/caycohq/cayco-server/internal/database/models"
	"github.com/caycohq/cayco-server/internal/mailer"
	"github.com/caycohq/cayco-server/internal/membership"
	"github.com/caycohq/cayco-server/internal/organization"
	"github.com/caycohq/cayco-server/pkg/config"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidOrganization = errors.New("invalid organization ID")
	ErrNotMember           = errors.New("you are not a member of this organization")
	ErrPendingInvite       = errors.New("please accept your invitation first")
	ErrInactiveUser        = errors.New("account is inactive")
	ErrAlreadyMember       = errors.New("user with this email already exists in your organization")
	ErrInvalidRole         = errors.New("invalid role")
	ErrInviteInvalid       = errors.New("invalid or expired invitation token")
	ErrResetInvalid        = errors.New("invalid or expired reset token")
	ErrCannotRemoveSelf    = errors.New("you cannot remove yourself")
)

type Service struct {
	db          *gorm.DB
	jwt         *JWTService
	orgs        *organization.Service
	memberships *membership.Service
	mail        mailer.Sender
	jwtCfg      *config.JWTConfig
	app         *config.AppConfig
	logger      *slog.Logger
}

func NewService(
	db *gorm.DB,
	jwt *JWTService,
	orgs *organization.Service,
	memberships *membership.Service,
	mail mailer.Sender,
	jwtCfg *config.JWTConfig,
	app *config.AppConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:          db,
		jwt:         jwt,
		orgs:        orgs,
		memberships: memberships,
		mail:        mail,
		jwtCfg:      jwtCfg,
		app:         app,
		logger:      logger,
	}
}

// AuthResponse is what every session-issuing operation returns. Role is the
// effective membership role for the organization, not User.GlobalRole.
type AuthResponse struct {
	Token        string          `json:"token"`
	User         *models.User    `json:"user"`
	Role         string          `json:"role"`
	Organization *models.Company `json:"organization,omitempty"`
}

type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	CompanyName string
	Phone       string
}

// Register creates the User, the Company (with a fresh identifier) and the
// active owner Membership in one transaction.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	var (
		user    models.User
		company *models.Company
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user = models.User{
			Email:        normalizeEmail(input.Email),
			PasswordHash: hash,
			FirstName:    strings.TrimSpace(input.FirstName),
			LastName:     strings.TrimSpace(input.LastName),
			Phone:        input.Phone,
			GlobalRole:   access.RoleCompanyOwner,
			IsActive:     true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		company, err = s.orgs.CreateTx(tx, organization.CreateInput{
			Name:    input.CompanyName,
			OwnerID: user.ID,
			Email:   user.Email,
			Phone:   input.Phone,
		})
		if err != nil {
			return err
		}

		if err := tx.Model(&user).
			Update("current_organization_id", company.ID).Error; err != nil {
			return err
		}
		user.CurrentOrganizationID = &company.ID

		now := time.Now()
		m := models.Membership{
			UserID:         user.ID,
			OrganizationID: company.ID,
			Role:           access.RoleCompanyOwner,
			Status:         models.MembershipActive,
			FirstName:      user.FirstName,
			LastName:       user.LastName,
			JoinedAt:       &now,
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token:        token,
		User:         &user,
		Role:         access.RoleCompanyOwner,
		Organization: company,
	}, nil
}

type LoginInput struct {
	OrganizationID string // the public 8-char identifier
	Email          string
	Password       string
}

// Login resolves (organization, email, password) to a session. The effective
// role comes from the membership, never from the user record. A user still
// holding a live invite token is turned away before the password is checked,
// so a half-onboarded account cannot be probed for password correctness.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	company, err := s.orgs.FindByIdentifier(ctx, input.OrganizationID)
	if err != nil {
		if errors.Is(err, organization.ErrNotFound) {
			return nil, ErrInvalidOrganization
		}
		return nil, err
	}

	user, m, err := s.findMember(ctx, input.Email, company.ID)
	if err != nil {
		return nil, err
	}

	if m.Status == models.MembershipPending {
		return nil, ErrPendingInvite
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"last_login_at":           now,
		"current_organization_id": company.ID,
	}).Error; err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	user.CurrentOrganizationID = &company.ID

	token, err := s.jwt.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token:        token,
		User:         user,
		Role:         m.Role,
		Organization: company,
	}, nil
}

// findMember locates the user carrying a live membership in the given
// organization. Several user records may share an email across tenants; only
// the one belonging to this organization counts. Pending memberships are
// returned so the caller can refuse them by name.
func (s *Service) findMember(ctx context.Context, email string, orgID uuid.UUID) (*models.User, *models.Membership, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		Find(&users).Error; err != nil {
		return nil, nil, err
	}
	if len(users) == 0 {
		return nil, nil, ErrInvalidCredentials
	}

	for i := range users {
		m, err := s.memberships.Find(ctx, users[i].ID, orgID)
		if err == nil {
			if m.Status == models.MembershipInactive {
				continue
			}
			return &users[i], m, nil
		}
		if !errors.Is(err, membership.ErrNotFound) {
			return nil, nil, err
		}
	}
	return nil, nil, ErrNotMember
}

type InviteInput struct {
	OrganizationID uuid.UUID
	Email          string
	Role           string
	InvitedByID    uuid.UUID
}

// Invite creates (or reuses) the user record with a temporary password and a
// pending membership, then dispatches the invitation email. A failed send
// does not roll anything back: the invite stays resumable and can be sent
// again by re-inviting after removal or via the onboarding resend path.
func (s *Service) Invite(ctx context.Context, input InviteInput) (*models.User, error) {
	email := normalizeEmail(input.Email)

	if err := s.validateRole(ctx, input.OrganizationID, input.Role); err != nil {
		return nil, err
	}

	company, err := s.orgs.FindByID(ctx, input.OrganizationID)
	if err != nil {
		return nil, err
	}

	var existing []models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).Find(&existing).Error; err != nil {
		return nil, err
	}
	for i := range existing {
		m, err := s.memberships.Find(ctx, existing[i].ID, company.ID)
		if err != nil {
			if errors.Is(err, membership.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if m.Status != models.MembershipInactive {
			return nil, ErrAlreadyMember
		}
	}

	token := NewInviteToken(s.jwtCfg.InviteTTL())

	// User write first, membership second: a reader can never observe a
	// membership pointing at a user that is not yet in its invited state.
	var user *models.User
	if len(existing) > 0 {
		user = &existing[0]
		if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
			"invite_token":            token.StoredForm,
			"invite_token_expires_at": token.ExpiresAt,
			"current_organization_id": company.ID,
		}).Error; err != nil {
			return nil, err
		}
		user.InviteToken = &token.StoredForm
		user.InviteTokenExpiresAt = &token.ExpiresAt
	} else {
		tempHash, err := HashPassword(RandomPassword())
		if err != nil {
			return nil, err
		}
		globalRole := input.Role
		if !access.IsFixedRole(globalRole) {
			globalRole = access.RoleStaff
		}
		user = &models.User{
			Email:                 email,
			PasswordHash:          tempHash,
			GlobalRole:            globalRole,
			CurrentOrganizationID: &company.ID,
			IsActive:              true,
			InviteToken:           &token.StoredForm,
			InviteTokenExpiresAt:  &token.ExpiresAt,
		}
		if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
			return nil, err
		}
	}

	invitedBy := input.InvitedByID
	if _, err := s.memberships.Create(ctx, membership.CreateInput{
		UserID:         user.ID,
		OrganizationID: company.ID,
		Role:           input.Role,
		Status:         models.MembershipPending,
		InvitedByID:    &invitedBy,
	}); err != nil {
		return nil, err
	}

	subject, body := mailer.InviteEmail(company.Name, input.Role, company.Identifier, s.app.InviteLink(token.Plaintext))
	if _, err := s.mail.Send(ctx, email, subject, body); err != nil {
		s.logger.Warn("failed to send invitation email",
			"email", email, "organization", company.Identifier, "error", err)
	}

	return user, nil
}

func (s *Service) validateRole(ctx context.Context, orgID uuid.UUID, role string) error {
	if access.IsAssignableRole(role) {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Role{}).
		Where("organization_id = ? AND name = ? AND is_active = ?", orgID, role, true).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrInvalidRole
	}
	return nil
}

// InvitePreview is the public view of a pending invitation.
type InvitePreview struct {
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	OrganizationID uuid.UUID `json:"company_id"`
}

func (s *Service) VerifyInvite(ctx context.Context, token string) (*InvitePreview, error) {
	user, err := s.userByInviteToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if user.CurrentOrganizationID == nil {
		return nil, ErrInviteInvalid
	}
	m, err := s.memberships.Find(ctx, user.ID, *user.CurrentOrganizationID)
	if err != nil {
		return nil, ErrInviteInvalid
	}
	return &InvitePreview{
		Email:          user.Email,
		Role:           m.Role,
		OrganizationID: m.OrganizationID,
	}, nil
}

func (s *Service) userByInviteToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInviteInvalid
	}
	var user models.User
	err := s.db.WithContext(ctx).
		Where("invite_token = ? AND invite_token_expires_at > ?", token, time.Now()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteInvalid
		}
		return nil, err
	}
	return &user, nil
}

type AcceptInviteInput struct {
	Token     string
	Password  string
	FirstName string
	LastName  string
}

// AcceptInvite claims the token, finalizes the user record and activates the
// membership. The claim is a conditional update guarded by the token value:
// two racing accepts resolve to one winner, the loser sees zero rows updated
// and gets the same invalid/expired error a replay would.
func (s *Service) AcceptInvite(ctx context.Context, input AcceptInviteInput) (*AuthResponse, error) {
	user, err := s.userByInviteToken(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND invite_token = ?", user.ID, input.Token).
		Updates(map[string]interface{}{
			"password_hash":           hash,
			"first_name":              firstName,
			"last_name":               lastName,
			"is_active":               true,
			"invite_token":            nil,
			"invite_token_expires_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInviteInvalid
	}
	user.FirstName = firstName
	user.LastName = lastName
	user.IsActive = true
	user.InviteToken = nil
	user.InviteTokenExpiresAt = nil

	if user.CurrentOrganizationID == nil {
		return nil, ErrInviteInvalid
	}
	orgID := *user.CurrentOrganizationID

	// The membership may be missing if the invite partially failed earlier;
	// recreate it instead of refusing the accept.
	m, err := s.memberships.Find(ctx, user.ID, orgID)
	switch {
	case err == nil:
		m.FirstName = firstName
		m.LastName = lastName
		if err := s.memberships.Activate(ctx, m); err != nil {
			return nil, err
		}
	case errors.Is(err, membership.ErrNotFound):
		m, err = s.memberships.Create(ctx, membership.CreateInput{
			UserID:         user.ID,
			OrganizationID: orgID,
			Role:           user.GlobalRole,
			Status:         models.MembershipActive,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	company, err := s.orgs.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token:        token,
		User:         user,
		Role:         m.Role,
		Organization: company,
	}, nil
}

// ForgotOrganizationID emails the caller the identifiers of every
// organization they actively belong to. Every failure mode is silent: the
// handler answers with the same generic message whether or not the
// credentials matched anything, so account existence is never disclosed.
func (s *Service) ForgotOrganizationID(ctx context.Context, email, password string) error {
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		Find(&users).Error; err != nil {
		return err
	}

	var orgs []mailer.OrgSummary
	for i := range users {
		if !CheckPassword(password, users[i].PasswordHash) {
			continue
		}
		ms, err := s.memberships.ListActiveForUser(ctx, users[i].ID)
		if err != nil {
			return err
		}
		for _, m := range ms {
			if m.Organization == nil {
				continue
			}
			orgs = append(orgs, mailer.OrgSummary{
				Name:       m.Organization.Name,
				Identifier: m.Organization.Identifier,
				Role:       m.Role,
			})
		}
	}
	if len(orgs) == 0 {
		return nil
	}

	subject, body := mailer.ForgotOrgIDEmail(orgs)
	if _, err := s.mail.Send(ctx, normalizeEmail(email), subject, body); err != nil {
		s.logger.Warn("failed to send organization ID email", "error", err)
	}
	return nil
}

// ForgotPassword issues a short-lived reset token and emails the link. Like
// ForgotOrganizationID, misses are silent. If the email cannot be sent the
// token is cleared again so no live secret is left behind without a link
// pointing at it.
func (s *Service) ForgotPassword(ctx context.Context, email, orgIdentifier string) error {
	company, err := s.orgs.FindByIdentifier(ctx, orgIdentifier)
	if err != nil {
		if errors.Is(err, organization.ErrNotFound) {
			return nil
		}
		return err
	}

	user, _, err := s.findMember(ctx, email, company.ID)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrNotMember) {
			return nil
		}
		return err
	}

	token := NewResetToken(s.jwtCfg.ResetTTL())
	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"reset_token_hash":       token.StoredForm,
		"reset_token_expires_at": token.ExpiresAt,
	}).Error; err != nil {
		return err
	}

	subject, body := mailer.PasswordResetEmail(company.Name, company.Identifier, s.app.ResetLink(token.Plaintext))
	if _, err := s.mail.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Warn("failed to send password reset email", "error", err)
		return s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
			"reset_token_hash":       nil,
			"reset_token_expires_at": nil,
		}).Error
	}
	return nil
}

// ResetPassword claims the reset token and sets the new password, returning
// a fresh session. The stored form is a hash, so the candidate is hashed
// before lookup; the claim uses the same conditional-update pattern as
// AcceptInvite.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (*AuthResponse, error) {
	if token == "" {
		return nil, ErrResetInvalid
	}

	hashed := HashToken(token)
	var user models.User
	err := s.db.WithContext(ctx).
		Where("reset_token_hash = ? AND reset_token_expires_at > ?", hashed, time.Now()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResetInvalid
		}
		return nil, err
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND reset_token_hash = ?", user.ID, hashed).
		Updates(map[string]interface{}{
			"password_hash":          passwordHash,
			"reset_token_hash":       nil,
			"reset_token_expires_at": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrResetInvalid
	}

	resp := &AuthResponse{User: &user}
	if user.CurrentOrganizationID != nil {
		if m, err := s.memberships.FindActive(ctx, user.ID, *user.CurrentOrganizationID); err == nil {
			resp.Role = m.Role
		}
		if company, err := s.orgs.FindByID(ctx, *user.CurrentOrganizationID); err == nil {
			resp.Organization = company
		}
	}

	sessionToken, err := s.jwt.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	resp.Token = sessionToken
	return resp, nil
}

// RemoveMember deactivates the target's membership in the organization. The
// user record itself survives; the ledger reconciliation in Deactivate
// decides whether it stays operable.
func (s *Service) RemoveMember(ctx context.Context, orgID, actorID, targetUserID uuid.UUID) error {
	if actorID == targetUserID {
		return ErrCannotRemoveSelf
	}

	m, err := s.memberships.Find(ctx, targetUserID, orgID)
	if err != nil {
		if errors.Is(err, membership.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if m.Status == models.MembershipInactive {
		return ErrUserNotFound
	}

	return s.memberships.Deactivate(ctx, m)
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
