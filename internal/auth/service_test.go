package auth_test

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caycohq/cayco-server/internal/access"
	"github.com/caycohq/cayco-server/internal/auth"
	"github.com/caycohq/cayco-server/internal/database/models"
	"github.com/caycohq/cayco-server/internal/membership"
	"github.com/caycohq/cayco-server/internal/testutil"
)

var identifierPattern = regexp.MustCompile(`^[A-F0-9]{8}$`)

func register(t *testing.T, tc *testutil.TestContext, email, company string) *auth.AuthResponse {
	t.Helper()
	resp, err := tc.Auth.Register(context.Background(), auth.RegisterInput{
		Email:       email,
		Password:    "ownerpassword",
		FirstName:   "Olive",
		LastName:    "Owner",
		CompanyName: company,
	})
	require.NoError(t, err)
	return resp
}

// invite sends an invitation and returns the accept token lifted from the
// recorded email.
func invite(t *testing.T, tc *testutil.TestContext, orgID, invitedBy uuid.UUID, email, role string) string {
	t.Helper()
	before := len(tc.Mailer.Sent())
	_, err := tc.Auth.Invite(context.Background(), auth.InviteInput{
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		InvitedByID:    invitedBy,
	})
	require.NoError(t, err)
	sent := tc.Mailer.Sent()
	require.Len(t, sent, before+1)
	return extractToken(t, sent[len(sent)-1].HTML, "/invite/")
}

func extractToken(t *testing.T, html, marker string) string {
	t.Helper()
	idx := strings.Index(html, marker)
	require.GreaterOrEqual(t, idx, 0, "email should contain a %s link", marker)
	rest := html[idx+len(marker):]
	end := strings.IndexAny(rest, `"<`)
	require.Greater(t, end, 0)
	return rest[:end]
}

func TestRegister(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := context.Background()

	resp := register(t, tc, "owner@acme.test", "Acme Fencing")

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, access.RoleCompanyOwner, resp.Role)
	require.NotNil(t, resp.Organization)
	assert.Regexp(t, identifierPattern, resp.Organization.Identifier)
	assert.Equal(t, "Acme Fencing", resp.Organization.Name)

	claims, err := tc.JWTService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)

	m, err := tc.Memberships.FindActive(ctx, resp.User.ID, resp.Organization.ID)
	require.NoError(t, err)
	assert.Equal(t, access.RoleCompanyOwner, m.Role)
	require.NotNil(t, resp.User.CurrentOrganizationID)
	assert.Equal(t, resp.Organization.ID, *resp.User.CurrentOrganizationID)
}

func TestLogin(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := context.Background()

	owner := register(t, tc, "owner@acme.test", "Acme Fencing")
	identifier := owner.Organization.Identifier

	t.Run("successful login", func(t *testing.T) {
		resp, err := tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: identifier,
			Email:          "owner@acme.test",
			Password:       "ownerpassword",
		})
		require.NoError(t, err)
		assert.Equal(t, access.RoleCompanyOwner, resp.Role)
		assert.NotEmpty(t, resp.Token)
		assert.NotNil(t, resp.User.LastLoginAt)
	})

	t.Run("identifier and email are case-insensitive", func(t *testing.T) {
		_, err := tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: strings.ToLower(identifier),
			Email:          "OWNER@ACME.TEST",
			Password:       "ownerpassword",
		})
		require.NoError(t, err)
	})

	t.Run("unknown organization", func(t *testing.T) {
		_, err := tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: "00000000",
			Email:          "owner@acme.test",
			Password:       "ownerpassword",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidOrganization)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: identifier,
			Email:          "owner@acme.test",
			Password:       "not-the-password",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("member of a different organization", func(t *testing.T) {
		other := register(t, tc, "other@beta.test", "Beta Roofing")
		_, err := tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: other.Organization.Identifier,
			Email:          "owner@acme.test",
			Password:       "ownerpassword",
		})
		assert.ErrorIs(t, err, auth.ErrNotMember)
	})

	t.Run("role comes from the membership", func(t *testing.T) {
		// The user record says Company Owner globally; the membership in
		// this organization says Estimator and that is what the session
		// carries.
		company := testutil.CreateTestCompany(t, tc.DB)
		user := testutil.CreateTestUser(t, tc.DB)
		require.NoError(t, tc.DB.Model(user).Update("global_role", access.RoleCompanyOwner).Error)
		testutil.CreateTestMembership(t, tc.DB, user, company, access.RoleEstimator)

		resp, err := tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: company.Identifier,
			Email:          user.Email,
			Password:       "testpassword123",
		})
		require.NoError(t, err)
		assert.Equal(t, access.RoleEstimator, resp.Role)
	})

	t.Run("pending invite is refused before the password check", func(t *testing.T) {
		invite(t, tc, owner.Organization.ID, owner.User.ID, "pending@acme.test", access.RoleStaff)

		_, err := tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: identifier,
			Email:          "pending@acme.test",
			Password:       "whatever",
		})
		assert.ErrorIs(t, err, auth.ErrPendingInvite)
	})

	t.Run("inactive user", func(t *testing.T) {
		company := testutil.CreateTestCompany(t, tc.DB)
		user := testutil.CreateTestUser(t, tc.DB)
		testutil.CreateTestMembership(t, tc.DB, user, company, access.RoleStaff)
		require.NoError(t, tc.DB.Model(user).Update("is_active", false).Error)

		_, err := tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: company.Identifier,
			Email:          user.Email,
			Password:       "testpassword123",
		})
		assert.ErrorIs(t, err, auth.ErrInactiveUser)
	})
}

func TestInvite(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := context.Background()

	owner := register(t, tc, "owner@acme.test", "Acme Fencing")
	orgID := owner.Organization.ID

	t.Run("creates pending membership and sends email", func(t *testing.T) {
		tc.Mailer.Reset()
		user, err := tc.Auth.Invite(ctx, auth.InviteInput{
			OrganizationID: orgID,
			Email:          "New.Member@acme.test",
			Role:           access.RoleEstimator,
			InvitedByID:    owner.User.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, "new.member@acme.test", user.Email)

		m, err := tc.Memberships.Find(ctx, user.ID, orgID)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipPending, m.Status)
		assert.Equal(t, access.RoleEstimator, m.Role)

		sent := tc.Mailer.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "new.member@acme.test", sent[0].To)
		assert.Contains(t, sent[0].HTML, owner.Organization.Identifier)
		assert.Contains(t, sent[0].HTML, "/invite/")
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := tc.Auth.Invite(ctx, auth.InviteInput{
			OrganizationID: orgID,
			Email:          "someone@acme.test",
			Role:           "Warlord",
			InvitedByID:    owner.User.ID,
		})
		assert.ErrorIs(t, err, auth.ErrInvalidRole)
	})

	t.Run("super admin is not assignable", func(t *testing.T) {
		_, err := tc.Auth.Invite(ctx, auth.InviteInput{
			OrganizationID: orgID,
			Email:          "someone@acme.test",
			Role:           access.RoleSuperAdmin,
			InvitedByID:    owner.User.ID,
		})
		assert.ErrorIs(t, err, auth.ErrInvalidRole)
	})

	t.Run("already a member", func(t *testing.T) {
		_, err := tc.Auth.Invite(ctx, auth.InviteInput{
			OrganizationID: orgID,
			Email:          "new.member@acme.test",
			Role:           access.RoleStaff,
			InvitedByID:    owner.User.ID,
		})
		assert.ErrorIs(t, err, auth.ErrAlreadyMember)
	})

	t.Run("custom role is assignable", func(t *testing.T) {
		role := models.Role{
			OrganizationID: orgID,
			Name:           "Field Supervisor",
			Permissions:    models.PermissionList{{Resource: "jobs", Actions: []string{"view", "edit"}}},
			IsActive:       true,
		}
		require.NoError(t, tc.DB.Create(&role).Error)

		_, err := tc.Auth.Invite(ctx, auth.InviteInput{
			OrganizationID: orgID,
			Email:          "supervisor@acme.test",
			Role:           "Field Supervisor",
			InvitedByID:    owner.User.ID,
		})
		require.NoError(t, err)
	})

	t.Run("send failure does not roll back the invite", func(t *testing.T) {
		tc.Mailer.Reset()
		tc.Mailer.Err = assert.AnError
		defer tc.Mailer.Reset()

		user, err := tc.Auth.Invite(ctx, auth.InviteInput{
			OrganizationID: orgID,
			Email:          "unlucky@acme.test",
			Role:           access.RoleStaff,
			InvitedByID:    owner.User.ID,
		})
		require.NoError(t, err)

		m, err := tc.Memberships.Find(ctx, user.ID, orgID)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipPending, m.Status)
	})

	t.Run("existing user in another organization is reused", func(t *testing.T) {
		other := register(t, tc, "shared@both.test", "Beta Roofing")

		_, err := tc.Auth.Invite(ctx, auth.InviteInput{
			OrganizationID: orgID,
			Email:          "shared@both.test",
			Role:           access.RoleAccountant,
			InvitedByID:    owner.User.ID,
		})
		require.NoError(t, err)

		var count int64
		tc.DB.Model(&models.User{}).Where("email = ?", "shared@both.test").Count(&count)
		assert.Equal(t, int64(1), count)

		// Their standing in the original organization is untouched.
		m, err := tc.Memberships.FindActive(ctx, other.User.ID, other.Organization.ID)
		require.NoError(t, err)
		assert.Equal(t, access.RoleCompanyOwner, m.Role)
	})
}

func TestVerifyInvite(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := context.Background()

	owner := register(t, tc, "owner@acme.test", "Acme Fencing")
	token := invite(t, tc, owner.Organization.ID, owner.User.ID, "invitee@acme.test", access.RoleEstimator)

	t.Run("valid token", func(t *testing.T) {
		preview, err := tc.Auth.VerifyInvite(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, "invitee@acme.test", preview.Email)
		assert.Equal(t, access.RoleEstimator, preview.Role)
		assert.Equal(t, owner.Organization.ID, preview.OrganizationID)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := tc.Auth.VerifyInvite(ctx, "nope")
		assert.ErrorIs(t, err, auth.ErrInviteInvalid)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := tc.Auth.VerifyInvite(ctx, "")
		assert.ErrorIs(t, err, auth.ErrInviteInvalid)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := invite(t, tc, owner.Organization.ID, owner.User.ID, "late@acme.test", access.RoleStaff)
		past := time.Now().Add(-time.Hour)
		require.NoError(t, tc.DB.Model(&models.User{}).
			Where("invite_token = ?", expired).
			Update("invite_token_expires_at", past).Error)

		_, err := tc.Auth.VerifyInvite(ctx, expired)
		assert.ErrorIs(t, err, auth.ErrInviteInvalid)
	})
}

func TestAcceptInvite(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := context.Background()

	owner := register(t, tc, "owner@acme.test", "Acme Fencing")
	orgID := owner.Organization.ID
	identifier := owner.Organization.Identifier

	token := invite(t, tc, orgID, owner.User.ID, "invitee@acme.test", access.RoleEstimator)

	t.Run("login before accepting is refused", func(t *testing.T) {
		_, err := tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: identifier,
			Email:          "invitee@acme.test",
			Password:       "chosenpassword",
		})
		assert.ErrorIs(t, err, auth.ErrPendingInvite)
	})

	t.Run("accept activates the membership and opens a session", func(t *testing.T) {
		resp, err := tc.Auth.AcceptInvite(ctx, auth.AcceptInviteInput{
			Token:     token,
			Password:  "chosenpassword",
			FirstName: "Ivy",
			LastName:  "Invitee",
		})
		require.NoError(t, err)
		assert.Equal(t, access.RoleEstimator, resp.Role)
		assert.Equal(t, "Ivy", resp.User.FirstName)
		assert.Nil(t, resp.User.InviteToken)

		m, err := tc.Memberships.FindActive(ctx, resp.User.ID, orgID)
		require.NoError(t, err)
		assert.Equal(t, "Ivy", m.FirstName)
		assert.NotNil(t, m.JoinedAt)

		// And a normal login now works with the chosen password.
		_, err = tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: identifier,
			Email:          "invitee@acme.test",
			Password:       "chosenpassword",
		})
		require.NoError(t, err)
	})

	t.Run("replay is refused", func(t *testing.T) {
		_, err := tc.Auth.AcceptInvite(ctx, auth.AcceptInviteInput{
			Token:     token,
			Password:  "anotherpassword",
			FirstName: "Imp",
			LastName:  "Ostor",
		})
		assert.ErrorIs(t, err, auth.ErrInviteInvalid)
	})

	t.Run("expired token is refused", func(t *testing.T) {
		expired := invite(t, tc, orgID, owner.User.ID, "slow@acme.test", access.RoleStaff)
		past := time.Now().Add(-time.Minute)
		require.NoError(t, tc.DB.Model(&models.User{}).
			Where("invite_token = ?", expired).
			Update("invite_token_expires_at", past).Error)

		_, err := tc.Auth.AcceptInvite(ctx, auth.AcceptInviteInput{
			Token:     expired,
			Password:  "password",
			FirstName: "Slow",
			LastName:  "Poke",
		})
		assert.ErrorIs(t, err, auth.ErrInviteInvalid)
	})
}

func TestForgotOrganizationID(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := context.Background()

	owner := register(t, tc, "owner@acme.test", "Acme Fencing")

	t.Run("sends identifiers when credentials match", func(t *testing.T) {
		tc.Mailer.Reset()
		require.NoError(t, tc.Auth.ForgotOrganizationID(ctx, "owner@acme.test", "ownerpassword"))

		sent := tc.Mailer.Sent()
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].HTML, owner.Organization.Identifier)
	})

	t.Run("wrong password is silent", func(t *testing.T) {
		tc.Mailer.Reset()
		require.NoError(t, tc.Auth.ForgotOrganizationID(ctx, "owner@acme.test", "wrong"))
		assert.Empty(t, tc.Mailer.Sent())
	})

	t.Run("unknown email is silent", func(t *testing.T) {
		tc.Mailer.Reset()
		require.NoError(t, tc.Auth.ForgotOrganizationID(ctx, "ghost@acme.test", "ownerpassword"))
		assert.Empty(t, tc.Mailer.Sent())
	})
}

func TestForgotPassword(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := context.Background()

	owner := register(t, tc, "owner@acme.test", "Acme Fencing")
	identifier := owner.Organization.Identifier

	t.Run("stores a hashed token and emails the plaintext link", func(t *testing.T) {
		tc.Mailer.Reset()
		require.NoError(t, tc.Auth.ForgotPassword(ctx, "owner@acme.test", identifier))

		sent := tc.Mailer.Sent()
		require.Len(t, sent, 1)
		plaintext := extractToken(t, sent[0].HTML, "/reset-password/")

		var user models.User
		require.NoError(t, tc.DB.Where("email = ?", "owner@acme.test").First(&user).Error)
		require.NotNil(t, user.ResetTokenHash)
		assert.NotEqual(t, plaintext, *user.ResetTokenHash)
		assert.Equal(t, auth.HashToken(plaintext), *user.ResetTokenHash)
	})

	t.Run("unknown organization is silent", func(t *testing.T) {
		tc.Mailer.Reset()
		require.NoError(t, tc.Auth.ForgotPassword(ctx, "owner@acme.test", "00000000"))
		assert.Empty(t, tc.Mailer.Sent())
	})

	t.Run("non-member email is silent", func(t *testing.T) {
		tc.Mailer.Reset()
		require.NoError(t, tc.Auth.ForgotPassword(ctx, "ghost@acme.test", identifier))
		assert.Empty(t, tc.Mailer.Sent())
	})

	t.Run("send failure clears the token", func(t *testing.T) {
		tc.Mailer.Reset()
		tc.Mailer.Err = assert.AnError
		defer tc.Mailer.Reset()

		require.NoError(t, tc.Auth.ForgotPassword(ctx, "owner@acme.test", identifier))

		var user models.User
		require.NoError(t, tc.DB.Where("email = ?", "owner@acme.test").First(&user).Error)
		assert.Nil(t, user.ResetTokenHash)
	})
}

func TestResetPassword(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := context.Background()

	owner := register(t, tc, "owner@acme.test", "Acme Fencing")
	identifier := owner.Organization.Identifier

	requestReset := func(t *testing.T) string {
		t.Helper()
		tc.Mailer.Reset()
		require.NoError(t, tc.Auth.ForgotPassword(ctx, "owner@acme.test", identifier))
		sent := tc.Mailer.Sent()
		require.Len(t, sent, 1)
		return extractToken(t, sent[0].HTML, "/reset-password/")
	}

	t.Run("sets the new password and opens a session", func(t *testing.T) {
		token := requestReset(t)

		resp, err := tc.Auth.ResetPassword(ctx, token, "brandnewpassword")
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, access.RoleCompanyOwner, resp.Role)

		_, err = tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: identifier,
			Email:          "owner@acme.test",
			Password:       "brandnewpassword",
		})
		require.NoError(t, err)

		_, err = tc.Auth.Login(ctx, auth.LoginInput{
			OrganizationID: identifier,
			Email:          "owner@acme.test",
			Password:       "ownerpassword",
		})
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("replay is refused", func(t *testing.T) {
		token := requestReset(t)
		_, err := tc.Auth.ResetPassword(ctx, token, "passwordone")
		require.NoError(t, err)

		_, err = tc.Auth.ResetPassword(ctx, token, "passwordtwo")
		assert.ErrorIs(t, err, auth.ErrResetInvalid)
	})

	t.Run("expired token is refused", func(t *testing.T) {
		token := requestReset(t)
		past := time.Now().Add(-time.Minute)
		require.NoError(t, tc.DB.Model(&models.User{}).
			Where("email = ?", "owner@acme.test").
			Update("reset_token_expires_at", past).Error)

		_, err := tc.Auth.ResetPassword(ctx, token, "toolate")
		assert.ErrorIs(t, err, auth.ErrResetInvalid)
	})

	t.Run("garbage token is refused", func(t *testing.T) {
		_, err := tc.Auth.ResetPassword(ctx, "garbage", "password")
		assert.ErrorIs(t, err, auth.ErrResetInvalid)
	})
}

func TestRemoveMember(t *testing.T) {
	tc := testutil.NewTestContext(t)
	defer tc.Cleanup()
	ctx := context.Background()

	owner := register(t, tc, "owner@acme.test", "Acme Fencing")
	orgID := owner.Organization.ID

	t.Run("cannot remove yourself", func(t *testing.T) {
		err := tc.Auth.RemoveMember(ctx, orgID, owner.User.ID, owner.User.ID)
		assert.ErrorIs(t, err, auth.ErrCannotRemoveSelf)
	})

	t.Run("cannot remove the owner", func(t *testing.T) {
		actor := testutil.CreateTestMember(t, tc.DB, owner.Organization, access.RoleOperationsManager)
		err := tc.Auth.RemoveMember(ctx, orgID, actor.ID, owner.User.ID)
		assert.ErrorIs(t, err, membership.ErrCannotRemoveOwner)
	})

	t.Run("removing the last membership deactivates the user", func(t *testing.T) {
		target := testutil.CreateTestMember(t, tc.DB, owner.Organization, access.RoleStaff)

		require.NoError(t, tc.Auth.RemoveMember(ctx, orgID, owner.User.ID, target.ID))

		m, err := tc.Memberships.Find(ctx, target.ID, orgID)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipInactive, m.Status)

		var reloaded models.User
		require.NoError(t, tc.DB.First(&reloaded, "id = ?", target.ID).Error)
		assert.False(t, reloaded.IsActive)
		assert.Nil(t, reloaded.CurrentOrganizationID)
	})

	t.Run("user with another organization stays active", func(t *testing.T) {
		other := register(t, tc, "multi@both.test", "Beta Roofing")
		testutil.CreateTestMembership(t, tc.DB, other.User, owner.Organization, access.RoleStaff)

		require.NoError(t, tc.Auth.RemoveMember(ctx, orgID, owner.User.ID, other.User.ID))

		var reloaded models.User
		require.NoError(t, tc.DB.First(&reloaded, "id = ?", other.User.ID).Error)
		assert.True(t, reloaded.IsActive)
		require.NotNil(t, reloaded.CurrentOrganizationID)
		assert.Equal(t, other.Organization.ID, *reloaded.CurrentOrganizationID)
	})

	t.Run("unknown member", func(t *testing.T) {
		err := tc.Auth.RemoveMember(ctx, orgID, owner.User.ID, uuid.New())
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("removing twice reports not found", func(t *testing.T) {
		target := testutil.CreateTestMember(t, tc.DB, owner.Organization, access.RoleClient)
		require.NoError(t, tc.Auth.RemoveMember(ctx, orgID, owner.User.ID, target.ID))

		err := tc.Auth.RemoveMember(ctx, orgID, owner.User.ID, target.ID)
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}
