package testutil

import (
	"io"
	"log/slog"
	"testing"

	"gorm.io/gorm"

	"github.com/caycohq/cayco-server/internal/auth"
	"github.com/caycohq/cayco-server/internal/mailer"
	"github.com/caycohq/cayco-server/internal/membership"
	"github.com/caycohq/cayco-server/internal/onboarding"
	"github.com/caycohq/cayco-server/internal/organization"
	"github.com/caycohq/cayco-server/pkg/config"
)

// TestContext wires the full service stack against an in-memory database
// and a recording mailer.
type TestContext struct {
	DB          *gorm.DB
	JWTService  *auth.JWTService
	Mailer      *mailer.Mock
	Orgs        *organization.Service
	Memberships *membership.Service
	Auth        *auth.Service
	Onboarding  *onboarding.Service
	Logger      *slog.Logger
	JWTConfig   *config.JWTConfig
	AppConfig   *config.AppConfig
}

func NewTestContext(t *testing.T) *TestContext {
	t.Helper()

	db := SetupTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	jwtCfg := &config.JWTConfig{
		Secret:          "test-secret-key-for-testing",
		SessionTTLHours: 24,
		InviteTTLHours:  168,
		ResetTTLMinutes: 10,
	}
	appCfg := &config.AppConfig{FrontendURL: "http://localhost:3000"}

	jwtService := auth.NewJWTService(jwtCfg.Secret, jwtCfg.SessionTTL())
	mock := mailer.NewMock()
	orgs := organization.NewService(db)
	memberships := membership.NewService(db)
	authService := auth.NewService(db, jwtService, orgs, memberships, mock, jwtCfg, appCfg, logger)
	onboardingService := onboarding.NewService(db, memberships, orgs, mock, logger)

	return &TestContext{
		DB:          db,
		JWTService:  jwtService,
		Mailer:      mock,
		Orgs:        orgs,
		Memberships: memberships,
		Auth:        authService,
		Onboarding:  onboardingService,
		Logger:      logger,
		JWTConfig:   jwtCfg,
		AppConfig:   appCfg,
	}
}

func (tc *TestContext) Cleanup() {
	sqlDB, err := tc.DB.DB()
	if err == nil {
		sqlDB.Close()
	}
}
