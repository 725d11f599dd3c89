package testutil

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/caycohq/cayco-server/internal/auth"
	"github.com/caycohq/cayco-server/internal/database/models"
)

// SetupTestDB creates an in-memory SQLite database with the full schema.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Membership{},
		&models.Role{},
		&models.Notification{},
		&models.Customer{},
		&models.Job{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestCompany creates an organization with a unique identifier.
func CreateTestCompany(t *testing.T, db *gorm.DB) *models.Company {
	t.Helper()

	suffix := uuid.New().String()[:8]
	company := &models.Company{
		Base:       models.Base{ID: uuid.New()},
		Name:       "Test Company " + suffix,
		Identifier: newTestIdentifier(),
		Plan:       "free",
	}

	if err := db.Create(company).Error; err != nil {
		t.Fatalf("failed to create test company: %v", err)
	}

	return company
}

func newTestIdentifier() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:4]))
}

// CreateTestUser creates an active user with a known password
// ("testpassword123").
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base:               models.Base{ID: uuid.New()},
		Email:              "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash:       hash,
		FirstName:          "Test",
		LastName:           "User",
		GlobalRole:         "Staff",
		IsActive:           true,
		EmailNotifications: true,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateTestMembership links a user into a company with the given role,
// active and joined.
func CreateTestMembership(t *testing.T, db *gorm.DB, user *models.User, company *models.Company, role string) *models.Membership {
	t.Helper()

	now := time.Now().UTC()
	m := &models.Membership{
		Base:           models.Base{ID: uuid.New()},
		UserID:         user.ID,
		OrganizationID: company.ID,
		Role:           role,
		Status:         models.MembershipActive,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		JoinedAt:       &now,
	}

	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create test membership: %v", err)
	}

	if user.CurrentOrganizationID == nil {
		if err := db.Model(user).Update("current_organization_id", company.ID).Error; err != nil {
			t.Fatalf("failed to set current organization: %v", err)
		}
		user.CurrentOrganizationID = &company.ID
	}

	return m
}

// CreateTestMember is the common user+membership pairing.
func CreateTestMember(t *testing.T, db *gorm.DB, company *models.Company, role string) *models.User {
	t.Helper()
	user := CreateTestUser(t, db)
	CreateTestMembership(t, db, user, company, role)
	return user
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid session token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}
