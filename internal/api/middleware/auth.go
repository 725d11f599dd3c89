package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/caycohq/cayco-server/internal/access"
	"github.com/caycohq/cayco-server/internal/auth"
	"github.com/caycohq/cayco-server/internal/database/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type contextKey string

const (
	UserKey           contextKey = "user"
	UserIDKey         contextKey = "user_id"
	OrganizationIDKey contextKey = "organization_id"
	UserEmailKey      contextKey = "user_email"
	UserRoleKey       contextKey = "user_role"
)

// OrganizationHeader lets a multi-organization user pick which tenant a
// request acts in. Absent the header, the user's cached current organization
// is used. Either way the claimed organization is only honored after an
// active membership for it is found.
const OrganizationHeader = "X-Organization-ID"

// Auth authenticates the session token and resolves the request's effective
// role. The token carries only the user id; role and organization context
// are re-derived here from the membership ledger on every request, so
// revoking a membership takes effect immediately.
func Auth(jwtService *auth.JWTService, db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				unauthorized(w)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				unauthorized(w)
				return
			}

			var user models.User
			if err := db.WithContext(r.Context()).First(&user, "id = ?", claims.UserID).Error; err != nil {
				unauthorized(w)
				return
			}
			if !user.IsActive {
				unauthorized(w)
				return
			}

			orgID, ok := requestedOrganization(r, &user)

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserKey, &user)
			ctx = context.WithValue(ctx, UserIDKey, user.ID)
			ctx = context.WithValue(ctx, UserEmailKey, user.Email)

			if user.GlobalRole == access.RoleSuperAdmin {
				ctx = context.WithValue(ctx, UserRoleKey, access.RoleSuperAdmin)
				if ok {
					ctx = context.WithValue(ctx, OrganizationIDKey, orgID)
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if ok {
				var m models.Membership
				err := db.WithContext(r.Context()).
					Where("user_id = ? AND organization_id = ? AND status = ?",
						user.ID, orgID, models.MembershipActive).
					First(&m).Error
				if err != nil {
					http.Error(w, "You are not a member of this organization", http.StatusForbidden)
					return
				}
				ctx = context.WithValue(ctx, OrganizationIDKey, orgID)
				ctx = context.WithValue(ctx, UserRoleKey, m.Role)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

func requestedOrganization(r *http.Request, user *models.User) (uuid.UUID, bool) {
	if header := r.Header.Get(OrganizationHeader); header != "" {
		if id, err := uuid.Parse(header); err == nil {
			return id, true
		}
		return uuid.Nil, false
	}
	if user.CurrentOrganizationID != nil {
		return *user.CurrentOrganizationID, true
	}
	return uuid.Nil, false
}

func unauthorized(w http.ResponseWriter) {
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// TenantScope guarantees an organization context is present before any
// tenant-scoped handler runs. Handlers must take the organization exclusively
// from the request context; any organization field arriving in a request
// body is overwritten. Super Admins pass through unscoped.
func TenantScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserRole(r.Context()) == access.RoleSuperAdmin {
			next.ServeHTTP(w, r)
			return
		}
		if GetOrganizationID(r.Context()) == uuid.Nil {
			http.Error(w, "User must be associated with an organization", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the effective role is one of the given roles. Super
// Admin always passes.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole := GetUserRole(r.Context())
			if userRole == access.RoleSuperAdmin {
				next.ServeHTTP(w, r)
				return
			}
			for _, role := range roles {
				if userRole == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
		})
	}
}

// RequirePermission checks a "resource.action" capability against the fixed
// matrix, falling back to the organization's custom roles for roles the
// matrix does not know.
func RequirePermission(db *gorm.DB, permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetUserRole(r.Context())
			if role == "" {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			var customRoles []models.Role
			if !access.IsFixedRole(role) {
				orgID := GetOrganizationID(r.Context())
				if err := db.WithContext(r.Context()).
					Where("organization_id = ? AND is_active = ?", orgID, true).
					Find(&customRoles).Error; err != nil {
					http.Error(w, "Server error", http.StatusInternalServerError)
					return
				}
			}

			if !access.HasPermission(role, permission, customRoles) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Helper functions to extract values from context
func GetUser(ctx context.Context) *models.User {
	if u, ok := ctx.Value(UserKey).(*models.User); ok {
		return u
	}
	return nil
}

func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func GetOrganizationID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(OrganizationIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

func GetUserEmail(ctx context.Context) string {
	if email, ok := ctx.Value(UserEmailKey).(string); ok {
		return email
	}
	return ""
}

func GetUserRole(ctx context.Context) string {
	if role, ok := ctx.Value(UserRoleKey).(string); ok {
		return role
	}
	return ""
}
