package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/caycohq/cayco-server/internal/access"
	"github.com/caycohq/cayco-server/internal/api/handlers"
	"github.com/caycohq/cayco-server/internal/api/middleware"
	"github.com/caycohq/cayco-server/internal/auth"
	"github.com/caycohq/cayco-server/internal/membership"
	"github.com/caycohq/cayco-server/internal/notify"
	"github.com/caycohq/cayco-server/internal/onboarding"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB                *gorm.DB
	Redis             *redis.Client
	Logger            *slog.Logger
	JWTService        *auth.JWTService
	AuthService       *auth.Service
	MembershipService *membership.Service
	OnboardingService *onboarding.Service
	NotifyService     *notify.Service
	AllowedOrigins    []string // CORS allowed origins
	RateLimitReqs     int      // Rate limit requests per window
	RateLimitSecs     int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.OrganizationHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	userHandler := handlers.NewUserHandler(cfg.DB, cfg.MembershipService)
	onboardingHandler := handlers.NewOnboardingHandler(cfg.OnboardingService)
	notificationHandler := handlers.NewNotificationHandler(cfg.NotifyService)
	roleHandler := handlers.NewRoleHandler(cfg.DB)
	customerHandler := handlers.NewCustomerHandler(cfg.DB)
	jobHandler := handlers.NewJobHandler(cfg.DB, cfg.NotifyService)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/invite/{token}", authHandler.VerifyInvite)
		r.Post("/auth/accept-invite", authHandler.AcceptInvite)
		r.Post("/auth/forgot-organization-id", authHandler.ForgotOrganizationID)
		r.Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/auth/reset-password", authHandler.ResetPassword)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService, cfg.DB))

			r.Get("/me", userHandler.Me)
			r.Get("/me/organizations", userHandler.MyOrganizations)
			r.Post("/me/switch-organization", userHandler.SwitchOrganization)

			// Everything below acts inside one organization.
			r.Group(func(r chi.Router) {
				r.Use(middleware.TenantScope)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(access.RoleCompanyOwner, access.RoleOperationsManager))
					r.Post("/auth/invite", authHandler.Invite)
					r.Delete("/auth/user/{userID}", authHandler.RemoveMember)
				})

				r.Route("/onboarding", func(r chi.Router) {
					r.Get("/status", onboardingHandler.Status)
					r.Post("/complete", onboardingHandler.Complete)
					r.Post("/resend-welcome", onboardingHandler.ResendWelcome)
				})

				r.Route("/users", func(r chi.Router) {
					r.Get("/", userHandler.List)
					r.Put("/{id}", userHandler.Update)
				})

				r.Route("/roles", func(r chi.Router) {
					r.Get("/", roleHandler.List)
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireRole(access.RoleCompanyOwner, access.RoleOperationsManager))
						r.Post("/", roleHandler.Create)
						r.Put("/{id}", roleHandler.Update)
						r.Delete("/{id}", roleHandler.Delete)
					})
				})

				r.Route("/notifications", func(r chi.Router) {
					r.Get("/", notificationHandler.List)
					r.Put("/{id}/read", notificationHandler.MarkRead)
					r.Put("/read-all", notificationHandler.MarkAllRead)
				})

				r.Route("/customers", func(r chi.Router) {
					r.With(middleware.RequirePermission(cfg.DB, "customers.view")).Get("/", customerHandler.List)
					r.With(middleware.RequirePermission(cfg.DB, "customers.view")).Get("/{id}", customerHandler.Get)
					r.With(middleware.RequirePermission(cfg.DB, "customers.create")).Post("/", customerHandler.Create)
					r.With(middleware.RequirePermission(cfg.DB, "customers.edit")).Put("/{id}", customerHandler.Update)
					r.With(middleware.RequirePermission(cfg.DB, "customers.delete")).Delete("/{id}", customerHandler.Delete)
				})

				r.Route("/jobs", func(r chi.Router) {
					r.With(middleware.RequirePermission(cfg.DB, "jobs.view")).Get("/", jobHandler.List)
					r.With(middleware.RequirePermission(cfg.DB, "jobs.view")).Get("/{id}", jobHandler.Get)
					r.With(middleware.RequirePermission(cfg.DB, "jobs.create")).Post("/", jobHandler.Create)
					r.With(middleware.RequirePermission(cfg.DB, "jobs.edit")).Put("/{id}", jobHandler.Update)
					r.With(middleware.RequirePermission(cfg.DB, "jobs.delete")).Delete("/{id}", jobHandler.Delete)
				})
			})
		})
	})

	return &Router{r}
}

var _ http.Handler = (*Router)(nil)
