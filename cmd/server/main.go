package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/caycohq/cayco-server/internal/api"
	"github.com/caycohq/cayco-server/internal/auth"
	"github.com/caycohq/cayco-server/internal/database"
	"github.com/caycohq/cayco-server/internal/mailer"
	"github.com/caycohq/cayco-server/internal/membership"
	"github.com/caycohq/cayco-server/internal/notify"
	"github.com/caycohq/cayco-server/internal/onboarding"
	"github.com/caycohq/cayco-server/internal/organization"
	"github.com/caycohq/cayco-server/internal/realtime"
	"github.com/caycohq/cayco-server/pkg/config"
	"github.com/caycohq/cayco-server/pkg/queue"
	"github.com/caycohq/cayco-server/pkg/util"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting cayco server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Redis backs realtime broadcasts and the task queue. The server stays
	// up without it, with those features degraded.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient = nil
	}

	var broadcaster realtime.Broadcaster = realtime.Noop{}
	asynqClient := queue.NewClient(&cfg.Redis)
	if redisClient != nil {
		broadcaster = realtime.NewRedisBroadcaster(redisClient)
	} else {
		asynqClient = nil
	}

	var sender mailer.Sender
	if smtp, err := mailer.NewSMTPSender(&cfg.Email); err != nil {
		logger.Warn("email sending disabled", "error", err)
		sender = mailer.NewMock()
	} else {
		sender = smtp
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.SessionTTL())
	orgService := organization.NewService(db)
	membershipService := membership.NewService(db)
	authService := auth.NewService(db, jwtService, orgService, membershipService, sender, &cfg.JWT, &cfg.App, logger)
	onboardingService := onboarding.NewService(db, membershipService, orgService, sender, logger)
	notifyService := notify.NewService(db, broadcaster, asynqClient, logger)

	router := api.NewRouter(api.RouterConfig{
		DB:                db,
		Redis:             redisClient,
		Logger:            logger,
		JWTService:        jwtService,
		AuthService:       authService,
		MembershipService: membershipService,
		OnboardingService: onboardingService,
		NotifyService:     notifyService,
		RateLimitReqs:     cfg.RateLimit.Requests,
		RateLimitSecs:     cfg.RateLimit.WindowSeconds,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
