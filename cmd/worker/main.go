package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/caycohq/cayco-server/internal/database"
	"github.com/caycohq/cayco-server/internal/mailer"
	"github.com/caycohq/cayco-server/internal/tasks"
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

	logger.Info("starting cayco worker")

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var sender mailer.Sender
	if smtp, err := mailer.NewSMTPSender(&cfg.Email); err != nil {
		logger.Warn("email sending disabled", "error", err)
		sender = mailer.NewMock()
	} else {
		sender = smtp
	}

	srv := queue.NewServer(&cfg.Redis, 10)

	handler := tasks.NewHandler(db, sender, logger)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
