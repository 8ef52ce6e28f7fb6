package main

import (
	"context"
	"flag"
	"time"

	"go-productguard/internal/repository"
	"go-productguard/internal/service"
	"go-productguard/pkg/config"
	"go-productguard/pkg/database"
	"go-productguard/pkg/jwt"
	"go-productguard/pkg/logger"

	"go.uber.org/zap"
)

// reset-password overwrites a user's password and ends their sessions.
// Defaults to the seeded admin from ADMIN_EMAIL / ADMIN_PASSWORD.
func main() {
	cfg := config.Load()

	email := flag.String("email", cfg.Seed.AdminEmail, "user to reset")
	password := flag.String("password", cfg.Seed.AdminPassword, "new password")
	flag.Parse()

	log, err := logger.New(logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "productguard-reset-password",
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.ConnectDB(cfg.DB)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	auth := service.NewAuthService(repository.NewUserRepo(db), jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpirationHours), log)
	if err := auth.SetPassword(ctx, *email, *password); err != nil {
		log.Fatal("password reset failed", zap.String("email", *email), zap.Error(err))
	}

	log.Info("password reset", zap.String("email", *email))
}
