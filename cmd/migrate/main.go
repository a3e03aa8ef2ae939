package main

import (
	"context"
	"flag"
	"time"

	"delivery_api/internal/auth"
	"delivery_api/internal/config"
	"delivery_api/internal/database"
	"delivery_api/internal/logging"
	"delivery_api/internal/migrations"
	"delivery_api/internal/repository"
	"delivery_api/internal/services"
)

func main() {
	seed := flag.Bool("seed", false, "seed the demo catalog and WELCOME10 coupon")
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	logger.Info("Initializing database...")
	db, err := database.Initialize(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close(db)

	authService := services.NewAuthService(
		repository.NewUserRepository(db),
		auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		cfg.BcryptCost,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	err = migrations.RunMigrations(ctx, db, logger, migrations.Options{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		SeedCatalog:   cfg.SeedCatalog || *seed,
		HashPassword:  authService.HashPassword,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	logger.Info("Database initialization completed successfully!")
}
