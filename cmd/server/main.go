package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delivery_api/internal/auth"
	"delivery_api/internal/config"
	"delivery_api/internal/database"
	"delivery_api/internal/events"
	"delivery_api/internal/handlers"
	"delivery_api/internal/logging"
	"delivery_api/internal/migrations"
	"delivery_api/internal/pricing"
	"delivery_api/internal/redis"
	"delivery_api/internal/repository"
	"delivery_api/internal/services"
	"delivery_api/pkg/whatsapp"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.Initialize(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	userRepo := repository.NewUserRepository(db)
	authService := services.NewAuthService(userRepo, tokens, cfg.BcryptCost)

	err = migrations.RunMigrations(context.Background(), db, logger, migrations.Options{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		SeedCatalog:   cfg.SeedCatalog,
		HashPassword:  authService.HashPassword,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	// Redis is optional: without it the catalog is not cached and no recent
	// events are kept.
	var (
		redisClient *redis.Client
		cache       services.Cache
		history     handlers.EventHistory
		redisPing   handlers.PingFunc
	)
	if cfg.RedisURL != "" {
		redisClient, err = redis.Initialize(cfg.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, continuing without cache")
			redisClient = nil
		} else {
			cache = redisClient
			history = redisClient
			redisPing = redisClient.Ping
		}
	}

	// Event sinks
	var sinks []events.Sink
	var kafka *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrdersTopic, logger)
		if err != nil {
			logger.WithError(err).Warn("Kafka unavailable, order events will not be streamed")
		} else {
			sinks = append(sinks, kafka)
		}
	}
	if redisClient != nil {
		sinks = append(sinks, events.NewRedisSink(redisClient))
	}
	if cfg.WhatsAppAPIURL != "" {
		whatsappClient := whatsapp.NewClient(cfg.WhatsAppAPIURL, cfg.WhatsAppUsername, cfg.WhatsAppPassword, cfg.WhatsAppPath)
		sinks = append(sinks, services.NewWhatsAppNotifier(whatsappClient, userRepo))
	}
	dispatcher := events.NewDispatcher(events.DefaultDispatcherConfig(), logger, sinks...)
	dispatcher.Start()

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	// Initialize services
	catalogService := services.NewCatalogService(productRepo, cache, cfg.CacheTTL, logger)
	addressService := services.NewAddressService(addressRepo)
	orderService := services.NewOrderService(orderRepo, dispatcher, services.OrderServiceConfig{
		Rules: pricing.Rules{
			DeliveryFee:           cfg.DeliveryFee,
			FreeDeliveryThreshold: cfg.FreeDeliveryThreshold,
		},
		StoreTimeout: cfg.StoreTimeout,
	}, logger)

	// Setup routes
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := handlers.NewRateLimiter(cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
	limiter.StartCleanup(ctx, cfg.RateLimitWindow)

	router := handlers.NewRouter(handlers.RouterConfig{
		CORSOrigin:  cfg.CORSOrigin,
		RateLimiter: limiter,
		Verifier:    authService,
		Logger:      logger,
	}, handlers.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		Products:  handlers.NewProductHandler(catalogService),
		Addresses: handlers.NewAddressHandler(addressService),
		Orders:    handlers.NewOrderHandler(orderService, history),
		Health: handlers.NewHealthHandler(func(ctx context.Context) error {
			return database.Ping(ctx, db)
		}, redisPing),
	})

	srv := handlers.Server(":"+cfg.ServerPort, router)
	go func() {
		logger.WithField("port", cfg.ServerPort).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Dropped pending order events")
	}
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close Kafka producer")
		}
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if err := database.Close(db); err != nil {
		logger.WithError(err).Warn("Failed to close database")
	}
	logger.Info("Server stopped")
}
