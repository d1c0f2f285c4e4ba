package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mduc/storefront-backend/config"
	"github.com/mduc/storefront-backend/internal/app/controller"
	"github.com/mduc/storefront-backend/internal/app/repository"
	"github.com/mduc/storefront-backend/internal/app/service"
	"github.com/mduc/storefront-backend/internal/db"
	"github.com/mduc/storefront-backend/internal/middleware"
	"github.com/mduc/storefront-backend/internal/router"
	"github.com/mduc/storefront-backend/internal/scheduler"
	"github.com/mduc/storefront-backend/internal/storage"
	"github.com/mduc/storefront-backend/pkg/logger"
	"github.com/mduc/storefront-backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // use "json" in production
		EnableColor: true,
	})

	logger.Info("Starting Storefront Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis backs the logout token blacklist; the server still works
	// without it, tokens just stay valid until they expire.
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, logout blacklist disabled", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())
	promotionRepo := repository.NewPromotionRepository(db.GetDB())

	shippingRule := service.ShippingRule{
		FreeThreshold: cfg.Order.FreeShippingThreshold,
		FlatFee:       cfg.Order.FlatShippingFee,
	}

	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo)
	orderService := service.NewOrderService(db.GetDB(), orderRepo, shippingRule)
	promotionService := service.NewPromotionService(db.GetDB(), promotionRepo)

	s3Storage := storage.NewS3Storage(
		cfg.S3.Region,
		cfg.S3.Bucket,
		cfg.S3.AccessKeyID,
		cfg.S3.SecretAccessKey,
		cfg.S3.BaseURL,
	)

	authController := controller.NewAuthController(authService, cfg.JWT.AccessTokenExpiry)
	productController := controller.NewProductController(productService)
	orderController := controller.NewOrderController(orderService)
	promotionController := controller.NewPromotionController(promotionService)
	uploadController := controller.NewUploadController(s3Storage)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	r := router.NewRouter(
		authController,
		productController,
		orderController,
		promotionController,
		uploadController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	expiryScheduler := scheduler.NewOrderExpiryScheduler(orderService, cfg.Order.PendingTTL)
	if err := expiryScheduler.Start(); err != nil {
		logger.Fatal("Failed to start order expiry scheduler", err)
	}
	defer expiryScheduler.Stop()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
