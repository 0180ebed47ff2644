package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hmlee/shopcart-backend/config"
	"github.com/hmlee/shopcart-backend/internal/app/controller"
	"github.com/hmlee/shopcart-backend/internal/app/repository"
	"github.com/hmlee/shopcart-backend/internal/app/service"
	"github.com/hmlee/shopcart-backend/internal/cache"
	"github.com/hmlee/shopcart-backend/internal/db"
	"github.com/hmlee/shopcart-backend/internal/middleware"
	"github.com/hmlee/shopcart-backend/internal/router"
	"github.com/hmlee/shopcart-backend/pkg/logger"
	"github.com/hmlee/shopcart-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting Shopcart Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize document store
	if err := db.Initialize(&cfg.Mongo); err != nil {
		logger.Fatal("Failed to initialize document store", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close document store connection", err)
		}
	}()

	indexCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.EnsureIndexes(indexCtx); err != nil {
		logger.Fatal("Failed to ensure indexes", err)
	}

	// Initialize cart cache. The cache is an optimization, so a missing
	// Redis only degrades reads, it never blocks startup.
	var cartCache cache.CartCache
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, cart caching disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		cartCache = cache.NewRedisCartCache(redis.GetClient(), cfg.Redis.CartTTL)
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close redis connection", err)
			}
		}()
	}

	// Initialize repositories
	cartRepo := repository.NewCartRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())

	// Initialize services
	cartService := service.NewCartService(cartRepo, productRepo, cartCache, cfg.Mongo.Timeout)
	productService := service.NewProductService(productRepo, cfg.Mongo.Timeout)

	// Initialize controllers
	cartController := controller.NewCartController(cartService)
	productController := controller.NewProductController(productService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		cartController,
		productController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
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

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
