package main

import (
	"fmt"
	"log"
	"net/http"

	"swiftride/internal/config"
	"swiftride/internal/handlers"
	"swiftride/internal/middleware"
	"swiftride/internal/repositories/mongodb"
	"swiftride/internal/services"
	"swiftride/pkg/cache"
	"swiftride/pkg/database"
	"swiftride/pkg/geo"
	"swiftride/pkg/logger"
	"swiftride/pkg/storage"
	"swiftride/pkg/websocket"
	"swiftride/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(&logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stdout",
		Colors: cfg.App.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// MongoDB
	db, err := database.NewMongoDB(&database.Config{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close()

	if err := db.EnsureIndexes(); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure indexes")
	}

	// Redis is optional: without it the app runs uncached and presence
	// heartbeats fall back to the database timestamps alone.
	var cacheService services.CacheService
	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Warn("Redis unavailable, continuing without cache")
	} else {
		defer redisCache.Close()
		cacheService = services.NewCacheService(redisCache, appLogger)
	}

	// Repositories
	userRepo := mongodb.NewUserRepository(db.Database, cacheService)
	tripRepo := mongodb.NewTripRepository(db.Database, cacheService)
	notificationRepo := mongodb.NewNotificationRepository(db.Database)

	// Driver-document storage
	var documentStorage storage.Provider
	switch cfg.Storage.Provider {
	case "s3":
		documentStorage, err = storage.NewAWSS3Storage(cfg.Storage.S3Region, cfg.Storage.S3Bucket)
	default:
		documentStorage, err = storage.NewLocalStorage(cfg.Storage.LocalPath, cfg.Storage.BaseURL)
	}
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize document storage")
	}

	// WebSocket push channel
	wsHandler := websocket.NewHandler()

	// Services
	estimator := geo.NewSyntheticEstimator()
	authService := services.NewAuthService(userRepo, tripRepo, notificationRepo, documentStorage, cfg.Security.JWTSecret, appLogger)
	tripService := services.NewTripService(tripRepo, notificationRepo, userRepo, estimator, wsHandler.Hub(), appLogger)
	presenceService := services.NewPresenceService(userRepo, cacheService, estimator, cfg.Presence.StalenessWindow, appLogger)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	tripHandler := handlers.NewTripHandler(tripService, appLogger)
	driverHandler := handlers.NewDriverHandler(presenceService, appLogger)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())

	v1 := router.Group("/api/v1")
	{
		routes.SetupAuthRoutes(v1, authHandler, cfg.Security.JWTSecret)
		routes.SetupDriverRoutes(v1, driverHandler, cfg.Security.JWTSecret)
		routes.SetupTripRoutes(v1, tripHandler, cfg.Security.JWTSecret)
	}

	// Live notification subscription
	router.GET("/ws", middleware.AuthRequired(cfg.Security.JWTSecret), wsHandler.HandleWebSocket)

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		if err := db.Ping(); err != nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"version": cfg.App.Version,
		})
	})

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	appLogger.WithField("addr", addr).Info("Starting server")
	if err := http.ListenAndServe(addr, router); err != nil {
		appLogger.WithError(err).Fatal("Server stopped")
	}
}
