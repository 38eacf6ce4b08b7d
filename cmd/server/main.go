package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artgallerycloud/server/internal/api"
	"github.com/artgallerycloud/server/internal/config"
	"github.com/artgallerycloud/server/internal/repository"
	"github.com/artgallerycloud/server/internal/service"
	"github.com/artgallerycloud/server/internal/storage"
	"github.com/artgallerycloud/server/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	log := utils.NewLogger(cfg.LogLevel, cfg.AppEnv)

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer db.Close()
	log.Info("Database connected")

	// Set up image store
	store, err := storage.NewStoreFromConfig(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to set up image store: %v", err)
	}
	log.Infof("Image store ready (driver: %s)", cfg.Storage.Driver)

	// Create repository
	repo := repository.NewPostgresRepository(db, cfg.Purchase.LockTimeout, cfg.Purchase.MaxRetries)

	// Create service
	svc := service.NewDefaultService(repo, store, log, cfg.Auth.JWTSecret)

	// Create API handler
	handler := api.NewHandler(svc, log)

	// Set up Gin router
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Serve locally stored images when the local driver is active
	if local, ok := store.(*storage.LocalStore); ok {
		router.Static("/static", local.BaseDir())
	}

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
