package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mldash/backend/internal/db"
	"github.com/mldash/backend/internal/logger"
	"github.com/mldash/backend/internal/middleware"
	"github.com/mldash/backend/internal/repository"
	"github.com/mldash/backend/internal/routes"
	"github.com/mldash/backend/internal/seed"
	"github.com/mldash/backend/internal/services"
	"github.com/mldash/backend/internal/storage"
)

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := "http://localhost:5173"
		if corsOrigin := os.Getenv("CORS_ORIGIN"); corsOrigin != "" {
			origin = corsOrigin
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func main() {
	// Initialize logger first
	logger.Initialize()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables", nil)
	}

	// Connect to database
	db.Connect()
	db.AutoMigrate()

	// Setup graceful shutdown; the stop channel also unparks any training
	// runner sleeping between epochs.
	stopChan := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		logger.Warn("Received shutdown signal, stopping background runners...", nil)
		close(stopChan)
	}()

	// Seed database with demo data on first boot
	if os.Getenv("ENV") == "development" || os.Getenv("AUTO_SEED") == "true" {
		if empty, err := seed.IsEmpty(db.DB); err == nil && empty {
			logger.Info("Database is empty, seeding with demo data...", nil)
			if err := seed.Run(db.DB); err != nil {
				logger.Warn("Failed to seed database", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	// Core services
	hub := services.NewNotificationHub()
	generator := services.NewMetricGenerator()
	repo := repository.NewRepository(db.DB)
	trainingService := services.NewTrainingService(repo, hub, generator, stopChan)

	// Jobs left running by a previous process cannot be resumed; fail them so
	// the dashboard does not show phantom progress.
	if jobs, err := repo.ListActiveJobs(); err == nil {
		trainingService.AbortInterrupted(jobs)
	} else {
		logger.Warn("Failed to scan for interrupted jobs", map[string]interface{}{"error": err.Error()})
	}

	// Optional dataset artifact store
	var objectStore *storage.ObjectStore
	if cfg := storage.ConfigFromEnv(); cfg.Endpoint != "" {
		var err error
		objectStore, err = storage.NewObjectStore(context.Background(), cfg)
		if err != nil {
			logger.Warn("Artifact storage unavailable, continuing without it", map[string]interface{}{
				"error": err.Error(),
			})
			objectStore = nil
		}
	}

	// Set Gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	r := gin.New()

	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		dbStatus := "ok"
		var dbError error

		if db.DB != nil {
			sqlDB, err := db.DB.DB()
			if err != nil {
				dbStatus = "error"
				dbError = err
			} else if err := sqlDB.Ping(); err != nil {
				dbStatus = "error"
				dbError = err
			}
		} else {
			dbStatus = "error"
			dbError = fmt.Errorf("database connection not initialized")
		}

		statusCode := http.StatusOK
		overallStatus := "ok"
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
			overallStatus = "error"
		}

		c.JSON(statusCode, gin.H{
			"status":    overallStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
			"services": gin.H{
				"database": gin.H{
					"status": dbStatus,
					"error":  dbError,
				},
				"active_runners": trainingService.ActiveRunners(),
			},
		})
	})

	// Setup routes
	routes.SetupRoutes(r, db.DB, trainingService, hub, objectStore)

	// Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	logger.Info("Starting ML dashboard backend server", map[string]interface{}{
		"port":     port,
		"gin_mode": gin.Mode(),
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for shutdown signal
	<-stopChan
	logger.Info("Shutting down server gracefully...", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		logger.Info("Server exited gracefully", nil)
	}
}
