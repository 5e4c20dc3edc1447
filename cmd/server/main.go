package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimbusiot/iot-dashboard-backend/internal/database"
	"github.com/nimbusiot/iot-dashboard-backend/internal/router"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/auth"
	"github.com/nimbusiot/iot-dashboard-backend/internal/services/telemetry"
	"github.com/nimbusiot/iot-dashboard-backend/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	// Import Swagger docs
	_ "github.com/nimbusiot/iot-dashboard-backend/docs"
)

// @title IoT Dashboard API
// @version 1.0
// @description Multi-tenant IoT telemetry platform with access-key scoped data access

// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter `Bearer ` followed by your JWT token (e.g. "Bearer <token>")

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Configure logging
	configureLogging()

	// Initialize Sentry
	utils.InitSentry()

	// Initialize database connection
	db, err := database.InitDB()
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize broker and start the telemetry ingestion pipeline
	brokerService, err := services.NewBrokerService()
	if err != nil {
		logrus.Warnf("Failed to initialize broker: %v", err)
	} else {
		logrus.Info("Broker service initialized")
		defer brokerService.Close()

		ingestService := telemetry.NewIngestService(brokerService, db)
		if err := ingestService.Start(); err != nil {
			logrus.Warnf("Failed to start telemetry ingestion: %v", err)
		} else {
			defer ingestService.Stop()
		}
	}

	// Initialize auth service; fails fast on missing signing secret
	authService, err := auth.NewAuthService(db)
	if err != nil {
		logrus.Fatalf("Failed to initialize auth service: %v", err)
	}

	// Create admin user if not exists
	if err := authService.CreateAdminUser(); err != nil {
		logrus.Warnf("Failed to create admin user: %v", err)
	}

	// Initialize router
	r := router.SetupRouter(db, authService)

	// Configure HTTP server
	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %s", port)
		logrus.Infof("API Health Check: http://localhost:%s/api/v1/health", port)
		logrus.Infof("Swagger UI: http://localhost:%s/swagger/index.html", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown the server
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited properly")
}

func configureLogging() {
	logLevel := getEnv("LOG_LEVEL", "info")
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
