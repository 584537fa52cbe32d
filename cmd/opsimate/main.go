package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/opsimate/opsimate/internal/alerts"
	"github.com/opsimate/opsimate/internal/alerts/adapters"
	"github.com/opsimate/opsimate/internal/config"
	"github.com/opsimate/opsimate/internal/database"
	"github.com/opsimate/opsimate/internal/handlers"
	"github.com/opsimate/opsimate/internal/integrations"
	"github.com/opsimate/opsimate/internal/jobs"
	"github.com/opsimate/opsimate/internal/middleware"
	"github.com/opsimate/opsimate/internal/notify"
	"github.com/opsimate/opsimate/internal/providers"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting OpsiMate...")

	// Initialize JWT authentication middleware
	if cfg.AdminPassword == "" {
		log.Fatalf("ADMIN_PASSWORD is not set")
	}

	// Hash the admin password
	passwordHash, err := middleware.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	jwtAuthMiddleware := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:           true,
		AdminEmail:        cfg.AdminEmail,
		AdminPasswordHash: passwordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiryHours:    cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/webhook/*",
			"/api/auth/login",
			"/ws/events",
		},
	})
	log.Printf("JWT authentication enabled for user: %s", cfg.AdminEmail)

	// Webhook ingestion gets its own static key scheme, separate from JWT.
	// Everything outside /webhook/* is skipped here; the JWT layer covers it.
	webhookAuth := middleware.NewAPIKeyMiddleware(&middleware.APIKeyConfig{
		Keys: cfg.WebhookAPIKeys,
		SkipPaths: []string{
			"/health",
			"/api/*",
			"/ws/*",
		},
	})
	if len(cfg.WebhookAPIKeys) > 0 {
		log.Printf("Webhook API key authentication enabled (%d keys)", len(cfg.WebhookAPIKeys))
	} else {
		log.Printf("Webhook endpoints are open (set WEBHOOK_API_KEYS to protect them)")
	}

	// Initialize database connection
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := database.GetDB()

	// Run database migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize default database records
	if err := database.InitializeDefaults(db); err != nil {
		log.Fatalf("Failed to initialize database defaults: %v", err)
	}

	// Register alert adapters
	alertRegistry := alerts.NewRegistry()
	alertRegistry.Register(adapters.NewWebhookAdapter())
	alertRegistry.Register(adapters.NewGCPAdapter())
	alertRegistry.Register(adapters.NewGrafanaAdapter())
	log.Printf("Alert adapters registered: %v", alertRegistry.SourceTypes())

	// Register provider connectors
	providerRegistry := providers.NewRegistry()
	providerRegistry.Register(database.ProviderTypeVM, providers.NewVMConnector())
	providerRegistry.Register(database.ProviderTypeKubernetes, providers.NewKubernetesConnector())
	log.Printf("Provider connectors registered: vm, k8s")

	// Register integration connectors
	integrationRegistry := integrations.NewRegistry()
	integrationRegistry.Register(integrations.NewGrafanaConnector())
	integrationRegistry.Register(integrations.NewKibanaConnector())
	integrationRegistry.Register(integrations.NewDatadogConnector())
	log.Printf("Integration connectors registered: grafana, kibana, datadog")

	// Slack notifier for newly ingested alerts
	slackNotifier := notify.NewSlackNotifier(db)

	// Initialize handlers
	alertHandler := handlers.NewAlertHandler(db, alertRegistry, slackNotifier)
	httpHandler := handlers.NewHTTPHandler(alertHandler)
	apiHandler := handlers.NewAPIHandler(db, providerRegistry, integrationRegistry, cfg.EncryptionKey)
	authHandler := handlers.NewAuthHandler(jwtAuthMiddleware)
	eventsHandler := handlers.NewEventsWSHandler()

	// Background jobs
	stop := make(chan struct{})

	refreshJob := jobs.NewRefreshJob(db, providerRegistry, cfg.RefreshBatchSize)
	refreshJob.OnServiceEvent = eventsHandler.Broadcast
	go refreshJob.Start(cfg.RefreshInterval, stop)
	log.Printf("Service refresh job started (interval %s, batch size %d)", cfg.RefreshInterval, cfg.RefreshBatchSize)

	alertSyncJob := jobs.NewAlertSyncJob(db, cfg.EncryptionKey)
	go alertSyncJob.Start(cfg.AlertSyncInterval, stop)
	log.Printf("Alert sync job started (interval %s)", cfg.AlertSyncInterval)

	// Set up HTTP server routes
	mux := http.NewServeMux()
	httpHandler.SetupRoutes(mux)
	apiHandler.SetupRoutes(mux)
	authHandler.SetupRoutes(mux)
	eventsHandler.SetupRoutes(mux)

	// Request ID first, then CORS, then webhook key auth, then JWT
	corsMiddleware := middleware.NewCORSMiddleware()
	handler := middleware.RequestIDMiddleware(
		corsMiddleware.Wrap(webhookAuth.Wrap(jwtAuthMiddleware.Wrap(mux))))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Println("OpsiMate is running! Press Ctrl+C to exit.")
	log.Printf("Alert webhook endpoint: http://localhost:%d/webhook/alert/{source}", cfg.HTTPPort)
	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	log.Printf("API base URL: http://localhost:%d/api", cfg.HTTPPort)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")
	close(stop)

	if err := httpServer.Close(); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Shutdown complete")
}
