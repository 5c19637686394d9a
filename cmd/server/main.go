package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"leadflow/internal/api"
	"leadflow/internal/api/handlers"
	"leadflow/internal/api/middleware"
	"leadflow/internal/engine/automation"
	"leadflow/internal/engine/ingest"
	"leadflow/internal/pkg/logger"
	"leadflow/internal/platform/audit"
	"leadflow/internal/platform/auth"
	"leadflow/internal/platform/config"
	"leadflow/internal/platform/database"
	"leadflow/internal/platform/mail"
	"leadflow/internal/platform/observability"
	"leadflow/internal/platform/repositories"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	observability.Register(registry)

	// Repositories
	campaignRepo := repositories.NewCampaignRepository(db)
	leadRepo := repositories.NewLeadRepository(db)
	endpointRepo := repositories.NewEndpointRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	automationRepo := repositories.NewAutomationRepository(db)
	integrationRepo := repositories.NewIntegrationRepository(db)
	statusRepo := repositories.NewStatusRepository(db)
	publicLinkRepo := repositories.NewPublicLinkRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)
	auditLog := audit.NewLogger(db)
	mailer := mail.NewSMTPMailer(cfg.Mail)
	webhookCaller := automation.NewWebhookCaller(cfg.Automation.WebhookTimeout)
	engine := automation.NewEngine(automationRepo, leadRepo, mailer, webhookCaller)
	endpointCache := ingest.NewEndpointCache(time.Minute)
	receiver := ingest.NewReceiver(endpointRepo, eventRepo, leadRepo, engine, endpointCache)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)

	deps := &api.Dependencies{
		AuthHandler:        handlers.NewAuthHandler(userRepo, tokenSvc),
		CampaignHandler:    handlers.NewCampaignHandler(campaignRepo, leadRepo, auditLog),
		LeadHandler:        handlers.NewLeadHandler(leadRepo, auditLog),
		EndpointHandler:    handlers.NewEndpointHandler(endpointRepo, eventRepo, endpointCache, auditLog),
		AutomationHandler:  handlers.NewAutomationHandler(automationRepo, auditLog),
		IntegrationHandler: handlers.NewIntegrationHandler(integrationRepo, statusRepo, auditLog),
		PublicLinkHandler:  handlers.NewPublicLinkHandler(publicLinkRepo, campaignRepo, leadRepo, auditLog),
		ReceiverHandler:    handlers.NewReceiverHandler(receiver),
		AuditHandler:       handlers.NewAuditHandler(auditLog),
		HealthHandler:      handlers.NewHealthHandler(db),
		AuthMiddleware:     authMiddleware,
		RateLimiter:        rateLimiter,
		MetricsRegistry:    registry,
	}
	router := api.NewRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
