package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"leadflow/internal/engine/health"
	"leadflow/internal/pkg/logger"
	"leadflow/internal/platform/config"
	"leadflow/internal/platform/database"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

// The monitor runs as its own process so a wedged probe can never stall
// the ingestion server, and so it can be deployed singly while the server
// scales out.
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

	integrationRepo := repositories.NewIntegrationRepository(db)
	statusRepo := repositories.NewStatusRepository(db)

	probeClient := &http.Client{Timeout: cfg.Monitor.ProbeTimeout}
	checkers := map[string]health.Checker{
		models.IntegrationAdPlatform: health.NewAdPlatformChecker(probeClient, cfg.Monitor.AdPlatformURL),
		models.IntegrationMailRelay:  health.NewMailRelayChecker(cfg.Monitor.MailDialTimeout),
		models.IntegrationWebhook:    health.NewInboundWebhookChecker(),
	}

	monitor := health.NewMonitor(integrationRepo, statusRepo, checkers, cfg.Monitor.Interval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor.Start(ctx)
	log.Printf("Integration monitor started, interval %s", cfg.Monitor.Interval)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Println("Shutting down integration monitor")
	monitor.Stop()
}
