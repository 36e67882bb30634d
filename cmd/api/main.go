// ShopStack Payments Microservice
//
// This is the main entry point for the payment-gateway integration layer.
// It wires up all dependencies and starts the HTTP server.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopstack/shopstack-payments/config"
	"github.com/shopstack/shopstack-payments/internal/api"
	"github.com/shopstack/shopstack-payments/internal/checksum"
	"github.com/shopstack/shopstack-payments/internal/payment"
	"github.com/shopstack/shopstack-payments/internal/platform/email"
	"github.com/shopstack/shopstack-payments/internal/platform/phonepe"
	"github.com/shopstack/shopstack-payments/internal/ratelimit"
)

func main() {
	log.Println("Starting ShopStack Payments Service...")

	// Load configuration
	cfg := config.Load()
	log.Printf("Configuration loaded: Port=%s, GatewayURL=%s", cfg.Server.Port, cfg.PhonePe.BaseURL)

	// Validate required configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Wire up dependencies (manual dependency injection)
	//
	// Infrastructure Layer
	signer := checksum.NewSigner(cfg.Security.ChecksumSecret)
	tokenCache := phonepe.NewTokenCache(cfg.PhonePe)
	gatewayClient := phonepe.NewClient(cfg.PhonePe, tokenCache)
	mailer := email.NewNoopSender()

	// Rate limiters: independent instances, independent policies.
	createLimiter := ratelimit.New(cfg.RateLimit.CreateLimit, cfg.RateLimit.CreateWindow)
	statusLimiter := ratelimit.New(cfg.RateLimit.StatusLimit, cfg.RateLimit.StatusWindow)
	createLimiter.StartSweeper(10 * time.Minute)
	statusLimiter.StartSweeper(10 * time.Minute)
	defer createLimiter.Stop()
	defer statusLimiter.Stop()

	// Service Layer
	//
	// The order repository belongs to the hosting storefront's document
	// store; standalone deployments run without it.
	paymentService := payment.NewService(gatewayClient, signer, mailer, nil)

	// API Layer
	handler := api.NewHandler(paymentService)
	router := api.SetupRouter(handler, cfg, createLimiter, statusLimiter)

	// Start server in a goroutine
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	go func() {
		log.Printf("Server listening on %s", serverAddr)
		if err := router.Run(serverAddr); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}

// validateConfig checks that required configuration values are set.
func validateConfig(cfg *config.Config) error {
	if cfg.Security.ChecksumSecret == "" {
		return fmt.Errorf("CHECKSUM_SECRET is required")
	}
	if cfg.PhonePe.ClientID == "" || cfg.PhonePe.ClientSecret == "" {
		log.Println("Warning: PHONEPE_CLIENT_ID / PHONEPE_CLIENT_SECRET not set")
	}
	if len(cfg.Security.AllowedStatusOrigins) == 0 {
		log.Println("Warning: ALLOWED_STATUS_ORIGINS not set; status checks will reject cross-origin callers")
	}
	return nil
}
