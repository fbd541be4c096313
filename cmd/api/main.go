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

	"github.com/joho/godotenv"

	"github.com/callready/funnel-api/internal/config"
	"github.com/callready/funnel-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/callready/funnel-api/internal/infrastructure/jwt"
	s3infra "github.com/callready/funnel-api/internal/infrastructure/s3"
	"github.com/callready/funnel-api/internal/infrastructure/smtp"
	"github.com/callready/funnel-api/internal/infrastructure/sns"
	"github.com/callready/funnel-api/internal/infrastructure/webhook"
	transporthttp "github.com/callready/funnel-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider for the admin surface (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if cfg.AdminEnabled() {
		if p, err := jwtinfra.NewProvider(cfg); err == nil {
			jwtProvider = p
		} else {
			log.Printf("WARN: JWT provider not available, admin surface disabled: %v", err)
		}
	}

	// S3 archive for webhook audit bodies (optional).
	var archive *s3infra.Archive
	if cfg.AuditBucket != "" {
		archive = s3infra.NewArchive(s3infra.NewClient(cfg), cfg.AuditBucket)
	}

	// SMTP mailer for ops alerts (active only when an alert address is set).
	var mailer smtp.Mailer
	if cfg.AlertEmail != "" {
		mailer = smtp.NewMailer(cfg)
	}

	// SNS SMS sender (optional — without it, issued codes are only logged).
	var smsSender sns.SMSSender
	if cfg.SMSEnabled {
		if sender, err := sns.NewSender(cfg); err == nil {
			smsSender = sender
		} else {
			log.Printf("WARN: SNS sender not available: %v", err)
		}
	}

	deps := &transporthttp.Deps{
		ContactRepo: dynamo.NewContactRepo(dynamoClient, cfg.DynamoTables.Contacts),
		LeadRepo:    dynamo.NewLeadRepo(dynamoClient, cfg.DynamoTables.Leads),
		OTPRepo:     dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.OTPVerifications),
		EventRepo:   dynamo.NewEventRepo(dynamoClient, cfg.DynamoTables.AnalyticsEvents),
		Dispatcher:  webhook.NewClient(cfg.WebhookURL, cfg.WebhookTimeout),
		Archive:     archive,
		Mailer:      mailer,
		SMSSender:   smsSender,
		JWTProvider: jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // must cover the 10s CRM webhook budget
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
