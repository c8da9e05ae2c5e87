// Harrier - Fraud intelligence for regional transaction data.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/opensource-finance/harrier/internal/api"
	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/cache"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/mailer"
	"github.com/opensource-finance/harrier/internal/model"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/policy"
	"github.com/opensource-finance/harrier/internal/report"
	"github.com/opensource-finance/harrier/internal/repository"
	"github.com/opensource-finance/harrier/internal/textgen"
	"github.com/opensource-finance/harrier/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("HARRIER_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting harrier",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for cluster mode via environment
	if os.Getenv("HARRIER_MODE") == "cluster" {
		cfg = domain.ClusterConfig()
		slog.Info("running in cluster mode")
	}
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"textgen", cfg.TextGen.Provider,
		"dispatch_enabled", cfg.Dispatch.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Load model artifacts. Missing artifacts are fatal: scoring and
	// classification cannot degrade.
	artifacts, err := model.LoadArtifacts(cfg.Models.Dir)
	if err != nil {
		slog.Error("failed to load model artifacts", "dir", cfg.Models.Dir, "error", err)
		os.Exit(1)
	}
	slog.Info("model artifacts loaded", "dir", cfg.Models.Dir)

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize text generator
	generator, err := textgen.New(cfg.TextGen)
	if err != nil {
		slog.Error("failed to initialize text generator", "error", err)
		os.Exit(1)
	}
	slog.Info("text generator initialized", "provider", cfg.TextGen.Provider)

	// Initialize pipeline service
	reports := report.NewWriter(cfg.Reports.Dir)
	svc := pipeline.NewService(artifacts, generator, repo, cacheImpl, busImpl, reports, cfg.RuleDoc)
	slog.Info("pipeline service initialized", "rule_doc", cfg.RuleDoc.Path)

	// Initialize dispatch worker
	var dispatchWorker *worker.Worker
	if cfg.Dispatch.Enabled {
		gate, err := policy.NewGate(cfg.Dispatch.Policy)
		if err != nil {
			slog.Error("failed to compile dispatch policy", "error", err)
			os.Exit(1)
		}

		var sender domain.MailSender
		if smtp, err := mailer.NewSMTPSender(cfg.Mail); err != nil {
			slog.Warn("mail transport not configured; dispatches will be recorded as failed", "error", err)
		} else {
			sender = smtp
		}

		dispatchWorker = worker.NewWorker(busImpl, repo, gate, sender)
		if err := dispatchWorker.Start(); err != nil {
			slog.Error("failed to start dispatch worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, svc, repo, cacheImpl, busImpl, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("harrier is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop dispatch worker first
	if dispatchWorker != nil {
		if err := dispatchWorker.Stop(); err != nil {
			slog.Error("failed to stop dispatch worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("harrier shutdown complete")
}

// applyEnvOverrides applies HARRIER_* environment variables on top of
// the selected preset. Secrets only come from the environment.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("HARRIER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HARRIER_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("HARRIER_MODELS_DIR"); v != "" {
		cfg.Models.Dir = v
	}
	if v := os.Getenv("HARRIER_RULE_DOC"); v != "" {
		cfg.RuleDoc.Path = v
	}
	if v := os.Getenv("HARRIER_REPORTS_DIR"); v != "" {
		cfg.Reports.Dir = v
	}
	if v := os.Getenv("HARRIER_TEXTGEN_PROVIDER"); v != "" {
		cfg.TextGen.Provider = v
	}
	if v := os.Getenv("HARRIER_TEXTGEN_MODEL"); v != "" {
		cfg.TextGen.Model = v
	}
	if v := os.Getenv("HARRIER_GEMINI_API_KEY"); v != "" {
		cfg.TextGen.APIKey = v
	}
	if v := os.Getenv("HARRIER_SMTP_EMAIL"); v != "" {
		cfg.Mail.SenderEmail = v
	}
	if v := os.Getenv("HARRIER_SMTP_PASSWORD"); v != "" {
		cfg.Mail.SenderPassword = v
	}
	if os.Getenv("HARRIER_DISPATCH") == "true" {
		cfg.Dispatch.Enabled = true
	}
	if v := os.Getenv("HARRIER_DISPATCH_POLICY"); v != "" {
		cfg.Dispatch.Policy = v
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 HARRIER                  ║")
	fmt.Println("  ║       Fraud Intelligence Pipeline         ║")
	fmt.Println("  ║      Every branch, every anomaly.         ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /runs                        - Run the pipeline for a region file")
	fmt.Println("    GET  /runs                        - List recent runs")
	fmt.Println("    GET  /runs/{id}                   - Get run by ID")
	fmt.Println("    POST /advisories                  - Generate a branch advisory")
	fmt.Println("    GET  /advisories/{branch}         - Latest advisory for a branch")
	fmt.Println("    GET  /advisories/{branch}/dispatches - Dispatch outcomes")
	fmt.Println("    GET  /summaries/region/{region}   - Executive region summary")
	fmt.Println("    GET  /summaries/devices           - Device risk summary")
	fmt.Println("    GET  /health                      - Health check")
	fmt.Println()
}
