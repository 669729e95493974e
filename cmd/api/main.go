package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inspection-platform/internal/assistant"
	"inspection-platform/internal/audit"
	"inspection-platform/internal/auth"
	"inspection-platform/internal/config"
	"inspection-platform/internal/dedup"
	"inspection-platform/internal/delivery"
	"inspection-platform/internal/gateway"
	"inspection-platform/internal/httpapi"
	"inspection-platform/internal/inspection"
	"inspection-platform/internal/reporting"
	"inspection-platform/internal/session"
	"inspection-platform/internal/webhook"
	"inspection-platform/pkg/logger"
	"inspection-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Domain services
	inspectionRepo := inspection.NewPostgresRepo(db)
	inspectionSvc := inspection.NewService(inspectionRepo)
	reportingSvc := reporting.NewService(inspectionRepo)
	auditSvc := audit.NewService(audit.NewMemoryRepo())

	// Conversation pipeline
	sessions := session.NewStore(rdb, cfg.Session.TTL)
	dedupCache := dedup.NewCache(rdb, cfg.Session.DedupTTL)

	aiClient := assistant.NewOpenAIClient(cfg.Assistant.APIKey, cfg.Assistant.AssistantID)
	if cfg.Assistant.SyncTools {
		if err := aiClient.SyncTools(rootCtx); err != nil {
			log.Error("assistant tool sync failed", "err", err)
			os.Exit(1)
		}
		log.Info("assistant tool definitions synced", "assistant_id", cfg.Assistant.AssistantID)
	}

	dispatcher := assistant.NewDispatcher(inspectionSvc)
	runner := assistant.NewRunner(aiClient, dispatcher, cfg.Assistant.PollInterval, cfg.Assistant.PollMaxAttempts, log)

	provider := gateway.NewWhatsAppProvider(cfg.Gateway.BaseURL, cfg.Gateway.APIToken)
	sender := delivery.NewSender(provider, cfg.Gateway.ChunkLimit, cfg.Gateway.ChunkDelay, log)

	hook := webhook.NewHandler(cfg.Webhook.Secret, dedupCache, sessions, aiClient, runner, sender, auditSvc, log)

	handlers := httpapi.Handlers{
		Auth:       authManager,
		Inspection: inspectionSvc,
		Reporting:  reportingSvc,
		Sessions:   sessions,
		Audit:      auditSvc,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, hook, handlers, auth.RequireAccessToken(authManager), db, rdb, provider)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
