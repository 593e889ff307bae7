package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aymandakir/voice-ai-call-center/internal/agents"
	"github.com/aymandakir/voice-ai-call-center/internal/analytics"
	"github.com/aymandakir/voice-ai-call-center/internal/auth"
	"github.com/aymandakir/voice-ai-call-center/internal/billing"
	"github.com/aymandakir/voice-ai-call-center/internal/calls"
	"github.com/aymandakir/voice-ai-call-center/internal/config"
	"github.com/aymandakir/voice-ai-call-center/internal/httpapi"
	"github.com/aymandakir/voice-ai-call-center/internal/usage"
	"github.com/aymandakir/voice-ai-call-center/internal/voice"
	"github.com/aymandakir/voice-ai-call-center/pkg/logger"
	"github.com/aymandakir/voice-ai-call-center/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger depends on config; stderr is all we have here.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	manager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth manager init failed", "error", err)
		os.Exit(1)
	}

	provider, err := voice.New(cfg.Voice)
	if err != nil {
		log.Error("voice provider init failed", "error", err, "provider", cfg.Voice.Provider)
		os.Exit(1)
	}
	log.Info("voice provider configured", "provider", provider.Name())

	agentSvc := agents.NewService(agents.NewPostgresRepo(db))
	store := calls.NewPostgresStore(db)
	usageSvc := usage.NewService(usage.NewPostgresRepo(db))
	billingSvc := billing.NewService(billing.NewPostgresRepo(db), cfg.Billing.WebhookSecret, log)
	limiter := calls.NewRedisLimiter(rdb, cfg.Outbound)

	sync := calls.NewSynchronizer(store, agentSvc, log)
	sync.SetLimiter(limiter)
	initiator := calls.NewInitiator(store, agentSvc, provider, limiter, cfg.VoiceWebhookURL(), log)

	h := &httpapi.Handlers{
		Login:     auth.NewLoginService(auth.NewPostgresUserRepo(db), manager, log),
		Agents:    agentSvc,
		Store:     store,
		Sync:      sync,
		Initiator: initiator,
		Billing:   billingSvc,
		Analytics: analytics.NewService(store, usageSvc, billingSvc),
	}

	router := newRouter(cfg, log, manager, h, db)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()
	log.Info("api listening", "addr", cfg.HTTPAddr(), "env", cfg.App.Env)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
