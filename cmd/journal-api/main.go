package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rmcmillan34/edge-journal/internal/config"
	cronrunner "github.com/rmcmillan34/edge-journal/internal/cron"
	"github.com/rmcmillan34/edge-journal/internal/db"
	"github.com/rmcmillan34/edge-journal/internal/handler"
	"github.com/rmcmillan34/edge-journal/internal/logger"
	"github.com/rmcmillan34/edge-journal/internal/notify"
	"github.com/rmcmillan34/edge-journal/internal/playbook"
	gormrepository "github.com/rmcmillan34/edge-journal/internal/repository/gorm"
	"github.com/rmcmillan34/edge-journal/internal/service"
	"github.com/rmcmillan34/edge-journal/internal/trace"

	_ "github.com/rmcmillan34/edge-journal/docs"
)

func main() {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfgPath := os.Getenv("EJ_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("EJ_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := trace.Init(cfg.Tracing); err != nil {
		logger.Warn("tracing init failed", zap.Error(err))
	}

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(dbConn); err != nil {
			logger.Fatal("auto-migrate failed", zap.Error(err))
		}
	}

	if cfg.Auth.Disabled {
		logger.Warn("auth disabled: callers pick their user with X-User-ID")
	} else if cfg.Auth.JWTSecret == "" {
		logger.Fatal("auth.jwt_secret is required unless auth.disabled is set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := gormrepository.New(dbConn.Gorm)
	loc := cfg.Guardrail.Location()

	switches := &service.SystemSettingsService{Repo: store}
	if err := switches.EnsureDefaultSwitches(ctx); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	hub := notify.NewHub(logger)
	var notifier notify.Publisher = hub
	if cfg.Redis.Enabled {
		// alerts go through redis so every replica's stream clients see them
		pub := notify.NewRedisPublisher(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.Channel)
		defer pub.Close()
		notifier = pub
		go func() {
			if err := pub.Relay(ctx, hub, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("redis alert relay stopped", zap.Error(err))
			}
		}()
		logger.Info("breach alerts fan out via redis", zap.String("channel", cfg.Redis.Channel))
	}

	settingsSvc := &service.SettingsService{Repo: store, Defaults: cfg.Guardrail.DefaultRules}
	guardrailSvc := &service.GuardrailService{
		Repo:         store,
		Settings:     settingsSvc,
		Switches:     switches,
		Notifier:     notifier,
		Logger:       logger,
		Location:     loc,
		LookbackDays: cfg.Guardrail.ScanLookbackDays,
		ScanTimeout:  cfg.Guardrail.ScanTimeout,
	}
	playbookSvc := &service.PlaybookService{
		Repo:              store,
		Guardrail:         guardrailSvc,
		Settings:          settingsSvc,
		Logger:            logger,
		DefaultThresholds: playbook.ThresholdsFromMap(cfg.Playbook.GradeThresholds),
		DefaultSchedule:   playbook.ScheduleFromMap(cfg.Playbook.RiskSchedule),
		MaxVersionRetry:   cfg.Playbook.MaxVersionRetry,
	}
	ledger := &service.BreachLedger{Repo: store, Logger: logger, Location: loc}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := handler.NewEngine(handler.Deps{
		DB:             store,
		Playbooks:      playbookSvc,
		Guardrail:      guardrailSvc,
		Ledger:         ledger,
		Settings:       settingsSvc,
		Switches:       switches,
		Accounts:       &service.AccountService{Repo: store},
		Trades:         &service.TradeService{Repo: store, Guardrail: guardrailSvc, Switches: switches, Logger: logger},
		Hub:            hub,
		Auth:           cfg.Auth,
		Location:       loc,
		OriginPatterns: cfg.Server.AllowedOrigins,
		Swagger:        cfg.Server.Swagger,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add("guardrail_scan", cfg.Cron.GuardrailScan, func(ctx context.Context) {
			start := time.Now()
			if err := guardrailSvc.ScanAll(ctx); err != nil {
				logger.Warn("cron guardrail scan finished with errors", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
				return
			}
			logger.Info("cron guardrail scan ok", zap.Duration("elapsed", time.Since(start)))
		})
		if err != nil {
			logger.Warn("cron register guardrail scan failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", zap.Error(err))
	}
}
