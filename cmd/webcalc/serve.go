package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webcalc/internal/analytics"
	"webcalc/internal/bot"
	"webcalc/internal/calculator"
	"webcalc/internal/config"
	"webcalc/internal/httpapi"
	"webcalc/internal/leads"
	"webcalc/internal/ratelimit"
	"webcalc/internal/reports"
	"webcalc/internal/session"
	"webcalc/internal/storage"
	redisstore "webcalc/internal/storage/redis"
	"webcalc/internal/wizard"
	"webcalc/pkg/api"
	"webcalc/pkg/redis"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the calculator API and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	catalog, err := loadCatalog(cfg.Calculator)
	if err != nil {
		return err
	}
	engine, err := calculator.NewEngine(catalog)
	if err != nil {
		return fmt.Errorf("failed to build pricing engine: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
	} else {
		log.Warn("REDIS_ADDR is not set, sessions and rate limits are kept in memory")
	}

	var cache storage.Cache
	if redisClient != nil {
		cache = redisClient
	}
	store, err := storage.New(ctx, cfg.Database, cache, log)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	var (
		limiter    ratelimit.Limiter
		wizardData wizard.Store
		flags      session.FlagStore
	)
	if redisClient != nil {
		rs := redisstore.New(redisClient)
		limiter = ratelimit.NewRedisLimiter(redisClient, "lead", cfg.RateLimit.Limit, cfg.RateLimit.Window, log)
		wizardData = rs
		flags = rs
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
		wizardData = wizard.NewMemoryStore()
		flags = session.NewMemoryFlags()
	}

	var notifier leads.Notifier
	var tgBot *bot.Bot
	if cfg.Telegram.Token != "" {
		tgBot, err = bot.New(cfg.Telegram, cfg.Admin, store, log)
		if err != nil {
			return err
		}
		notifier = tgBot
	}

	leadService := leads.NewService(engine, store, limiter, notifier, log, cfg.Calculator.MinFillTime)
	defer leadService.Wait()

	var submitter wizard.Submitter = leads.NewLocalSubmitter(leadService)
	if cfg.Calculator.APIURL != "" {
		submitter = api.NewClient(cfg.Calculator.APIURL, 15*time.Second, log)
		log.Info("Wizard submits to a remote lead endpoint", zap.String("url", cfg.Calculator.APIURL))
	}
	reporter := analytics.Multi{analytics.NewLogReporter(log), analytics.ContextReporter{}}
	wizardService := wizard.NewService(wizardData, submitter, reporter, log, cfg.Calculator.SessionTTL)

	deps := httpapi.Deps{
		Engine: engine,
		Leads:  leadService,
		Wizard: wizardService,
		Popups: session.NewPopups(flags, cfg.Redis.TTL),
		Store:  store,
		Logger: log,
	}
	if cfg.Archive.Enabled() {
		archive, err := reports.NewArchive(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		deps.Archive = archive
	}

	opts := httpapi.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		SecureCookies:  cfg.HTTP.SecureCookies,
		JWTSecret:      []byte(cfg.Admin.JWTSecret),
		TokenTTL:       cfg.Admin.TokenTTL,
	}
	if cfg.Admin.LoginEnabled() {
		opts.AdminEmail = cfg.Admin.Email
		opts.AdminPasswordHash = []byte(cfg.Admin.PasswordHash)
	}
	router, err := httpapi.NewRouter(deps, opts)
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	if tgBot != nil {
		go func() {
			if err := tgBot.Start(ctx); err != nil {
				errCh <- fmt.Errorf("bot: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-errCh:
		log.Error("Service stopped with error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	log.Info("Service shutdown gracefully")
	return runErr
}

func loadCatalog(cfg config.CalculatorConfig) (*calculator.Catalog, error) {
	if cfg.CatalogPath == "" {
		return calculator.DefaultCatalog()
	}
	return calculator.LoadCatalog(cfg.CatalogPath)
}
