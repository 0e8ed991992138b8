// Command server runs the action hub backend: it loads configuration, opens
// the SQLite store, registers the built-in spokes, wires the dispatcher, and
// serves the HTTP API with graceful shutdown.
//
// @title        Action Hub API
// @version      1.0
// @description  Dispatcher backend: spoke registry, intent resolution, quota-gated action execution.
// @BasePath     /api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/taskmind/go-hub-backend/docs"
	"github.com/taskmind/go-hub-backend/internal/config"
	httpapi "github.com/taskmind/go-hub-backend/internal/http"
	"github.com/taskmind/go-hub-backend/internal/hub"
	"github.com/taskmind/go-hub-backend/internal/observability"
	"github.com/taskmind/go-hub-backend/internal/quota"
	"github.com/taskmind/go-hub-backend/internal/repo"
	"github.com/taskmind/go-hub-backend/internal/spoke"
	"github.com/taskmind/go-hub-backend/internal/spoke/calendar"
	"github.com/taskmind/go-hub-backend/internal/spoke/issues"
	"github.com/taskmind/go-hub-backend/internal/spoke/mail"
	"github.com/taskmind/go-hub-backend/internal/spoke/tasks"
	"github.com/taskmind/go-hub-backend/internal/sysutil"
)

const version = "1.0.0"

func main() {
	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	// Spoke registration. A broken manifest is a build defect: refuse to
	// start rather than serve a partial catalog.
	registry := spoke.NewRegistry()
	taskSpoke, err := tasks.New(db)
	if err != nil {
		log.Fatal().Err(err).Msg("tasks spoke init failed")
	}
	mailSpoke, err := mail.New(mail.NewDevClient())
	if err != nil {
		log.Fatal().Err(err).Msg("mail spoke init failed")
	}
	calSpoke, err := calendar.New(calendar.NewDevClient())
	if err != nil {
		log.Fatal().Err(err).Msg("calendar spoke init failed")
	}
	issueSpoke, err := issues.New(issues.NewDevClient())
	if err != nil {
		log.Fatal().Err(err).Msg("issues spoke init failed")
	}
	for _, s := range []spoke.Spoke{taskSpoke, mailSpoke, calSpoke, issueSpoke} {
		if err := registry.Register(s); err != nil {
			log.Fatal().Err(err).Str("spoke", s.Name()).Msg("spoke registration failed")
		}
	}

	loc, err := time.LoadLocation(cfg.Quota.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Quota.Timezone).Msg("invalid quota timezone")
	}
	plans := &quota.StaticPlans{
		Limits:      cfg.PlanLimits(),
		DefaultPlan: cfg.Quota.DefaultPlan,
	}
	enforcer := quota.NewEnforcer(db, plans, loc)

	contexts := hub.NewContextStore(cfg.Context.TTL, cfg.Context.MaxTurns)
	resolver := hub.NewResolver(registry)
	executor := hub.NewExecutor(db, registry, resolver, enforcer, contexts)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, executor, enforcer, registry, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("stopped")
}
