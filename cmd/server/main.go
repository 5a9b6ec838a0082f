// Command server boots the booking recommendation backend: configuration,
// structured logging, tracing, the SQLite store, the model registry (warm
// started from the last active generation), the reminder/retrain background
// jobs, and the HTTP API. Shutdown is graceful: SIGINT/SIGTERM drains the
// HTTP server and the background loops before the process exits.
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

	"github.com/carebook/go-booking-backend/internal/config"
	httpapi "github.com/carebook/go-booking-backend/internal/http"
	"github.com/carebook/go-booking-backend/internal/jobs"
	"github.com/carebook/go-booking-backend/internal/model"
	"github.com/carebook/go-booking-backend/internal/notify"
	"github.com/carebook/go-booking-backend/internal/observability"
	"github.com/carebook/go-booking-backend/internal/repo"
	"github.com/carebook/go-booking-backend/internal/services"
	"github.com/carebook/go-booking-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// Warm-start the registry from the last activated generation so a restart
	// serves model-blended scores immediately.
	models := model.NewRegistry()
	if gen, err := repo.ActiveModelGeneration(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("load active model generation failed")
	} else if gen != nil {
		models.Activate(gen)
		log.Info().Int("version", gen.Version).Float64("accuracy", gen.Accuracy).Msg("model generation restored")
	} else {
		log.Info().Msg("no trained model yet; serving rule-only scores")
	}

	var notifier notify.Notifier = notify.ConsoleNotifier{}
	if cfg.Reminder.AMQPURL != "" {
		n, err := notify.NewAMQPNotifier(cfg.Reminder.AMQPURL, cfg.Reminder.AMQPExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("amqp connect failed")
		}
		notifier = n
		log.Info().Str("exchange", cfg.Reminder.AMQPExchange).Msg("reminder events publish to rabbitmq")
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			log.Warn().Err(err).Msg("notifier close failed")
		}
	}()

	retrainSvc := services.NewRetrainService(db, models)
	retrainSvc.MinRows = cfg.Retrain.MinRows
	retrainSvc.RegressionMargin = cfg.Retrain.RegressionMargin
	retrainSvc.HoldoutRatio = cfg.Retrain.HoldoutRatio
	retrainSvc.Seed = cfg.Retrain.Seed

	sched := &jobs.Scheduler{
		Reminders:       &services.ReminderService{DB: db},
		Retrainer:       retrainSvc,
		Notifier:        notifier,
		SweepInterval:   cfg.Reminder.CheckInterval,
		RetrainInterval: cfg.Retrain.Interval,
	}
	sched.Start(ctx)

	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, models, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	sched.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}
