package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peereval-api/internal/audit"
	"github.com/noah-isme/peereval-api/internal/config"
	"github.com/noah-isme/peereval-api/internal/database"
	"github.com/noah-isme/peereval-api/internal/handler"
	"github.com/noah-isme/peereval-api/internal/middleware"
	"github.com/noah-isme/peereval-api/internal/repository"
	"github.com/noah-isme/peereval-api/internal/router"
	"github.com/noah-isme/peereval-api/internal/scheduler"
	"github.com/noah-isme/peereval-api/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "peereval-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv != "production" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	var publisher service.EventPublisher
	if cfg.AuditEnabled() {
		producer, err := audit.NewKafkaProducer(audit.KafkaProducerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create audit producer")
		}
		defer producer.Close()
		publisher = producer
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	flagRepo := repository.NewFlagRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	disputeRepo := repository.NewDisputeRepository(db)
	userRepo := repository.NewUserRepository(db)
	scopeRepo := repository.NewScopeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	scope := service.NewScopeAuthorizer(scopeRepo)
	statsCache := service.NewStatsCache(redisClient, cfg.StatsCacheTTL, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.NotificationChannel, natsConn, validate, logger)
	activityService := service.NewActivityService(activityRepo, publisher, logger)

	disputeDeps := service.DisputeDeps{
		Flags:           flagRepo,
		Evaluations:     evaluationRepo,
		Disputes:        disputeRepo,
		Users:           userRepo,
		Scope:           scope,
		Notifier:        notificationService,
		Activity:        activityService,
		StatsCache:      statsCache,
		Validator:       validate,
		DefaultMaxMarks: cfg.MarksDefaultMax,
	}

	queryService := service.NewFlagQueryService(flagRepo, evaluationRepo, scope, statsCache, logger)
	resolutionService := service.NewTAResolutionService(disputeDeps, logger)
	escalationService := service.NewEscalationService(disputeDeps, logger)
	ticketService := service.NewTeacherTicketService(ticketRepo, scope, notificationService, activityService, logger)

	notificationService.Start(ctx)

	reminder := scheduler.NewStaleFlagReminder(cfg.FlagReminderCron, cfg.FlagStaleAfter, flagRepo, scopeRepo, notificationService, logger)
	if err := reminder.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start stale flag reminder")
	}

	probes := map[string]handler.Probe{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ReadTimeout:  15 * time.Second,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		TAHandler:            handler.NewTAHandler(queryService, resolutionService, escalationService, logger),
		TeacherTicketHandler: handler.NewTeacherTicketHandler(ticketService, logger),
		ActivityHandler:      handler.NewActivityHandler(activityService, logger),
		NotificationHandler:  handler.NewNotificationHandler(notificationService, logger, cfg.NotificationKeepAlive),
		HealthProbes:         probes,
		JWTMiddleware:        middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	shutdown(app, reminder, logger)
}

func shutdown(app *fiber.App, reminder *scheduler.StaleFlagReminder, logger zerolog.Logger) {
	reminder.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
