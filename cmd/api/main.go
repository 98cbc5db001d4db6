package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/remindly/birthday-engine/internal/channel"
	"github.com/remindly/birthday-engine/internal/config"
	"github.com/remindly/birthday-engine/internal/handler"
	"github.com/remindly/birthday-engine/internal/infra/postgresql"
	"github.com/remindly/birthday-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/remindly/birthday-engine/internal/infra/redis"
	"github.com/remindly/birthday-engine/internal/observability"
	"github.com/remindly/birthday-engine/internal/queue"
	"github.com/remindly/birthday-engine/internal/repository"
	"github.com/remindly/birthday-engine/internal/service"
	"github.com/remindly/birthday-engine/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("birthday-engine exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	defer rabbit.Close()

	metrics := observability.NewMetrics()

	birthdayRepo := repository.NewGormBirthdayRepo(db)
	reminderRepo := repository.NewGormReminderRepo(db)

	synchronizer, err := service.NewSynchronizer(birthdayRepo, reminderRepo, logger)
	if err != nil {
		return err
	}
	birthdayService, err := service.NewBirthdayService(birthdayRepo, synchronizer, logger)
	if err != nil {
		return err
	}

	publisher := queue.NewRabbitMQPublisher(rabbit)
	defer publisher.Close()
	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.WorkerConcurrency, logger)
	defer consumer.Close()

	scanner, err := service.NewScanner(
		reminderRepo,
		publisher,
		time.Duration(cfg.ScanIntervalSec)*time.Second,
		cfg.ScanLimit,
		logger,
	)
	if err != nil {
		return err
	}
	scanner.SetMetrics(metrics)

	regenerator, err := service.NewRegenerator(birthdayRepo, reminderRepo, cfg.RegenerationCron, logger)
	if err != nil {
		return err
	}
	regenerator.SetMetrics(metrics)

	emailSender, err := channel.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	if err != nil {
		return fmt.Errorf("email sender initialization failed: %w", err)
	}
	chatSender, err := channel.NewChatSender(cfg.ChatBotToken)
	if err != nil {
		return fmt.Errorf("chat sender initialization failed: %w", err)
	}
	senders, err := channel.NewSenders(emailSender, chatSender)
	if err != nil {
		return err
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		return fmt.Errorf("rate limiter initialization failed: %w", err)
	}

	worker, err := service.NewWorker(
		reminderRepo,
		birthdayRepo,
		consumer,
		senders,
		rateLimiter,
		cfg.WorkerConcurrency,
		logger,
	)
	if err != nil {
		return err
	}
	worker.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:      "birthday-engine",
		ErrorHandler: transport.NewErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb, rabbit)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterBirthdayRoutes(app, birthdayService); err != nil {
		return err
	}
	if err := handler.RegisterReminderRoutes(app, reminderRepo); err != nil {
		return err
	}
	if err := handler.RegisterDebugRoutes(app, scanner, regenerator); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return scanner.Start(gctx) })
	g.Go(func() error { return regenerator.Start(gctx) })
	g.Go(func() error { return worker.Start(gctx) })
	g.Go(func() error {
		logger.Info("birthday-engine api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
