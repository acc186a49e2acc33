package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/jobboard-be/internal/alerting"
	"github.com/cuongbtq/jobboard-be/internal/api/storage"
	"github.com/cuongbtq/jobboard-be/internal/config"
	"github.com/cuongbtq/jobboard-be/internal/notification"
	"github.com/cuongbtq/jobboard-be/internal/worker"
	"github.com/cuongbtq/jobboard-be/internal/worker/ops"
	"github.com/cuongbtq/jobboard-be/shared/logger"
	"github.com/cuongbtq/jobboard-be/shared/postgresql"
	"github.com/cuongbtq/jobboard-be/shared/rabbitmq"
	"github.com/cuongbtq/jobboard-be/shared/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.Bool("scheduler_enabled", cfg.Scheduler.Enabled),
	)

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	renderer, err := notification.NewRenderer(cfg.Notification.FrontendURL)
	if err != nil {
		return fmt.Errorf("failed to load email templates: %w", err)
	}

	sender, err := notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.Notification.FromEmail,
		TLS:      notification.TLSMode(cfg.SMTP.TLS),
		Timeout:  cfg.SMTP.Timeout,
	}, renderer, appLogger.Component("smtp"))
	if err != nil {
		return fmt.Errorf("failed to initialize SMTP sender: %w", err)
	}

	publisher := notification.NewQueuePublisher(rabbitClient, appLogger.Component("queue-publisher"))

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:           appLogger.Component("worker"),
		Source:           rabbitClient,
		Sender:           sender,
		Requeuer:         publisher,
		Concurrency:      cfg.Worker.Concurrency,
		JobTimeout:       cfg.Worker.JobTimeout,
		MaxRedeliveries:  cfg.Worker.MaxRedeliveries,
		BufferMultiplier: cfg.Worker.BufferMultiplier,
		RetryDelay:       cfg.Worker.RetryDelay,
		MaxRetryDelay:    cfg.Worker.MaxRetryDelay,
	})

	// Digests go through the queue unless SMTP is configured as the transport
	var dispatcher notification.Dispatcher = publisher
	if cfg.Notification.Transport == config.TransportSMTP {
		dispatcher = sender
	}

	var scheduler *alerting.Scheduler
	if cfg.Scheduler.Enabled {
		var redisClient *goredis.Client
		if cfg.Scheduler.RunLock {
			redisClient, err = redis.NewClient(context.Background(), cfg.Redis.URL, appLogger.Logger)
			if err != nil {
				return fmt.Errorf("failed to initialize redis: %w", err)
			}
			defer redisClient.Close()
		}

		scheduler, err = initScheduler(cfg, storage.NewStorage(dbClient), dispatcher, redisClient, appLogger)
		if err != nil {
			return fmt.Errorf("failed to initialize alert scheduler: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := workerInstance.Start(gctx); err != nil {
			return err
		}
		if gctx.Err() == nil {
			return errors.New("notification delivery channel closed")
		}
		return nil
	})

	if scheduler != nil {
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start alert scheduler: %w", err)
		}

		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
			defer cancel()
			return scheduler.Stop(stopCtx)
		})
	}

	if cfg.Worker.OpsPort != 0 {
		srv := initOpsServer(cfg, scheduler, dbClient, appLogger.Component("ops"))

		g.Go(func() error {
			appLogger.Info("Starting ops server", slog.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ops server failed: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	appLogger.Info("Worker service started successfully")

	if err := g.Wait(); err != nil {
		appLogger.Error("Worker service stopped with error",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		NoColor:      cfg.NoColor,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
		PrefetchCount:      cfg.Consumer.PrefetchCount,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initScheduler wires the batch alert scheduler. A non-nil redisClient adds
// a tier lock shared by every worker on the same database.
func initScheduler(cfg *config.Config, store *storage.Storage, dispatcher notification.Dispatcher, redisClient *goredis.Client, appLogger *logger.Logger) (*alerting.Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	opts := []alerting.SchedulerOption{
		alerting.WithInterviewReminders(store, cfg.Scheduler.ReminderSpec, cfg.Scheduler.ReminderLeadTime),
	}
	if redisClient != nil {
		locker := redis.NewLocker(redisClient, cfg.App.Name+":alert-scheduler", appLogger.Component("redis-lock"))
		opts = append(opts, alerting.WithRunLock(alerting.NewRedisRunLock(locker, cfg.Redis.LockTTL, appLogger.Component("tier-lock"))))
	}

	return alerting.NewScheduler(
		store,
		store,
		dispatcher,
		alerting.SchedulerConfig{
			Location: loc,
			Specs: map[alerting.Frequency]string{
				alerting.FrequencyDaily:   cfg.Scheduler.DailySpec,
				alerting.FrequencyWeekly:  cfg.Scheduler.WeeklySpec,
				alerting.FrequencyMonthly: cfg.Scheduler.MonthlySpec,
			},
			DispatchTimeout:  cfg.Scheduler.DispatchTimeout,
			DispatchInterval: cfg.Scheduler.DispatchInterval,
		},
		appLogger.Component("alert-scheduler"),
		opts...,
	), nil
}

// initOpsServer serves health and the scheduler admin endpoints
func initOpsServer(cfg *config.Config, scheduler *alerting.Scheduler, health ops.HealthChecker, logger *slog.Logger) *http.Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// A nil *Scheduler must reach the router as a nil interface
	var sched ops.Scheduler
	if scheduler != nil {
		sched = scheduler
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.OpsPort),
		Handler:           ops.NewRouter(sched, health, cfg.Scheduler.RunTimeout, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
