package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/jobboard-be/internal/notification"
	"github.com/cuongbtq/jobboard-be/internal/worker/domain"
)

// DeliverySource yields queue deliveries
type DeliverySource interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Requeuer puts a notification back on the queue for another attempt
type Requeuer interface {
	Publish(ctx context.Context, msg notification.Message, attempt int) error
}

// Config holds worker configuration
type Config struct {
	Logger           *slog.Logger
	Source           DeliverySource
	Sender           notification.Dispatcher
	Requeuer         Requeuer
	Concurrency      int
	JobTimeout       time.Duration
	MaxRedeliveries  int
	BufferMultiplier int
	// RetryDelay is the wait before the first republish; it doubles on each
	// later attempt up to MaxRetryDelay
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Worker consumes queued notifications and delivers them with a fixed pool
// of goroutines
type Worker struct {
	logger          *slog.Logger
	source          DeliverySource
	sender          notification.Dispatcher
	requeuer        Requeuer
	workerID        string
	concurrency     int
	jobTimeout      time.Duration
	maxRedeliveries int
	retryDelay      time.Duration
	maxRetryDelay   time.Duration
	jobsChan        chan *domain.Delivery
	wg              sync.WaitGroup
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	buffer := cfg.BufferMultiplier
	if buffer <= 0 {
		buffer = 1
	}

	return &Worker{
		logger:          cfg.Logger,
		source:          cfg.Source,
		sender:          cfg.Sender,
		requeuer:        cfg.Requeuer,
		workerID:        "notification-worker-" + uuid.NewString()[:8],
		concurrency:     concurrency,
		jobTimeout:      cfg.JobTimeout,
		maxRedeliveries: cfg.MaxRedeliveries,
		retryDelay:      cfg.RetryDelay,
		maxRetryDelay:   cfg.MaxRetryDelay,
		jobsChan:        make(chan *domain.Delivery, concurrency*buffer),
	}
}

// Start consumes until ctx is cancelled or the delivery channel closes, then
// waits for in-flight deliveries to finish
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
		slog.Int("max_redeliveries", w.maxRedeliveries),
		slog.Duration("retry_delay", w.retryDelay),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	w.startMessageDispatcher(ctx, deliveries)

	close(w.jobsChan)
	w.wg.Wait()

	w.logger.Info("Worker stopped", slog.String("worker_id", w.workerID))
	return nil
}
