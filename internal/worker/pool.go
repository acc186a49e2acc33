package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/jobboard-be/internal/notification"
	"github.com/cuongbtq/jobboard-be/internal/worker/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.String("worker_id", w.workerID),
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop delivers notifications until jobsChan is closed. Deliveries
// still buffered after ctx is cancelled go back to the queue untouched.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	logger := w.logger.With(slog.String("worker_name", workerName))

	for d := range w.jobsChan {
		if ctx.Err() != nil {
			if err := d.Raw.Nack(false, true); err != nil {
				logger.Error("Failed to NACK message on shutdown",
					slog.String("message_id", d.Message.ID),
					slog.Any("error", err),
				)
			}
			continue
		}

		err := w.processDelivery(ctx, d)
		w.settle(ctx, logger, d, err)
	}

	logger.Debug("Worker goroutine stopped")
}

// settle acknowledges d according to the processing result. Retryable
// failures wait out the retry backoff, then are republished with the next
// attempt number and the original is acked; if republishing fails or the
// worker stops during the wait, the original is requeued instead.
func (w *Worker) settle(ctx context.Context, logger *slog.Logger, d *domain.Delivery, err error) {
	logger = logger.With(
		slog.String("message_id", d.Message.ID),
		slog.Int("attempt", d.Attempt),
	)

	if err == nil {
		if ackErr := d.Raw.Ack(false); ackErr != nil {
			logger.Error("Failed to ACK message", slog.Any("error", ackErr))
			return
		}
		logger.Info("Notification delivered")
		return
	}

	if !shouldRetry(err) {
		logger.Error("Notification delivery failed permanently", slog.Any("error", err))
		if nackErr := d.Raw.Nack(false, false); nackErr != nil {
			logger.Error("Failed to NACK message", slog.Any("error", nackErr))
		}
		return
	}

	delay := w.backoff(d.Attempt)
	logger.Warn("Notification delivery failed, scheduling retry",
		slog.Duration("retry_in", delay),
		slog.Any("error", err),
	)

	if !sleepCtx(ctx, delay) {
		logger.Info("Worker stopping, returning message to the queue")
		if nackErr := d.Raw.Nack(false, true); nackErr != nil {
			logger.Error("Failed to NACK message", slog.Any("error", nackErr))
		}
		return
	}

	if w.requeuer != nil {
		pubErr := w.requeuer.Publish(context.WithoutCancel(ctx), d.Message, d.Attempt+1)
		if pubErr == nil {
			if ackErr := d.Raw.Ack(false); ackErr != nil {
				logger.Error("Failed to ACK republished message", slog.Any("error", ackErr))
			}
			return
		}
		logger.Error("Failed to republish notification", slog.Any("error", pubErr))
	}

	if nackErr := d.Raw.Nack(false, true); nackErr != nil {
		logger.Error("Failed to NACK message", slog.Any("error", nackErr))
	}
}

// backoff is the wait before republishing a delivery that failed on attempt
func (w *Worker) backoff(attempt int) time.Duration {
	delay := w.retryDelay
	for i := 1; i < attempt && delay > 0; i++ {
		if w.maxRetryDelay > 0 && delay >= w.maxRetryDelay {
			break
		}
		delay *= 2
	}
	if w.maxRetryDelay > 0 && delay > w.maxRetryDelay {
		delay = w.maxRetryDelay
	}
	return delay
}

// sleepCtx waits for d and reports false if ctx ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// shouldRetry reports whether a failed delivery deserves another attempt
func shouldRetry(err error) bool {
	if errors.Is(err, domain.ErrMaxRetriesExceeded) {
		return false
	}

	if errors.Is(err, notification.ErrInvalidMessage) {
		return false
	}

	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
