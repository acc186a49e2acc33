package worker

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/jobboard-be/internal/worker/domain"
)

// setupConsumer starts a manual-ack consumer tagged with the worker id
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.source.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
	)

	return deliveries, nil
}

// startMessageDispatcher decodes deliveries and hands them to the worker pool.
// It returns when ctx is cancelled or the delivery channel closes.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case raw, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			delivery, err := domain.DecodeDelivery(raw)
			if err != nil {
				w.logger.Error("Dropping malformed notification",
					slog.String("message_id", raw.MessageId),
					slog.Uint64("delivery_tag", raw.DeliveryTag),
					slog.Any("error", err),
				)
				// malformed messages are never requeued
				if nackErr := raw.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.Any("error", nackErr),
					)
				}
				continue
			}

			select {
			case w.jobsChan <- delivery:
				w.logger.Debug("Notification dispatched to worker pool",
					slog.String("message_id", delivery.Message.ID),
					slog.Int("attempt", delivery.Attempt),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching notification")
				if nackErr := raw.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.Any("error", nackErr),
					)
				}
				return
			}
		}
	}
}
