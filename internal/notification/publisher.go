package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobboard-be/shared/rabbitmq"
)

// AttemptHeader counts delivery attempts of a queued message
const AttemptHeader = "x-attempt"

type queueClient interface {
	PublishWithRetry(ctx context.Context, msg rabbitmq.Message) error
}

// QueuePublisher dispatches messages by publishing them to the delivery queue
type QueuePublisher struct {
	client queueClient
	logger *slog.Logger
}

// NewQueuePublisher creates a QueuePublisher
func NewQueuePublisher(client queueClient, logger *slog.Logger) *QueuePublisher {
	return &QueuePublisher{client: client, logger: logger}
}

// Dispatch enqueues msg as its first attempt
func (p *QueuePublisher) Dispatch(ctx context.Context, msg Message) error {
	return p.Publish(ctx, msg, 1)
}

// Publish enqueues msg tagged with the given attempt number
func (p *QueuePublisher) Publish(ctx context.Context, msg Message, attempt int) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification %s: %w", msg.ID, err)
	}

	err = p.client.PublishWithRetry(ctx, rabbitmq.Message{
		ID:          msg.ID,
		Type:        string(msg.Kind),
		ContentType: "application/json",
		Body:        body,
		Headers:     map[string]interface{}{AttemptHeader: int32(attempt)},
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue notification %s: %w", msg.ID, err)
	}

	p.logger.Debug("Notification enqueued",
		slog.String("message_id", msg.ID),
		slog.String("kind", string(msg.Kind)),
		slog.Int("attempt", attempt),
	)
	return nil
}
