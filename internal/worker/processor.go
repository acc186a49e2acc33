package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobboard-be/internal/notification"
	"github.com/cuongbtq/jobboard-be/internal/worker/domain"
)

// processDelivery sends one notification within the job timeout and
// classifies the failure for settle
func (w *Worker) processDelivery(ctx context.Context, d *domain.Delivery) error {
	w.logger.Debug("Processing notification",
		slog.String("message_id", d.Message.ID),
		slog.String("kind", string(d.Message.Kind)),
		slog.Int("attempt", d.Attempt),
	)

	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	err := w.sender.Dispatch(jobCtx, d.Message)
	if err == nil {
		return nil
	}

	if errors.Is(err, notification.ErrInvalidMessage) {
		return err
	}

	// attempts are 1-based, so max redeliveries allows max+1 sends in total
	if d.Attempt > w.maxRedeliveries {
		return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)
	}

	return domain.NewRetryableError(fmt.Errorf("delivery of %s failed: %w", d.Message.ID, err))
}
