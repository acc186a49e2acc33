package domain

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/jobboard-be/internal/notification"
)

// Delivery is one decoded notification taken off the queue
type Delivery struct {
	Message notification.Message
	Attempt int
	Raw     amqp.Delivery
}

// DecodeDelivery parses and validates the message carried by d
func DecodeDelivery(d amqp.Delivery) (*Delivery, error) {
	var msg notification.Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDelivery, err)
	}

	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDelivery, err)
	}

	return &Delivery{
		Message: msg,
		Attempt: attemptOf(d.Headers),
		Raw:     d,
	}, nil
}

func attemptOf(headers amqp.Table) int {
	n := 0
	switch v := headers[notification.AttemptHeader].(type) {
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case int:
		n = v
	}
	if n < 1 {
		return 1
	}
	return n
}
