package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/jobboard-be/internal/notification"
	"github.com/cuongbtq/jobboard-be/internal/worker/domain"
	"github.com/cuongbtq/jobboard-be/shared/logger"
)

type ackRecord struct {
	tag     uint64
	acked   bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	records []ackRecord
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, ackRecord{tag: tag, acked: true})
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, ackRecord{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) get(tag uint64) (ackRecord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.records {
		if r.tag == tag {
			return r, true
		}
	}
	return ackRecord{}, false
}

type fakeSource struct {
	ch  chan amqp.Delivery
	err error
}

func (s *fakeSource) Consume(string) (<-chan amqp.Delivery, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ch, nil
}

type fakeSender struct {
	mu     sync.Mutex
	errFor map[string]error
	sent   []string
}

func (s *fakeSender) Dispatch(_ context.Context, msg notification.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errFor[msg.ID]; err != nil {
		return err
	}
	s.sent = append(s.sent, msg.ID)
	return nil
}

type republished struct {
	id      string
	attempt int
	at      time.Time
}

type fakeRequeuer struct {
	mu    sync.Mutex
	err   error
	calls []republished
}

func (r *fakeRequeuer) Publish(_ context.Context, msg notification.Message, attempt int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, republished{id: msg.ID, attempt: attempt, at: time.Now()})
	return nil
}

func message(id string) notification.Message {
	return notification.Message{
		ID:        id,
		Kind:      notification.KindCompanyJob,
		Recipient: notification.Recipient{Email: "ana@example.com", FirstName: "Ana"},
		Subject:   "New Job at Acme: Go Engineer",
		Data: notification.Data{
			SubscriptionID: "sub-1",
			CompanyName:    "Acme",
			Jobs:           []notification.JobSummary{{ID: "job-1", Title: "Go Engineer"}},
		},
	}
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, msg notification.Message, attempt int32) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  tag,
		MessageId:    msg.ID,
		Body:         body,
		Headers:      amqp.Table{notification.AttemptHeader: attempt},
	}
}

func runWorker(t *testing.T, sender *fakeSender, requeuer Requeuer, deliveries ...amqp.Delivery) {
	t.Helper()
	runWorkerWith(t, &Config{Sender: sender, Requeuer: requeuer}, deliveries...)
}

func runWorkerWith(t *testing.T, cfg *Config, deliveries ...amqp.Delivery) {
	t.Helper()

	src := &fakeSource{ch: make(chan amqp.Delivery, len(deliveries))}
	for _, d := range deliveries {
		src.ch <- d
	}
	close(src.ch)

	cfg.Logger = logger.NewDiscard()
	cfg.Source = src
	cfg.Concurrency = 2
	cfg.JobTimeout = time.Second
	cfg.MaxRedeliveries = 3
	w := NewWorker(cfg)

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after delivery channel closed")
	}
}

func TestWorker_Settlement(t *testing.T) {
	smtpDown := errors.New("smtp: 421 service not available")

	ack := &fakeAcknowledger{}
	sender := &fakeSender{errFor: map[string]error{
		"transient":     smtpDown,
		"exhausted":     smtpDown,
		"undeliverable": fmt.Errorf("%w: template failed", notification.ErrInvalidMessage),
	}}
	requeuer := &fakeRequeuer{}

	malformed := amqp.Delivery{Acknowledger: ack, DeliveryTag: 5, Body: []byte("{not json")}

	runWorker(t, sender, requeuer,
		delivery(t, ack, 1, message("ok"), 1),
		delivery(t, ack, 2, message("transient"), 1),
		delivery(t, ack, 3, message("exhausted"), 4),
		delivery(t, ack, 4, message("undeliverable"), 1),
		malformed,
	)

	tests := []struct {
		name    string
		tag     uint64
		acked   bool
		requeue bool
	}{
		{name: "delivered is acked", tag: 1, acked: true},
		{name: "transient failure is republished and acked", tag: 2, acked: true},
		{name: "exhausted attempts are dropped", tag: 3},
		{name: "invalid message is dropped", tag: 4},
		{name: "malformed body is dropped", tag: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ack.get(tt.tag)
			require.True(t, ok, "no settlement recorded")
			assert.Equal(t, tt.acked, rec.acked)
			assert.Equal(t, tt.requeue, rec.requeue)
		})
	}

	assert.Equal(t, []string{"ok"}, sender.sent)
	require.Len(t, requeuer.calls, 1)
	assert.Equal(t, "transient", requeuer.calls[0].id)
	assert.Equal(t, 2, requeuer.calls[0].attempt)
}

func TestWorker_RetryWaitsBeforeRepublish(t *testing.T) {
	ack := &fakeAcknowledger{}
	sender := &fakeSender{errFor: map[string]error{"transient": errors.New("smtp: 421 try later")}}
	requeuer := &fakeRequeuer{}

	start := time.Now()
	runWorkerWith(t, &Config{
		Sender:        sender,
		Requeuer:      requeuer,
		RetryDelay:    40 * time.Millisecond,
		MaxRetryDelay: time.Second,
	}, delivery(t, ack, 1, message("transient"), 2))

	require.Len(t, requeuer.calls, 1)
	assert.Equal(t, 3, requeuer.calls[0].attempt)
	// second attempt waits twice the base delay
	assert.GreaterOrEqual(t, requeuer.calls[0].at.Sub(start), 80*time.Millisecond)

	rec, ok := ack.get(1)
	require.True(t, ok)
	assert.True(t, rec.acked)
}

func TestWorker_ShutdownDuringRetryWaitRequeues(t *testing.T) {
	ack := &fakeAcknowledger{}
	requeuer := &fakeRequeuer{}
	src := &fakeSource{ch: make(chan amqp.Delivery, 1)}
	src.ch <- delivery(t, ack, 1, message("transient"), 1)

	w := NewWorker(&Config{
		Logger:          logger.NewDiscard(),
		Source:          src,
		Sender:          &fakeSender{errFor: map[string]error{"transient": errors.New("timeout")}},
		Requeuer:        requeuer,
		Concurrency:     1,
		MaxRedeliveries: 3,
		RetryDelay:      time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop while waiting to retry")
	}

	rec, ok := ack.get(1)
	require.True(t, ok)
	assert.False(t, rec.acked)
	assert.True(t, rec.requeue)
	assert.Empty(t, requeuer.calls)
}

func TestWorker_Backoff(t *testing.T) {
	w := NewWorker(&Config{Logger: logger.NewDiscard(), RetryDelay: 30 * time.Second, MaxRetryDelay: 5 * time.Minute})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 30 * time.Second},
		{attempt: 2, want: time.Minute},
		{attempt: 3, want: 2 * time.Minute},
		{attempt: 4, want: 4 * time.Minute},
		{attempt: 5, want: 5 * time.Minute},
		{attempt: 60, want: 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.want, w.backoff(tt.attempt))
		})
	}

	assert.Equal(t, time.Duration(0), NewWorker(&Config{Logger: logger.NewDiscard()}).backoff(3))
}

func TestWorker_RepublishFailureRequeues(t *testing.T) {
	ack := &fakeAcknowledger{}
	sender := &fakeSender{errFor: map[string]error{"transient": errors.New("timeout")}}
	requeuer := &fakeRequeuer{err: errors.New("broker unavailable")}

	runWorker(t, sender, requeuer, delivery(t, ack, 1, message("transient"), 1))

	rec, ok := ack.get(1)
	require.True(t, ok)
	assert.False(t, rec.acked)
	assert.True(t, rec.requeue)
}

func TestWorker_ConsumeError(t *testing.T) {
	w := NewWorker(&Config{
		Logger:      logger.NewDiscard(),
		Source:      &fakeSource{err: errors.New("channel closed")},
		Sender:      &fakeSender{},
		Concurrency: 1,
	})

	err := w.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set up consumer")
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	src := &fakeSource{ch: make(chan amqp.Delivery)}
	w := NewWorker(&Config{
		Logger:      logger.NewDiscard(),
		Source:      src,
		Sender:      &fakeSender{},
		Concurrency: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable", domain.NewRetryableError(errors.New("timeout")), true},
		{"max retries", fmt.Errorf("%w: timeout", domain.ErrMaxRetriesExceeded), false},
		{"invalid message", fmt.Errorf("%w: no jobs", notification.ErrInvalidMessage), false},
		{"unknown", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRetry(tt.err))
		})
	}
}
