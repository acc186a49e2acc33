package alerting

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cuongbtq/jobboard-be/internal/notification"
)

type fakeJobSource struct {
	mu    sync.Mutex
	jobs  []JobCandidate
	err   error
	calls []time.Time
}

func (f *fakeJobSource) ListActiveJobs(_ context.Context, since time.Time) ([]JobCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, since)
	if f.err != nil {
		return nil, f.err
	}

	var out []JobCandidate
	for _, j := range f.jobs {
		if j.Eligible() && !j.CreatedAt.Before(since) {
			out = append(out, j)
		}
	}
	return out, nil
}

type fakeAlertStore struct {
	mu      sync.Mutex
	alerts  map[string]JobAlert
	order   []string
	listErr error
	saveErr map[string]error
	saves   int
}

func newFakeAlertStore(alerts ...JobAlert) *fakeAlertStore {
	s := &fakeAlertStore{alerts: make(map[string]JobAlert), saveErr: make(map[string]error)}
	for _, a := range alerts {
		s.alerts[a.ID] = a
		s.order = append(s.order, a.ID)
	}
	return s
}

func (s *fakeAlertStore) ListActiveAlerts(_ context.Context, frequency Frequency) ([]JobAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []JobAlert
	for _, id := range s.order {
		a := s.alerts[id]
		if a.IsActive && a.Frequency == frequency {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeAlertStore) RecordAlertProgress(_ context.Context, p AlertProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveErr[p.AlertID]; err != nil {
		return err
	}
	s.saves++

	a := s.alerts[p.AlertID]
	a.LastChecked = latest(a.LastChecked, &p.CheckedAt)
	a.LastNotificationSent = latest(a.LastNotificationSent, p.NotifiedAt)
	a.TotalMatches += p.MatchesDelta
	s.alerts[p.AlertID] = a
	return nil
}

func (s *fakeAlertStore) put(a JobAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.alerts[a.ID] = a
}

func (s *fakeAlertStore) get(id string) JobAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alerts[id]
}

type fakeSubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]Subscription
	err  error
}

func newFakeSubscriptionStore(subs ...Subscription) *fakeSubscriptionStore {
	s := &fakeSubscriptionStore{subs: make(map[string]Subscription)}
	for _, sub := range subs {
		s.subs[sub.ID] = sub
	}
	return s
}

func (s *fakeSubscriptionStore) ListActiveSubscriptions(_ context.Context, companyID string) ([]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}

	var out []Subscription
	for _, sub := range s.subs {
		if sub.IsActive && sub.CompanyID == companyID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *fakeSubscriptionStore) RecordSubscriptionDelivery(_ context.Context, id string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := s.subs[id]
	sub.TotalNotificationsSent++
	sub.LastNotificationSent = latest(sub.LastNotificationSent, &sentAt)
	s.subs[id] = sub
	return nil
}

func (s *fakeSubscriptionStore) get(id string) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs[id]
}

var errSMTPDown = errors.New("smtp: connection refused")

type fakeDispatcher struct {
	mu       sync.Mutex
	sent     []notification.Message
	failFor  map[string]bool
	blockFor map[string]bool
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{failFor: make(map[string]bool), blockFor: make(map[string]bool)}
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, msg notification.Message) error {
	d.mu.Lock()
	fail := d.failFor[msg.Recipient.Email]
	block := d.blockFor[msg.Recipient.Email]
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if fail {
		return errSMTPDown
	}

	d.mu.Lock()
	d.sent = append(d.sent, msg)
	d.mu.Unlock()
	return nil
}

func (d *fakeDispatcher) messages() []notification.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notification.Message(nil), d.sent...)
}

type fakeRunLock struct {
	mu       sync.Mutex
	held     map[Frequency]bool
	released int
	// lost cancels every granted run as if the lock expired
	lost bool
}

func (l *fakeRunLock) Acquire(ctx context.Context, tier Frequency) (context.Context, func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held == nil {
		l.held = make(map[Frequency]bool)
	}
	if l.held[tier] {
		return nil, nil, ErrTierBusy
	}
	l.held[tier] = true

	runCtx, cancel := context.WithCancelCause(ctx)
	if l.lost {
		cancel(ErrTierLockLost)
	}

	return runCtx, func(context.Context) error {
		cancel(nil)
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, tier)
		l.released++
		return nil
	}, nil
}

func latest(cur, next *time.Time) *time.Time {
	if next == nil || (cur != nil && cur.After(*next)) {
		return cur
	}
	t := *next
	return &t
}

func ptr[T any](v T) *T {
	return &v
}

func owner(email string) Recipient {
	return Recipient{UserID: "user-" + email, Email: email, FirstName: "Test"}
}

type fakeInterviewStore struct {
	mu         sync.Mutex
	interviews []Interview
	sent       map[string]time.Time
	listErr    error
	released   []string
	windows    [][2]time.Time
}

func newFakeInterviewStore(interviews ...Interview) *fakeInterviewStore {
	return &fakeInterviewStore{interviews: interviews, sent: make(map[string]time.Time)}
}

func (s *fakeInterviewStore) ListDueInterviews(_ context.Context, from, to time.Time) ([]Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.windows = append(s.windows, [2]time.Time{from, to})
	if s.listErr != nil {
		return nil, s.listErr
	}

	var out []Interview
	for _, iv := range s.interviews {
		if _, done := s.sent[iv.ID]; done {
			continue
		}
		if !iv.ScheduledAt.Before(from) && !iv.ScheduledAt.After(to) {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (s *fakeInterviewStore) ClaimReminder(_ context.Context, id string, sentAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.sent[id]; done {
		return false, nil
	}
	s.sent[id] = sentAt
	return true, nil
}

func (s *fakeInterviewStore) ReleaseReminder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sent, id)
	s.released = append(s.released, id)
	return nil
}

func (s *fakeInterviewStore) reminded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[id]
	return ok
}
