package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/jobboard-be/internal/notification"
	"github.com/cuongbtq/jobboard-be/shared/logger"
	"github.com/cuongbtq/jobboard-be/shared/redis"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func dailyAlert(id, email string) JobAlert {
	return JobAlert{
		ID:          id,
		UserID:      "user-" + id,
		Name:        "Backend roles " + id,
		Criteria:    Criteria{Keywords: []string{"backend"}},
		IsActive:    true,
		Frequency:   FrequencyDaily,
		Preferences: Preferences{Email: true, Push: true},
		Owner:       owner(email),
	}
}

func backendJob(id string, createdAt time.Time) JobCandidate {
	return JobCandidate{
		ID:          id,
		CompanyID:   "acme",
		CompanyName: "Acme",
		Title:       "Backend Engineer " + id,
		JobType:     JobTypeFullTime,
		IsActive:    true,
		CreatedAt:   createdAt,
	}
}

func newTestScheduler(store AlertStore, jobs JobSource, d notification.Dispatcher, clock *testClock, opts ...SchedulerOption) *Scheduler {
	cfg := SchedulerConfig{
		Specs: map[Frequency]string{
			FrequencyDaily:   "0 9 * * *",
			FrequencyWeekly:  "0 9 * * 1",
			FrequencyMonthly: "0 9 1 * *",
		},
		DispatchTimeout: time.Second,
	}
	opts = append([]SchedulerOption{WithClock(clock.Now)}, opts...)
	return NewScheduler(store, jobs, d, cfg, logger.NewDiscard(), opts...)
}

func TestRunBatchCycle_BackToBackRunsSendOnce(t *testing.T) {
	alert := dailyAlert("a-1", "ana@example.com")
	alert.LastChecked = ptr(t0)

	store := newFakeAlertStore(alert)
	jobs := &fakeJobSource{jobs: []JobCandidate{backendJob("j-1", t0.Add(time.Hour))}}
	dispatcher := newFakeDispatcher()
	clock := &testClock{now: t0.Add(25 * time.Hour)}

	s := newTestScheduler(store, jobs, dispatcher, clock)

	res, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, Result{Frequency: FrequencyDaily, Processed: 1, Sent: 1}, res)

	msgs := dispatcher.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, notification.KindBatchDigest, msgs[0].Kind)
	assert.Equal(t, "ana@example.com", msgs[0].Recipient.Email)
	assert.Equal(t, "Your daily job digest: 1 new match", msgs[0].Subject)
	require.Len(t, msgs[0].Data.Jobs, 1)
	assert.Equal(t, "j-1", msgs[0].Data.Jobs[0].ID)

	saved := store.get("a-1")
	assert.Equal(t, 1, saved.TotalMatches)
	require.NotNil(t, saved.LastChecked)
	assert.True(t, saved.LastChecked.Equal(t0.Add(25*time.Hour)))
	require.NotNil(t, saved.LastNotificationSent)
	assert.True(t, saved.LastNotificationSent.Equal(t0.Add(25*time.Hour)))

	clock.Set(t0.Add(26 * time.Hour))
	res, err = s.RunBatchCycle(context.Background(), FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sent)
	assert.Len(t, dispatcher.messages(), 1)
	assert.Equal(t, 1, store.get("a-1").TotalMatches)
}

func TestRunBatchCycle_SecondRunInsideWindowSendsNothing(t *testing.T) {
	store := newFakeAlertStore(dailyAlert("a-1", "ana@example.com"))
	jobs := &fakeJobSource{jobs: []JobCandidate{backendJob("j-1", t0.Add(time.Hour))}}
	dispatcher := newFakeDispatcher()
	clock := &testClock{now: t0.Add(2 * time.Hour)}

	s := newTestScheduler(store, jobs, dispatcher, clock)

	_, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
	require.NoError(t, err)
	require.Len(t, dispatcher.messages(), 1)

	clock.Set(t0.Add(3 * time.Hour))
	res, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, res.Sent)
	assert.Len(t, dispatcher.messages(), 1)
}

func TestRunBatchCycle_DispatchFailureIsolation(t *testing.T) {
	store := newFakeAlertStore(
		dailyAlert("a-fail", "fail@example.com"),
		dailyAlert("a-ok", "ok@example.com"),
	)
	jobs := &fakeJobSource{jobs: []JobCandidate{backendJob("j-1", t0.Add(-time.Hour))}}
	dispatcher := newFakeDispatcher()
	dispatcher.failFor["fail@example.com"] = true
	clock := &testClock{now: t0}

	s := newTestScheduler(store, jobs, dispatcher, clock)

	res, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, Result{Frequency: FrequencyDaily, Processed: 2, Sent: 1, Errors: 1}, res)

	msgs := dispatcher.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ok@example.com", msgs[0].Recipient.Email)

	ok := store.get("a-ok")
	assert.Equal(t, 1, ok.TotalMatches)
	require.NotNil(t, ok.LastNotificationSent)

	failed := store.get("a-fail")
	assert.Equal(t, 0, failed.TotalMatches)
	assert.Nil(t, failed.LastNotificationSent)
	require.NotNil(t, failed.LastChecked)
	assert.True(t, failed.LastChecked.Equal(t0))
}

func TestRunBatchCycle_Bookkeeping(t *testing.T) {
	tests := []struct {
		name         string
		alert        func() JobAlert
		wantMessages int
		wantMatches  int
		wantNotified bool
	}{
		{
			name: "no matches still advances last checked",
			alert: func() JobAlert {
				a := dailyAlert("a-1", "ana@example.com")
				a.Criteria.Keywords = []string{"designer"}
				return a
			},
		},
		{
			name: "email preference off skips dispatch",
			alert: func() JobAlert {
				a := dailyAlert("a-1", "ana@example.com")
				a.Preferences.Email = false
				return a
			},
		},
		{
			name: "digest bundles every match",
			alert: func() JobAlert {
				a := dailyAlert("a-1", "ana@example.com")
				a.TotalMatches = 4
				return a
			},
			wantMessages: 1,
			wantMatches:  6,
			wantNotified: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeAlertStore(tt.alert())
			jobs := &fakeJobSource{jobs: []JobCandidate{
				backendJob("j-1", t0.Add(-3*time.Hour)),
				backendJob("j-2", t0.Add(-2*time.Hour)),
			}}
			dispatcher := newFakeDispatcher()

			s := newTestScheduler(store, jobs, dispatcher, &testClock{now: t0})

			res, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
			require.NoError(t, err)
			assert.Equal(t, 0, res.Errors)
			assert.Len(t, dispatcher.messages(), tt.wantMessages)

			saved := store.get("a-1")
			require.NotNil(t, saved.LastChecked)
			assert.True(t, saved.LastChecked.Equal(t0))
			assert.Equal(t, tt.wantNotified, saved.LastNotificationSent != nil)
			if tt.wantNotified {
				assert.Equal(t, tt.wantMatches, saved.TotalMatches)
			}
		})
	}
}

func TestRunBatchCycle_DigestContents(t *testing.T) {
	store := newFakeAlertStore(dailyAlert("a-1", "ana@example.com"))
	jobs := &fakeJobSource{jobs: []JobCandidate{
		backendJob("j-1", t0.Add(-3*time.Hour)),
		backendJob("j-2", t0.Add(-2*time.Hour)),
		backendJob("j-future", t0.Add(time.Hour)),
		backendJob("j-old", t0.Add(-48*time.Hour)),
	}}
	dispatcher := newFakeDispatcher()

	s := newTestScheduler(store, jobs, dispatcher, &testClock{now: t0})

	_, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
	require.NoError(t, err)

	msgs := dispatcher.messages()
	require.Len(t, msgs, 1)
	msg := msgs[0]

	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "Your daily job digest: 2 new matches", msg.Subject)
	assert.Equal(t, "a-1", msg.Data.AlertID)
	assert.Equal(t, "Backend roles a-1", msg.Data.AlertName)
	assert.Equal(t, "daily", msg.Data.Frequency)
	require.Len(t, msg.Data.Jobs, 2)
	assert.Equal(t, "j-1", msg.Data.Jobs[0].ID)
	assert.Equal(t, "j-2", msg.Data.Jobs[1].ID)
	assert.NoError(t, msg.Validate())

	require.Len(t, jobs.calls, 1)
	assert.True(t, jobs.calls[0].Equal(t0.AddDate(0, 0, -1)))
}

func TestRunBatchCycle_Errors(t *testing.T) {
	errStore := errors.New("database unavailable")

	t.Run("alert listing failure aborts run", func(t *testing.T) {
		store := newFakeAlertStore()
		store.listErr = errStore
		s := newTestScheduler(store, &fakeJobSource{}, newFakeDispatcher(), &testClock{now: t0})

		_, err := s.RunBatchCycle(context.Background(), FrequencyWeekly)
		require.Error(t, err)
		assert.ErrorIs(t, err, errStore)
	})

	t.Run("job listing failure leaves bookkeeping untouched", func(t *testing.T) {
		store := newFakeAlertStore(dailyAlert("a-1", "ana@example.com"))
		s := newTestScheduler(store, &fakeJobSource{err: errStore}, newFakeDispatcher(), &testClock{now: t0})

		_, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
		require.ErrorIs(t, err, errStore)
		assert.Nil(t, store.get("a-1").LastChecked)
		assert.Equal(t, 0, store.saves)
	})

	t.Run("save failure is counted and the run continues", func(t *testing.T) {
		store := newFakeAlertStore(
			dailyAlert("a-1", "one@example.com"),
			dailyAlert("a-2", "two@example.com"),
		)
		store.saveErr["a-1"] = errStore
		jobs := &fakeJobSource{jobs: []JobCandidate{backendJob("j-1", t0.Add(-time.Hour))}}
		dispatcher := newFakeDispatcher()
		s := newTestScheduler(store, jobs, dispatcher, &testClock{now: t0})

		res, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Processed)
		assert.Equal(t, 2, res.Sent)
		assert.Equal(t, 1, res.Errors)
		assert.Equal(t, 1, store.get("a-2").TotalMatches)
	})

	t.Run("malformed alert is skipped", func(t *testing.T) {
		broken := dailyAlert("a-broken", "")
		store := newFakeAlertStore(broken, dailyAlert("a-2", "two@example.com"))
		jobs := &fakeJobSource{jobs: []JobCandidate{backendJob("j-1", t0.Add(-time.Hour))}}
		dispatcher := newFakeDispatcher()
		s := newTestScheduler(store, jobs, dispatcher, &testClock{now: t0})

		res, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Errors)
		assert.Equal(t, 1, res.Sent)
		assert.Nil(t, store.get("a-broken").LastChecked)
	})

	t.Run("immediate is not a batch tier", func(t *testing.T) {
		s := newTestScheduler(newFakeAlertStore(), &fakeJobSource{}, newFakeDispatcher(), &testClock{now: t0})

		_, err := s.RunBatchCycle(context.Background(), FrequencyImmediate)
		assert.ErrorIs(t, err, ErrUnknownFrequency)
	})
}

func TestRunBatchCycle_DispatchTimeout(t *testing.T) {
	store := newFakeAlertStore(
		dailyAlert("a-hung", "hung@example.com"),
		dailyAlert("a-ok", "ok@example.com"),
	)
	jobs := &fakeJobSource{jobs: []JobCandidate{backendJob("j-1", t0.Add(-time.Hour))}}
	dispatcher := newFakeDispatcher()
	dispatcher.blockFor["hung@example.com"] = true

	s := newTestScheduler(store, jobs, dispatcher, &testClock{now: t0})
	s.cfg.DispatchTimeout = 20 * time.Millisecond

	res, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 1, res.Sent)

	hung := store.get("a-hung")
	require.NotNil(t, hung.LastChecked)
	assert.Nil(t, hung.LastNotificationSent)
}

func TestRunBatchCycle_DispatchInterval(t *testing.T) {
	store := newFakeAlertStore(
		dailyAlert("a-1", "one@example.com"),
		dailyAlert("a-2", "two@example.com"),
		dailyAlert("a-3", "three@example.com"),
	)
	jobs := &fakeJobSource{jobs: []JobCandidate{backendJob("j-1", t0.Add(-time.Hour))}}
	dispatcher := newFakeDispatcher()

	s := newTestScheduler(store, jobs, dispatcher, &testClock{now: t0})
	s.cfg.DispatchInterval = 30 * time.Millisecond

	start := time.Now()
	res, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Sent)
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestRunBatchCycle_NoOverlapForSameTier(t *testing.T) {
	store := newFakeAlertStore(dailyAlert("a-hung", "hung@example.com"))
	jobs := &fakeJobSource{jobs: []JobCandidate{backendJob("j-1", t0.Add(-time.Hour))}}
	dispatcher := newFakeDispatcher()
	dispatcher.blockFor["hung@example.com"] = true

	s := newTestScheduler(store, jobs, dispatcher, &testClock{now: t0})
	s.cfg.DispatchTimeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunBatchCycle(ctx, FrequencyDaily)
	}()

	require.Eventually(t, func() bool {
		return s.Status().Tiers[0].Running
	}, time.Second, 5*time.Millisecond)

	_, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
	assert.ErrorIs(t, err, ErrTierBusy)

	// other tiers are independent
	_, err = s.RunBatchCycle(context.Background(), FrequencyWeekly)
	assert.NoError(t, err)

	cancel()
	<-done

	_, err = s.RunBatchCycle(context.Background(), FrequencyMonthly)
	assert.NoError(t, err)
}

func TestRunBatchCycle_RunLock(t *testing.T) {
	lock := &fakeRunLock{}
	store := newFakeAlertStore(dailyAlert("a-1", "ana@example.com"))
	s := newTestScheduler(store, &fakeJobSource{}, newFakeDispatcher(), &testClock{now: t0}, WithRunLock(lock))

	_, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
	require.NoError(t, err)
	assert.Equal(t, 1, lock.released)

	lock.held = map[Frequency]bool{FrequencyDaily: true}
	_, err = s.RunBatchCycle(context.Background(), FrequencyDaily)
	assert.ErrorIs(t, err, ErrTierBusy)
	assert.Equal(t, 1, store.saves)
}

func TestRunBatchCycle_LostRunLockAbortsRun(t *testing.T) {
	lock := &fakeRunLock{lost: true}
	store := newFakeAlertStore(dailyAlert("a-1", "ana@example.com"))
	jobs := &fakeJobSource{jobs: []JobCandidate{backendJob("j-1", t0.Add(-time.Hour))}}
	dispatcher := newFakeDispatcher()
	s := newTestScheduler(store, jobs, dispatcher, &testClock{now: t0}, WithRunLock(lock))

	res, err := s.RunBatchCycle(context.Background(), FrequencyDaily)
	assert.ErrorIs(t, err, ErrTierLockLost)
	assert.Equal(t, 0, res.Processed)
	assert.Empty(t, dispatcher.messages())
	assert.Equal(t, 0, store.saves)
	assert.Equal(t, 1, lock.released)
}

func TestRedisRunLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	locker := redis.NewLocker(client, "jobboard:alert-scheduler", logger.NewDiscard())
	const key = "jobboard:alert-scheduler:tier:daily"

	t.Run("renews while held", func(t *testing.T) {
		rl := NewRedisRunLock(locker, 300*time.Millisecond, logger.NewDiscard())
		ctx, release, err := rl.Acquire(context.Background(), FrequencyDaily)
		require.NoError(t, err)

		_, _, err = rl.Acquire(context.Background(), FrequencyDaily)
		assert.ErrorIs(t, err, ErrTierBusy)

		// expiry clock moves past the ttl in total, renewals keep the key
		for i := 0; i < 4; i++ {
			time.Sleep(150 * time.Millisecond)
			mr.FastForward(150 * time.Millisecond)
		}
		assert.True(t, mr.Exists(key))
		assert.NoError(t, ctx.Err())

		require.NoError(t, release(context.Background()))
		assert.False(t, mr.Exists(key))
	})

	t.Run("cancels the run when the key is taken over", func(t *testing.T) {
		rl := NewRedisRunLock(locker, 60*time.Millisecond, logger.NewDiscard())
		ctx, release, err := rl.Acquire(context.Background(), FrequencyDaily)
		require.NoError(t, err)

		require.NoError(t, mr.Set(key, "other-worker"))

		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("run context was not cancelled")
		}
		assert.ErrorIs(t, context.Cause(ctx), ErrTierLockLost)
		assert.ErrorIs(t, release(context.Background()), redis.ErrLockNotHeld)

		got, err := mr.Get(key)
		require.NoError(t, err)
		assert.Equal(t, "other-worker", got)
		mr.Del(key)
	})
}

func TestScheduler_StartStop(t *testing.T) {
	s := newTestScheduler(newFakeAlertStore(), &fakeJobSource{}, newFakeDispatcher(), &testClock{now: t0})
	assert.Equal(t, StateStopped, s.State())

	require.NoError(t, s.Start())
	assert.Equal(t, StateRunning, s.State())
	assert.ErrorIs(t, s.Start(), ErrSchedulerRunning)

	status := s.Status()
	assert.Equal(t, StateRunning, status.State)
	require.Len(t, status.Tiers, 3)
	for _, tier := range status.Tiers {
		assert.True(t, tier.Scheduled, string(tier.Frequency))
		assert.NotEmpty(t, tier.Spec)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, StateStopped, s.State())
	assert.NoError(t, s.Stop(ctx))

	for _, tier := range s.Status().Tiers {
		assert.False(t, tier.Scheduled)
	}

	// restartable
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_StartInvalidSpec(t *testing.T) {
	s := newTestScheduler(newFakeAlertStore(), &fakeJobSource{}, newFakeDispatcher(), &testClock{now: t0})
	s.cfg.Specs[FrequencyWeekly] = "every monday"

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weekly")
	assert.Equal(t, StateStopped, s.State())
}

func TestFrequency(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), FrequencyDaily.WindowStart(now))
	assert.Equal(t, time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC), FrequencyWeekly.WindowStart(now))
	assert.Equal(t, time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC), FrequencyMonthly.WindowStart(now))

	f, err := ParseFrequency("weekly")
	require.NoError(t, err)
	assert.Equal(t, FrequencyWeekly, f)
	assert.True(t, f.IsBatch())
	assert.False(t, FrequencyImmediate.IsBatch())

	_, err = ParseFrequency("hourly")
	assert.ErrorIs(t, err, ErrUnknownFrequency)
}
