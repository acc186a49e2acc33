package router

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/jobboard-be/internal/alerting"
	"github.com/cuongbtq/jobboard-be/internal/api/domain"
	"github.com/cuongbtq/jobboard-be/internal/api/model"
	"github.com/cuongbtq/jobboard-be/internal/api/storage"
)

// memStore is an in-memory stand-in for storage.Storage
type memStore struct {
	mu         sync.Mutex
	alerts     map[string]model.JobAlert
	subs       map[string]model.Subscription
	companies  map[string]model.Company
	jobs       map[string]model.JobWithCompany
	apps       []model.Application
	candidates []alerting.JobCandidate
	healthErr  error
}

func newMemStore() *memStore {
	return &memStore{
		alerts:    map[string]model.JobAlert{},
		subs:      map[string]model.Subscription{},
		companies: map[string]model.Company{},
		jobs:      map[string]model.JobWithCompany{},
	}
}

func (m *memStore) HealthCheck(context.Context) error { return m.healthErr }

func (m *memStore) CreateAlert(_ context.Context, a *model.JobAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = *a
	return nil
}

func (m *memStore) GetAlert(_ context.Context, userID, alertID string) (*model.JobAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok || a.UserID != userID {
		return nil, domain.ErrAlertNotFound
	}
	return &a, nil
}

func (m *memStore) ListAlerts(_ context.Context, f storage.AlertFilter) ([]model.JobAlert, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []model.JobAlert
	for _, a := range m.alerts {
		if a.UserID != f.UserID {
			continue
		}
		if f.IsActive != nil && a.IsActive != *f.IsActive {
			continue
		}
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	start := min((f.Page.Page-1)*f.Page.Limit, len(all))
	end := min(start+f.Page.Limit, len(all))
	return all[start:end], len(all), nil
}

func (m *memStore) UpdateAlert(_ context.Context, a *model.JobAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.alerts[a.ID]
	if !ok || cur.UserID != a.UserID {
		return domain.ErrAlertNotFound
	}
	m.alerts[a.ID] = *a
	return nil
}

func (m *memStore) ToggleAlert(_ context.Context, userID, alertID string) (*model.JobAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok || a.UserID != userID {
		return nil, domain.ErrAlertNotFound
	}
	a.IsActive = !a.IsActive
	m.alerts[alertID] = a
	return &a, nil
}

func (m *memStore) DeleteAlert(_ context.Context, userID, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok || a.UserID != userID {
		return domain.ErrAlertNotFound
	}
	delete(m.alerts, alertID)
	return nil
}

func (m *memStore) ListActiveJobs(_ context.Context, since time.Time) ([]alerting.JobCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []alerting.JobCandidate
	for _, j := range m.candidates {
		if j.Eligible() && !j.CreatedAt.Before(since) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *memStore) GetActiveCompany(_ context.Context, companyID string) (*model.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[companyID]
	if !ok || c.IsDeleted || c.Status != domain.CompanyStatusActive {
		return nil, domain.ErrCompanyNotFound
	}
	return &c, nil
}

func (m *memStore) CreateSubscription(_ context.Context, sub *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.UserID == sub.UserID && s.CompanyID == sub.CompanyID {
			return domain.ErrSubscriptionExists
		}
	}
	m.subs[sub.ID] = *sub
	return nil
}

func (m *memStore) withCompany(s model.Subscription) *model.SubscriptionWithCompany {
	return &model.SubscriptionWithCompany{Subscription: s, CompanyName: m.companies[s.CompanyID].Name}
}

func (m *memStore) GetSubscription(_ context.Context, userID, subscriptionID string) (*model.SubscriptionWithCompany, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[subscriptionID]
	if !ok || s.UserID != userID {
		return nil, domain.ErrSubscriptionNotFound
	}
	return m.withCompany(s), nil
}

func (m *memStore) GetSubscriptionByCompany(_ context.Context, userID, companyID string) (*model.SubscriptionWithCompany, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.UserID == userID && s.CompanyID == companyID {
			return m.withCompany(s), nil
		}
	}
	return nil, domain.ErrSubscriptionNotFound
}

func (m *memStore) ListSubscriptions(_ context.Context, userID string, page storage.Page) ([]model.SubscriptionWithCompany, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.SubscriptionWithCompany
	for _, s := range m.subs {
		if s.UserID == userID {
			all = append(all, *m.withCompany(s))
		}
	}
	start := min((page.Page-1)*page.Limit, len(all))
	end := min(start+page.Limit, len(all))
	return all[start:end], len(all), nil
}

func (m *memStore) UpdateSubscription(_ context.Context, sub *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.subs[sub.ID]
	if !ok || cur.UserID != sub.UserID {
		return domain.ErrSubscriptionNotFound
	}
	m.subs[sub.ID] = *sub
	return nil
}

func (m *memStore) ToggleSubscription(_ context.Context, userID, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[subscriptionID]
	if !ok || s.UserID != userID {
		return domain.ErrSubscriptionNotFound
	}
	s.IsActive = !s.IsActive
	m.subs[subscriptionID] = s
	return nil
}

func (m *memStore) DeleteSubscription(_ context.Context, userID, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[subscriptionID]
	if !ok || s.UserID != userID {
		return domain.ErrSubscriptionNotFound
	}
	delete(m.subs, subscriptionID)
	return nil
}

func (m *memStore) CreateJob(_ context.Context, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.companies[job.CompanyID]
	c.TotalJobs++
	m.companies[job.CompanyID] = c
	m.jobs[job.ID] = model.JobWithCompany{Job: *job, CompanyName: c.Name}
	return nil
}

func (m *memStore) GetJob(_ context.Context, jobID string) (*model.JobWithCompany, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || j.IsDeleted {
		return nil, domain.ErrJobNotFound
	}
	return &j, nil
}

func (m *memStore) ListJobs(_ context.Context, f storage.JobFilter) ([]model.JobWithCompany, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []model.JobWithCompany
	for _, j := range m.jobs {
		if !j.IsActive || j.IsDeleted {
			continue
		}
		if f.JobType != "" && j.JobType != f.JobType {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(j.Title), strings.ToLower(f.Search)) {
			continue
		}
		all = append(all, j)
	}

	less := func(a, b model.JobWithCompany) bool {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID > b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	}
	sort.Slice(all, func(i, j int) bool { return less(all[i], all[j]) })

	if f.Cursor != nil {
		pivot := model.JobWithCompany{Job: model.Job{ID: f.Cursor.JobID, CreatedAt: f.Cursor.CreatedAt}}
		all = slices.DeleteFunc(all, func(j model.JobWithCompany) bool { return !less(pivot, j) })
	}

	if len(all) > f.PageSize+1 {
		all = all[:f.PageSize+1]
	}
	return all, nil
}

func (m *memStore) SoftDeleteJob(_ context.Context, userID, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok || j.IsDeleted || j.CreatedBy != userID {
		return domain.ErrJobNotFound
	}
	j.IsDeleted = true
	m.jobs[jobID] = j
	return nil
}

func (m *memStore) CreateApplication(_ context.Context, app *model.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[app.JobID]
	if !ok || !j.IsActive || j.IsDeleted {
		return domain.ErrJobNotFound
	}
	for _, a := range m.apps {
		if a.UserID == app.UserID && a.JobID == app.JobID {
			return domain.ErrDuplicateApplication
		}
	}
	m.apps = append(m.apps, *app)
	j.ApplicationCount++
	m.jobs[app.JobID] = j
	return nil
}

func (m *memStore) ListApplications(_ context.Context, userID string) ([]model.ApplicationWithJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ApplicationWithJob
	for _, a := range m.apps {
		if a.UserID == userID {
			j := m.jobs[a.JobID]
			out = append(out, model.ApplicationWithJob{Application: a, JobTitle: j.Title, CompanyName: j.CompanyName})
		}
	}
	return out, nil
}

type notifyCall struct {
	job     alerting.JobCandidate
	company alerting.Company
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *fakeNotifier) OnJobCreated(job alerting.JobCandidate, company alerting.Company) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{job: job, company: company})
}
