package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/record-review/internal/application/port"
	"github.com/garyjia/record-review/internal/domain/entity"
)

// mockRecordRepo is an in-memory repository with hooks for failure injection
type mockRecordRepo struct {
	mu      sync.Mutex
	records map[string]*entity.Record

	conflicts int // number of Save calls to fail with ErrConflict
	saves     int
	loadFunc  func(ctx context.Context, id string) (*entity.Record, error)
	saveFunc  func(ctx context.Context, rec *entity.Record, expected int64) error
	listFunc  func(ctx context.Context, q port.ListQuery) ([]*entity.Record, error)
}

func newMockRepo(records ...*entity.Record) *mockRecordRepo {
	m := &mockRecordRepo{records: make(map[string]*entity.Record)}
	for _, r := range records {
		if r.Version == 0 {
			r.Version = 1
		}
		m.records[r.ID] = r.Clone()
	}
	return m
}

func (m *mockRecordRepo) Create(ctx context.Context, rec *entity.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; ok {
		return port.ErrAlreadyExists
	}
	rec.Version = 1
	m.records[rec.ID] = rec.Clone()
	return nil
}

func (m *mockRecordRepo) Load(ctx context.Context, id string) (*entity.Record, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *mockRecordRepo) Save(ctx context.Context, rec *entity.Record, expected int64) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, rec, expected)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.conflicts > 0 {
		m.conflicts--
		return port.ErrConflict
	}
	stored, ok := m.records[rec.ID]
	if !ok {
		return port.ErrNotFound
	}
	if stored.Version != expected {
		return port.ErrConflict
	}
	c := rec.Clone()
	c.Version = expected + 1
	m.records[rec.ID] = c
	return nil
}

func (m *mockRecordRepo) List(ctx context.Context, q port.ListQuery) ([]*entity.Record, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, q)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*entity.Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *mockRecordRepo) stored(id string) *entity.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id].Clone()
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// stepClock advances by one minute on every call
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type mockMetrics struct {
	mu       sync.Mutex
	created  int
	applied  []string
	rejected []string
	retries  int
	budgets  map[string]string
}

func (m *mockMetrics) RecordCreated(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *mockMetrics) TransitionApplied(_, from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, from+"->"+to)
}

func (m *mockMetrics) TransitionRejected(_, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, reason)
}

func (m *mockMetrics) ConflictRetried(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *mockMetrics) BudgetObserved(category string, _ float64, tier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.budgets == nil {
		m.budgets = make(map[string]string)
	}
	m.budgets[category] = tier
}
