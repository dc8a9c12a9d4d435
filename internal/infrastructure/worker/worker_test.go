package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/record-review/internal/application/service"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/garyjia/record-review/internal/domain/event"
	"github.com/garyjia/record-review/internal/domain/rollup"
)

type stubSource struct {
	mu    sync.Mutex
	items []rollup.DueItem
	err   error
	calls int
}

func (s *stubSource) DueSoon(ctx context.Context, query service.RollupQuery) ([]rollup.DueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.items, s.err
}

func (s *stubSource) set(items []rollup.DueItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type capturePublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (p *capturePublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *capturePublisher) all() []*event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*event.Event(nil), p.events...)
}

func dueItem(id string, due time.Time, overdue bool) rollup.DueItem {
	return rollup.DueItem{
		RecordID: id,
		Type:     entity.RecordTypeTrip,
		Status:   entity.StatusSubmitted,
		DueAt:    due,
		Overdue:  overdue,
	}
}

func TestDueReminder_Poll(t *testing.T) {
	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	source := &stubSource{items: []rollup.DueItem{
		dueItem("r1", due, false),
		dueItem("r2", due.Add(time.Hour), false),
	}}
	pub := &capturePublisher{}
	r := NewDueReminder(source, pub, time.Minute, zap.NewNop())

	assert.Equal(t, 2, r.Poll(context.Background()))
	events := pub.all()
	require.Len(t, events, 2)
	assert.Equal(t, event.TypeRecordDueSoon, events[0].Type)
	assert.Equal(t, "r1", events[0].RecordID)

	t.Run("same items are not announced twice", func(t *testing.T) {
		assert.Equal(t, 0, r.Poll(context.Background()))
		assert.Len(t, pub.all(), 2)
	})

	t.Run("record turning overdue is announced again", func(t *testing.T) {
		source.set([]rollup.DueItem{dueItem("r1", due, true)})
		assert.Equal(t, 1, r.Poll(context.Background()))
		events := pub.all()
		require.Len(t, events, 3)
		assert.Equal(t, true, events[2].Payload["overdue"])
	})

	t.Run("moved due date is announced again", func(t *testing.T) {
		source.set([]rollup.DueItem{dueItem("r2", due.Add(48*time.Hour), false)})
		assert.Equal(t, 1, r.Poll(context.Background()))
	})
}

func TestDueReminder_ForgetsRecordsLeavingTheList(t *testing.T) {
	due := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	source := &stubSource{items: []rollup.DueItem{
		dueItem("r1", due, false),
		dueItem("r2", due, false),
	}}
	pub := &capturePublisher{}
	r := NewDueReminder(source, pub, time.Minute, zap.NewNop())

	require.Equal(t, 2, r.Poll(context.Background()))
	assert.Len(t, r.sent, 2)

	source.set([]rollup.DueItem{dueItem("r1", due, false)})
	assert.Equal(t, 0, r.Poll(context.Background()))
	assert.Len(t, r.sent, 1, "r2 left the due list")

	source.set([]rollup.DueItem{dueItem("r1", due, true)})
	assert.Equal(t, 1, r.Poll(context.Background()))
	assert.Len(t, r.sent, 1, "the pre-overdue key is dropped")

	source.set(nil)
	assert.Equal(t, 0, r.Poll(context.Background()))
	assert.Empty(t, r.sent)
}

func TestDueReminder_PollSourceError(t *testing.T) {
	source := &stubSource{err: errors.New("db down")}
	pub := &capturePublisher{}
	r := NewDueReminder(source, pub, time.Minute, zap.NewNop())
	r.sent["r1|0|false"] = true

	assert.Equal(t, 0, r.Poll(context.Background()))
	assert.Empty(t, pub.all())
	assert.Len(t, r.sent, 1, "a failed poll keeps what was already announced")
}

func TestDueReminder_StartStop(t *testing.T) {
	source := &stubSource{}
	r := NewDueReminder(source, &capturePublisher{}, 10*time.Millisecond, zap.NewNop())

	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()), "second start should fail")

	assert.Eventually(t, func() bool { return source.callCount() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Stop())
	calls := source.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, source.callCount(), "no polls after stop")

	require.NoError(t, r.Stop(), "stop is idempotent")
}

type fakeWorker struct {
	name     string
	startErr error
	stopErr  error
	started  bool
	stopped  bool
}

func (w *fakeWorker) Start(ctx context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}
	w.started = true
	return nil
}

func (w *fakeWorker) Stop() error {
	w.stopped = true
	return w.stopErr
}

func (w *fakeWorker) Name() string { return w.name }

func TestManager(t *testing.T) {
	m := NewManager(zap.NewNop())
	ok := &fakeWorker{name: "ok"}
	broken := &fakeWorker{name: "broken", startErr: errors.New("boom")}
	m.Register(ok)
	m.Register(broken)
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.True(t, ok.started)
	assert.False(t, broken.started)
	assert.Error(t, m.StartAll(context.Background()))

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.True(t, ok.stopped)

	require.NoError(t, m.StopAll(), "stopping twice is a no-op")
}

func TestManager_StopError(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Register(&fakeWorker{name: "sticky", stopErr: errors.New("stuck")})

	require.NoError(t, m.StartAll(context.Background()))
	err := m.StopAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 workers")
}
