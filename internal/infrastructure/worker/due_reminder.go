package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/record-review/internal/application/service"
	"github.com/garyjia/record-review/internal/domain/event"
	"github.com/garyjia/record-review/internal/domain/rollup"
)

// DueSource lists records that are due soon
type DueSource interface {
	DueSoon(ctx context.Context, query service.RollupQuery) ([]rollup.DueItem, error)
}

// Publisher delivers reminder events
type Publisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// DueReminder periodically publishes a record.due_soon event for every live
// record approaching its due date. Each (record, due date, overdue) key is
// announced once while it stays in the due list; keys that leave the list are
// forgotten, so memory is bounded by the current list.
type DueReminder struct {
	source    DueSource
	publisher Publisher
	logger    *zap.Logger
	interval  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	sent      map[string]bool
}

// NewDueReminder creates a reminder that polls every interval (default one hour)
func NewDueReminder(source DueSource, publisher Publisher, interval time.Duration, logger *zap.Logger) *DueReminder {
	if interval <= 0 {
		interval = time.Hour
	}
	return &DueReminder{
		source:    source,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
		sent:      make(map[string]bool),
	}
}

// Start launches the poll loop
func (r *DueReminder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return fmt.Errorf("due reminder is already running")
	}

	var loopCtx context.Context
	loopCtx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.isRunning = true

	r.logger.Info("DueReminder started", zap.Duration("interval", r.interval))

	go r.loop(loopCtx, r.done)
	return nil
}

// Stop cancels the poll loop and waits for it to exit
func (r *DueReminder) Stop() error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done

	r.logger.Info("DueReminder stopped")
	return nil
}

// Name returns the worker name
func (r *DueReminder) Name() string {
	return "DueReminder"
}

func (r *DueReminder) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Poll(ctx)
		}
	}
}

// Poll runs one reminder pass and returns the number of events published
func (r *DueReminder) Poll(ctx context.Context) int {
	items, err := r.source.DueSoon(ctx, service.RollupQuery{})
	if err != nil {
		r.logger.Error("Failed to list due records", zap.Error(err))
		return 0
	}

	now := r.now()
	published := 0

	r.mu.Lock()
	defer r.mu.Unlock()

	current := make(map[string]bool, len(items))
	for _, item := range items {
		key := fmt.Sprintf("%s|%d|%t", item.RecordID, item.DueAt.Unix(), item.Overdue)
		if current[key] {
			continue
		}
		current[key] = true
		if r.sent[key] {
			continue
		}

		evt := event.NewDueSoon(item.RecordID, item.Type, item.Status, item.DueAt, item.Overdue, now)
		r.publisher.DispatchAsync(ctx, evt)
		published++
	}
	r.sent = current

	if published > 0 {
		r.logger.Info("Due reminders published",
			zap.Int("due", len(items)),
			zap.Int("published", published))
	}
	return published
}
