package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/record-review/internal/application/dispatcher"
	"github.com/garyjia/record-review/internal/application/port"
	"github.com/garyjia/record-review/internal/domain/approver"
	"github.com/garyjia/record-review/internal/domain/classification"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/garyjia/record-review/internal/domain/event"
	"github.com/garyjia/record-review/internal/domain/lifecycle"
	"github.com/garyjia/record-review/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateRecordInput is the payload for a new draft record
type CreateRecordInput struct {
	Type          string            `json:"record_type" validate:"required,record_type"`
	Title         string            `json:"title" validate:"max=200"`
	MonetaryValue *decimal.Decimal  `json:"monetary_value"`
	Category      string            `json:"category" validate:"max=64"`
	Code          string            `json:"code" validate:"omitempty,accounting_code"`
	Branch        string            `json:"branch" validate:"max=64"`
	Region        string            `json:"region" validate:"max=64"`
	DueAt         *time.Time        `json:"due_at"`
	Approvers     map[string]string `json:"approvers" validate:"omitempty,dive,keys,approver_role,endkeys,required"`
}

// TransitionInput requests a status change
type TransitionInput struct {
	Status  string `json:"status" validate:"required,record_status"`
	Comment string `json:"comment" validate:"max=2000"`
}

// RecordService orchestrates load, pure lifecycle computation and conditional save
type RecordService interface {
	Create(ctx context.Context, actor entity.Actor, input CreateRecordInput) (*entity.Record, error)
	Get(ctx context.Context, id string) (*entity.Record, error)
	List(ctx context.Context, query port.ListQuery) ([]*entity.Record, error)
	AssignApprover(ctx context.Context, actor entity.Actor, id string, role entity.ApproverRole, approverID string) (*entity.Record, error)
	Transition(ctx context.Context, actor entity.Actor, id string, input TransitionInput) (*entity.Record, error)
	Permitted(ctx context.Context, actor entity.Actor, id string) ([]entity.Status, error)
}

// RecordServiceConfig holds tunables for RecordService
type RecordServiceConfig struct {
	MaxRetries int // conditional save attempts after the first
}

type recordServiceImpl struct {
	repo       port.RecordRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	clock      port.Clock
	validate   *validator.Validate
	metrics    Metrics
	logger     Logger
	maxRetries int
}

// RecordServiceOption configures optional collaborators
type RecordServiceOption func(*recordServiceImpl)

// WithDispatcher delivers events to the notification collaborator
func WithDispatcher(d dispatcher.Dispatcher) RecordServiceOption {
	return func(s *recordServiceImpl) { s.dispatcher = d }
}

// WithClock overrides the server clock used for ledger timestamps
func WithClock(c port.Clock) RecordServiceOption {
	return func(s *recordServiceImpl) { s.clock = c }
}

// WithMetrics records counters for created records and transitions
func WithMetrics(m Metrics) RecordServiceOption {
	return func(s *recordServiceImpl) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewRecordService creates a new RecordService
func NewRecordService(
	repo port.RecordRepository,
	txManager port.TransactionManager,
	logger Logger,
	cfg RecordServiceConfig,
	opts ...RecordServiceOption,
) RecordService {
	s := &recordServiceImpl{
		repo:       repo,
		txManager:  txManager,
		clock:      port.SystemClock,
		validate:   newValidator(),
		metrics:    noopMetrics{},
		logger:     logger,
		maxRetries: cfg.MaxRetries,
	}
	if s.maxRetries < 0 {
		s.maxRetries = 0
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new draft owned by actor
func (s *recordServiceImpl) Create(ctx context.Context, actor entity.Actor, input CreateRecordInput) (*entity.Record, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationError(err))
	}

	now := s.clock.Now()
	rec := entity.NewDraft(uuid.NewString(), entity.RecordType(input.Type), actor.ID, now)
	rec.Title = utils.SanitizeString(input.Title)
	rec.MonetaryValue = input.MonetaryValue
	rec.Branch = input.Branch
	rec.Region = input.Region
	rec.DueAt = input.DueAt
	rec.Category, rec.Code = resolveCategory(input.Category, input.Code)

	for role, id := range input.Approvers {
		assigned, err := approver.Assign(rec, entity.ApproverRole(role), id)
		if err != nil {
			return nil, err
		}
		rec = assigned
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	if err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.repo.Create(txCtx, rec)
	}); err != nil {
		s.logger.Error("Failed to create record", "error", err, "record_type", rec.Type)
		return nil, fmt.Errorf("create record: %w", err)
	}

	s.metrics.RecordCreated(string(rec.Type))
	s.logger.Info("Record created", "record_id", rec.ID, "record_type", rec.Type, "owner_id", rec.OwnerID)
	s.publish(ctx, event.NewRecordEvent(event.TypeRecordCreated, rec, actor, now))

	return rec, nil
}

// resolveCategory derives whichever of category and code is missing from the other
func resolveCategory(category, code string) (string, string) {
	switch {
	case category == "" && code == "":
		return "", ""
	case category == "":
		return string(classification.Classify(code)), code
	case code == "":
		c := classification.Parse(category)
		if base, ok := classification.CategoryToCode(c); ok {
			return string(c), fmt.Sprintf("%d", base)
		}
		return string(c), ""
	default:
		return string(classification.Resolve(category, code)), code
	}
}

// Get loads one record
func (s *recordServiceImpl) Get(ctx context.Context, id string) (*entity.Record, error) {
	rec, err := s.repo.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, port.ErrNotFound) {
			s.logger.Error("Failed to load record", "error", err, "record_id", id)
		}
		return nil, err
	}
	return rec, nil
}

// List returns records matching query
func (s *recordServiceImpl) List(ctx context.Context, query port.ListQuery) ([]*entity.Record, error) {
	records, err := s.repo.List(ctx, query)
	if err != nil {
		s.logger.Error("Failed to list records", "error", err)
		return nil, err
	}
	return records, nil
}

// AssignApprover binds a role while the record is Draft or Reopened. Only the owner or an admin may do so.
func (s *recordServiceImpl) AssignApprover(ctx context.Context, actor entity.Actor, id string, role entity.ApproverRole, approverID string) (*entity.Record, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, "assign_approver", id, func(current *entity.Record) (*entity.Record, *event.Event, error) {
		if actor.ID != current.OwnerID && !actor.IsAdmin() {
			return nil, nil, fmt.Errorf("%w: only the owner or an admin may assign approvers", entity.ErrActorNotPermitted)
		}
		updated, err := approver.Assign(current, role, approverID)
		if err != nil {
			return nil, nil, err
		}
		evt := event.NewRecordEvent(event.TypeRecordApproverAssigned, updated, actor, s.clock.Now()).
			WithPayload("role", string(role)).
			WithPayload("approver_id", approverID)
		return updated, evt, nil
	})
}

// Transition applies a requested status with a server-assigned timestamp
func (s *recordServiceImpl) Transition(ctx context.Context, actor entity.Actor, id string, input TransitionInput) (*entity.Record, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationError(err))
	}
	requested := entity.Status(input.Status)
	comment := utils.SanitizeString(input.Comment)

	rec, err := s.mutate(ctx, "transition", id, func(current *entity.Record) (*entity.Record, *event.Event, error) {
		res, err := lifecycle.Transition(current, requested, actor, comment, s.timestampFor(current))
		if err != nil {
			s.metrics.TransitionRejected(string(current.Type), Reason(err))
			return nil, nil, err
		}
		return res.Record, res.Event, nil
	})
	if err != nil {
		return nil, err
	}

	last, _ := rec.LastEntry()
	s.metrics.TransitionApplied(string(rec.Type), string(last.PreviousStatus), string(last.Status))
	return rec, nil
}

// timestampFor never hands the ledger a time before its tail, even if the
// server clock stepped backwards.
func (s *recordServiceImpl) timestampFor(rec *entity.Record) time.Time {
	now := s.clock.Now()
	if last, ok := rec.LastEntry(); ok && now.Before(last.Timestamp) {
		return last.Timestamp
	}
	return now
}

// Permitted lists the statuses actor may request on the record now
func (s *recordServiceImpl) Permitted(ctx context.Context, actor entity.Actor, id string) ([]entity.Status, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	permitted := lifecycle.Permitted(rec, actor)
	if permitted == nil {
		permitted = []entity.Status{}
	}
	return permitted, nil
}

type mutation func(current *entity.Record) (*entity.Record, *event.Event, error)

// mutate runs load, compute, conditional save. On a version conflict the
// record is reloaded and the pure computation is run again.
func (s *recordServiceImpl) mutate(ctx context.Context, operation, id string, fn mutation) (*entity.Record, error) {
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		current, err := s.repo.Load(ctx, id)
		if err != nil {
			return nil, err
		}

		updated, evt, err := fn(current)
		if err != nil {
			s.logger.Info("Record change refused",
				"operation", operation,
				"record_id", id,
				"status", current.Status,
				"reason", Reason(err),
			)
			return nil, err
		}

		err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
			return s.repo.Save(txCtx, updated, current.Version)
		})
		if errors.Is(err, port.ErrConflict) {
			s.metrics.ConflictRetried(operation)
			s.logger.Info("Version conflict, retrying",
				"operation", operation,
				"record_id", id,
				"attempt", attempt+1,
			)
			continue
		}
		if err != nil {
			s.logger.Error("Failed to save record", "error", err, "operation", operation, "record_id", id)
			return nil, fmt.Errorf("save record: %w", err)
		}

		updated.Version = current.Version + 1
		s.logger.Info("Record updated",
			"operation", operation,
			"record_id", id,
			"previous_status", current.Status,
			"status", updated.Status,
			"version", updated.Version,
		)
		s.publish(ctx, evt)
		return updated, nil
	}

	return nil, fmt.Errorf("%w: %s on %s gave up after %d attempts", port.ErrConflict, operation, id, s.maxRetries+1)
}

// publish hands the event to the notification collaborator. Delivery never
// affects the outcome of the change that produced it.
func (s *recordServiceImpl) publish(ctx context.Context, evt *event.Event) {
	if s.dispatcher == nil || evt == nil {
		return
	}
	s.dispatcher.DispatchAsync(context.WithoutCancel(ctx), evt)
}
