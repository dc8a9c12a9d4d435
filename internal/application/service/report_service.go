package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/garyjia/record-review/internal/application/port"
	"github.com/garyjia/record-review/internal/domain/classification"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/garyjia/record-review/internal/domain/rollup"
	"github.com/garyjia/record-review/pkg/utils"
)

// RollupQuery selects the records a dashboard rollup covers
type RollupQuery struct {
	Types    []string  `form:"type" validate:"omitempty,dive,record_type"`
	Statuses []string  `form:"status" validate:"omitempty,dive,record_status"`
	GroupBy  string    `form:"group_by" validate:"omitempty,group_by"`
	Branch   string    `form:"branch"`
	Region   string    `form:"region"`
	From     time.Time `form:"from" time_format:"2006-01-02"`
	To       time.Time `form:"to" time_format:"2006-01-02"`
}

// ReportService computes dashboard figures from one snapshot of the stored records
type ReportService interface {
	Rollup(ctx context.Context, query RollupQuery) (rollup.Result, error)
	BudgetReport(ctx context.Context, query RollupQuery) ([]rollup.BudgetLine, error)
	DueSoon(ctx context.Context, query RollupQuery) ([]rollup.DueItem, error)
	// Dashboard computes all three views from a single read of the store
	Dashboard(ctx context.Context, query RollupQuery) (*Dashboard, error)
}

// Dashboard is the rollup, budget tiers and due list of one snapshot
type Dashboard struct {
	Rollup      rollup.Result
	Budget      []rollup.BudgetLine
	DueSoon     []rollup.DueItem
	GeneratedAt time.Time
}

// ReportServiceConfig holds budget ceilings and the due-soon window
type ReportServiceConfig struct {
	Ceilings      map[classification.Category]decimal.Decimal
	DueSoonWindow time.Duration
}

type reportServiceImpl struct {
	repo     port.RecordRepository
	clock    port.Clock
	validate *validator.Validate
	metrics  Metrics
	logger   Logger
	cfg      ReportServiceConfig
}

// NewReportService creates a new ReportService
func NewReportService(repo port.RecordRepository, logger Logger, cfg ReportServiceConfig, clock port.Clock, metrics Metrics) ReportService {
	if clock == nil {
		clock = port.SystemClock
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if cfg.DueSoonWindow <= 0 {
		cfg.DueSoonWindow = 7 * 24 * time.Hour
	}
	return &reportServiceImpl{
		repo:     repo,
		clock:    clock,
		validate: newValidator(),
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// Rollup groups the selected records
func (s *reportServiceImpl) Rollup(ctx context.Context, query RollupQuery) (rollup.Result, error) {
	records, filters, err := s.snapshot(ctx, query)
	if err != nil {
		return rollup.Result{}, err
	}
	return s.rollupOf(records, query.GroupBy, filters)
}

func (s *reportServiceImpl) rollupOf(records []*entity.Record, groupBy string, filters []rollup.Filter) (rollup.Result, error) {
	by, err := rollup.ParseGroupBy(groupBy)
	if err != nil {
		return rollup.Result{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return rollup.Compute(records, by, filters...)
}

// BudgetReport tiers approved spend against the configured category ceilings
func (s *reportServiceImpl) BudgetReport(ctx context.Context, query RollupQuery) ([]rollup.BudgetLine, error) {
	records, filters, err := s.snapshot(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.budgetOf(records, filters), nil
}

func (s *reportServiceImpl) budgetOf(records []*entity.Record, filters []rollup.Filter) []rollup.BudgetLine {
	lines := rollup.BudgetTiers(records, s.cfg.Ceilings, filters...)
	for _, line := range lines {
		remaining, _ := line.Remaining.Float64()
		s.metrics.BudgetObserved(string(line.Category), remaining, string(line.Tier))
		if line.Tier == rollup.TierOverBudget || line.Tier == rollup.TierLow {
			s.logger.Info("Budget running out",
				"category", line.Category,
				"tier", line.Tier,
				"remaining", line.Remaining.String(),
			)
		}
	}
	return lines
}

// DueSoon lists live records due within the configured window
func (s *reportServiceImpl) DueSoon(ctx context.Context, query RollupQuery) ([]rollup.DueItem, error) {
	records, filters, err := s.snapshot(ctx, query)
	if err != nil {
		return nil, err
	}
	return rollup.DueSoon(records, s.clock.Now(), s.cfg.DueSoonWindow, filters...), nil
}

// Dashboard reads the store once so every view agrees with the others
func (s *reportServiceImpl) Dashboard(ctx context.Context, query RollupQuery) (*Dashboard, error) {
	records, filters, err := s.snapshot(ctx, query)
	if err != nil {
		return nil, err
	}

	result, err := s.rollupOf(records, query.GroupBy, filters)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	return &Dashboard{
		Rollup:      result,
		Budget:      s.budgetOf(records, filters),
		DueSoon:     rollup.DueSoon(records, now, s.cfg.DueSoonWindow, filters...),
		GeneratedAt: now,
	}, nil
}

// snapshot loads every record once and turns the query into rollup filters
func (s *reportServiceImpl) snapshot(ctx context.Context, query RollupQuery) ([]*entity.Record, []rollup.Filter, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrValidation, utils.FormatValidationError(err))
	}

	records, err := s.repo.List(ctx, port.ListQuery{})
	if err != nil {
		s.logger.Error("Failed to load records for rollup", "error", err)
		return nil, nil, err
	}

	return records, Filters(query), nil
}

// Filters converts a query into rollup predicates
func Filters(query RollupQuery) []rollup.Filter {
	var filters []rollup.Filter
	if len(query.Types) > 0 {
		types := make([]entity.RecordType, len(query.Types))
		for i, t := range query.Types {
			types[i] = entity.RecordType(t)
		}
		filters = append(filters, rollup.ByType(types...))
	}
	if len(query.Statuses) > 0 {
		statuses := make([]entity.Status, len(query.Statuses))
		for i, st := range query.Statuses {
			statuses[i] = entity.Status(st)
		}
		filters = append(filters, rollup.ByStatus(statuses...))
	}
	if query.Branch != "" {
		filters = append(filters, rollup.ByBranch(query.Branch))
	}
	if query.Region != "" {
		filters = append(filters, rollup.ByRegion(query.Region))
	}
	if !query.From.IsZero() || !query.To.IsZero() {
		filters = append(filters, rollup.CreatedBetween(query.From, query.To))
	}
	return filters
}
