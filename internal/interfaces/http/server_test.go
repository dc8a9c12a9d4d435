package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/record-review/internal/application/port"
	"github.com/garyjia/record-review/internal/application/service"
	"github.com/garyjia/record-review/internal/domain/entity"
	"github.com/garyjia/record-review/internal/domain/rollup"
	"github.com/garyjia/record-review/internal/infrastructure/export"
)

type stubRecordService struct {
	create     func(actor entity.Actor, in service.CreateRecordInput) (*entity.Record, error)
	get        func(id string) (*entity.Record, error)
	list       func(q port.ListQuery) ([]*entity.Record, error)
	assign     func(actor entity.Actor, id string, role entity.ApproverRole, approverID string) (*entity.Record, error)
	transition func(actor entity.Actor, id string, in service.TransitionInput) (*entity.Record, error)
	permitted  func(actor entity.Actor, id string) ([]entity.Status, error)
}

func (s *stubRecordService) Create(_ context.Context, actor entity.Actor, in service.CreateRecordInput) (*entity.Record, error) {
	return s.create(actor, in)
}

func (s *stubRecordService) Get(_ context.Context, id string) (*entity.Record, error) {
	return s.get(id)
}

func (s *stubRecordService) List(_ context.Context, q port.ListQuery) ([]*entity.Record, error) {
	return s.list(q)
}

func (s *stubRecordService) AssignApprover(_ context.Context, actor entity.Actor, id string, role entity.ApproverRole, approverID string) (*entity.Record, error) {
	return s.assign(actor, id, role, approverID)
}

func (s *stubRecordService) Transition(_ context.Context, actor entity.Actor, id string, in service.TransitionInput) (*entity.Record, error) {
	return s.transition(actor, id, in)
}

func (s *stubRecordService) Permitted(_ context.Context, actor entity.Actor, id string) ([]entity.Status, error) {
	return s.permitted(actor, id)
}

type stubReportService struct {
	rollup func(q service.RollupQuery) (rollup.Result, error)
	budget func(q service.RollupQuery) ([]rollup.BudgetLine, error)
	due    func(q service.RollupQuery) ([]rollup.DueItem, error)
	dash   func(q service.RollupQuery) (*service.Dashboard, error)
}

func (s *stubReportService) Rollup(_ context.Context, q service.RollupQuery) (rollup.Result, error) {
	return s.rollup(q)
}

func (s *stubReportService) BudgetReport(_ context.Context, q service.RollupQuery) ([]rollup.BudgetLine, error) {
	return s.budget(q)
}

func (s *stubReportService) DueSoon(_ context.Context, q service.RollupQuery) ([]rollup.DueItem, error) {
	return s.due(q)
}

func (s *stubReportService) Dashboard(_ context.Context, q service.RollupQuery) (*service.Dashboard, error) {
	return s.dash(q)
}

type stubExporter struct {
	got export.Report
	err error
}

func (e *stubExporter) Write(w io.Writer, report export.Report) error {
	e.got = report
	if e.err != nil {
		return e.err
	}
	_, err := w.Write([]byte("PK-workbook"))
	return err
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

var created = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func sampleRecord() *entity.Record {
	r := entity.NewDraft("rec-1", entity.RecordTypeTrip, "owner-1", created)
	r.Approvers[entity.RoleVerifier] = "u-ver"
	v := decimal.RequireFromString("880.00")
	r.MonetaryValue = &v
	r.Version = 1
	return r
}

func newTestServer(records *stubRecordService, reports *stubReportService, exp Exporter) *Server {
	cfg := DefaultServerConfig()
	cfg.Mode = gin.TestMode
	if reports == nil {
		reports = &stubReportService{}
	}
	if exp == nil {
		exp = &stubExporter{}
	}
	return NewServer(cfg, records, reports, exp, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	}), nopLogger{})
}

func do(t *testing.T, s *Server, method, path string, body interface{}, actor *entity.Actor) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req.Header.Set(HeaderActorID, actor.ID)
		req.Header.Set(HeaderActorName, actor.Name)
		req.Header.Set(HeaderActorRole, actor.Role)
	}

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

var owner = &entity.Actor{ID: "owner-1", Name: "Olga", Role: "Staff"}

func TestServer_Health(t *testing.T) {
	s := newTestServer(&stubRecordService{}, nil, nil)

	w := do(t, s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)
}

type healthFunc func(ctx context.Context) error

func (f healthFunc) Health(ctx context.Context) error { return f(ctx) }

func TestServer_HealthWithDatabase(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Mode = gin.TestMode

	t.Run("reachable", func(t *testing.T) {
		s := NewServer(cfg, &stubRecordService{}, &stubReportService{}, &stubExporter{}, nil, nopLogger{},
			WithHealthCheck(healthFunc(func(context.Context) error { return nil })))

		w := do(t, s, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"ok"`)
	})

	t.Run("unreachable", func(t *testing.T) {
		s := NewServer(cfg, &stubRecordService{}, &stubReportService{}, &stubExporter{}, nil, nopLogger{},
			WithHealthCheck(healthFunc(func(context.Context) error { return fmt.Errorf("database is closed") })))

		w := do(t, s, http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		resp := decode(t, w)
		assert.False(t, resp.Success)
		assert.Equal(t, "unavailable", resp.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(&stubRecordService{}, nil, nil)

	w := do(t, s, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics", w.Body.String())
}

func TestServer_RequiresIdentity(t *testing.T) {
	s := newTestServer(&stubRecordService{}, nil, nil)

	w := do(t, s, http.MethodGet, "/api/records/rec-1", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", decode(t, w).Code)
}

func TestServer_CreateRecord(t *testing.T) {
	var gotActor entity.Actor
	var gotInput service.CreateRecordInput
	s := newTestServer(&stubRecordService{
		create: func(actor entity.Actor, in service.CreateRecordInput) (*entity.Record, error) {
			gotActor, gotInput = actor, in
			return sampleRecord(), nil
		},
	}, nil, nil)

	w := do(t, s, http.MethodPost, "/api/records", map[string]interface{}{
		"record_type":    "TRIP",
		"title":          "Guangzhou fair",
		"monetary_value": "880.00",
		"approvers":      map[string]string{"verifier": "u-ver"},
	}, owner)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "owner-1", gotActor.ID)
	assert.Equal(t, "staff", gotActor.Role, "role header is normalised")
	assert.Equal(t, "TRIP", gotInput.Type)
	require.NotNil(t, gotInput.MonetaryValue)
	assert.True(t, gotInput.MonetaryValue.Equal(decimal.NewFromInt(880)))

	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, "rec-1", data["id"])
	assert.Equal(t, "DRAFT", data["status"])
	assert.Equal(t, "880", data["monetary_value"])
}

func TestServer_CreateRecord_BadJSON(t *testing.T) {
	s := newTestServer(&stubRecordService{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/records", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderActorID, "owner-1")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_ListRecords(t *testing.T) {
	var got port.ListQuery
	s := newTestServer(&stubRecordService{
		list: func(q port.ListQuery) ([]*entity.Record, error) {
			got = q
			return []*entity.Record{sampleRecord()}, nil
		},
	}, nil, nil)

	w := do(t, s, http.MethodGet, "/api/records?type=trip&status=draft&branch=SH&limit=500", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []entity.RecordType{entity.RecordTypeTrip}, got.Types)
	assert.Equal(t, []entity.Status{entity.StatusDraft}, got.Statuses)
	assert.Equal(t, "SH", got.Branch)
	assert.Equal(t, 20, got.Limit, "oversized limit falls back to the default")
	assert.Len(t, decode(t, w).Data, 1)
}

func TestServer_Transition(t *testing.T) {
	var got service.TransitionInput
	s := newTestServer(&stubRecordService{
		transition: func(actor entity.Actor, id string, in service.TransitionInput) (*entity.Record, error) {
			got = in
			r := sampleRecord()
			r.Status = entity.StatusSubmitted
			r.History = []entity.HistoryEntry{{
				ActorID: actor.ID, Action: entity.ActionSubmit,
				PreviousStatus: entity.StatusDraft, Status: entity.StatusSubmitted,
				Timestamp: created.Add(time.Minute),
			}}
			return r, nil
		},
	}, nil, nil)

	w := do(t, s, http.MethodPost, "/api/records/rec-1/transitions", map[string]string{"status": " submitted "}, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "SUBMITTED", got.Status)

	data := decode(t, w).Data.(map[string]interface{})
	history := data["history"].([]interface{})
	require.Len(t, history, 1)
	assert.Equal(t, "SUBMIT", history[0].(map[string]interface{})["action"])
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantTag  string
	}{
		{fmt.Errorf("%w: from APPROVED", entity.ErrRecordTerminal), http.StatusConflict, "record_terminal"},
		{fmt.Errorf("%w: DRAFT to APPROVED", entity.ErrInvalidTransition), http.StatusConflict, "invalid_transition"},
		{fmt.Errorf("%w: verifier", entity.ErrMissingApprovers), http.StatusUnprocessableEntity, "missing_approvers"},
		{entity.ErrMissingComment, http.StatusUnprocessableEntity, "missing_comment"},
		{fmt.Errorf("%w: %w", service.ErrValidation, entity.ErrUnknownRole), http.StatusUnprocessableEntity, "unknown_role"},
		{fmt.Errorf("%w: not the verifier", entity.ErrActorNotPermitted), http.StatusForbidden, "actor_not_permitted"},
		{fmt.Errorf("%w: rec-1", port.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: retries exhausted", port.ErrConflict), http.StatusConflict, "conflict"},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.wantTag, func(t *testing.T) {
			s := newTestServer(&stubRecordService{
				transition: func(entity.Actor, string, service.TransitionInput) (*entity.Record, error) {
					return nil, tt.err
				},
			}, nil, nil)

			w := do(t, s, http.MethodPost, "/api/records/rec-1/transitions",
				map[string]string{"status": "APPROVED"}, owner)
			assert.Equal(t, tt.wantCode, w.Code)

			resp := decode(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantTag, resp.Code)
			if tt.wantCode == http.StatusInternalServerError {
				assert.NotContains(t, resp.Error, "disk on fire")
			}
		})
	}
}

func TestServer_AssignApprover(t *testing.T) {
	var gotRole entity.ApproverRole
	var gotID string
	s := newTestServer(&stubRecordService{
		assign: func(actor entity.Actor, id string, role entity.ApproverRole, approverID string) (*entity.Record, error) {
			gotRole, gotID = role, approverID
			return sampleRecord(), nil
		},
	}, nil, nil)

	w := do(t, s, http.MethodPut, "/api/records/rec-1/approvers/Verifier", map[string]string{"actor_id": "u-ver"}, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.RoleVerifier, gotRole)
	assert.Equal(t, "u-ver", gotID)
}

func TestServer_Permitted(t *testing.T) {
	s := newTestServer(&stubRecordService{
		permitted: func(actor entity.Actor, id string) ([]entity.Status, error) {
			return []entity.Status{entity.StatusSubmitted, entity.StatusCancelled}, nil
		},
	}, nil, nil)

	w := do(t, s, http.MethodGet, "/api/records/rec-1/permitted", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"SUBMITTED", "CANCELLED"}, decode(t, w).Data)
}

func TestServer_Rollup(t *testing.T) {
	var got service.RollupQuery
	reports := &stubReportService{
		rollup: func(q service.RollupQuery) (rollup.Result, error) {
			got = q
			return rollup.Result{GroupBy: rollup.GroupByStatus, Total: 2, TotalValue: decimal.NewFromInt(10)}, nil
		},
	}
	s := newTestServer(&stubRecordService{}, reports, nil)

	w := do(t, s, http.MethodGet, "/api/rollups?type=trip&type=tender&group_by=super_group&from=2026-01-01", nil, owner)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"TRIP", "TENDER"}, got.Types)
	assert.Equal(t, "super_group", got.GroupBy)
	assert.True(t, got.From.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) || got.From.Format("2006-01-02") == "2026-01-01")
}

func TestServer_RollupValidationError(t *testing.T) {
	reports := &stubReportService{
		rollup: func(q service.RollupQuery) (rollup.Result, error) {
			return rollup.Result{}, fmt.Errorf("%w: %w", service.ErrValidation, rollup.ErrUnknownGroupBy)
		},
	}
	s := newTestServer(&stubRecordService{}, reports, nil)

	w := do(t, s, http.MethodGet, "/api/rollups?group_by=color", nil, owner)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestServer_ExportRollup(t *testing.T) {
	generated := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	calls := 0
	reports := &stubReportService{
		dash: func(q service.RollupQuery) (*service.Dashboard, error) {
			calls++
			return &service.Dashboard{
				Rollup:      rollup.Result{Total: 1},
				Budget:      []rollup.BudgetLine{{Category: "TRAVEL", Tier: rollup.TierLow}},
				DueSoon:     []rollup.DueItem{{RecordID: "tender-1"}},
				GeneratedAt: generated,
			}, nil
		},
	}
	exp := &stubExporter{}
	s := newTestServer(&stubRecordService{}, reports, exp)

	w := do(t, s, http.MethodGet, "/api/rollups/export", nil, owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "rollup-20260506-070809.xlsx")
	assert.Equal(t, "PK-workbook", w.Body.String())

	assert.Equal(t, 1, calls, "one snapshot feeds every sheet")
	assert.Equal(t, 1, exp.got.Rollup.Total)
	assert.Len(t, exp.got.Budget, 1)
	assert.Len(t, exp.got.DueSoon, 1)
	assert.Equal(t, generated, exp.got.GeneratedAt)
}

func TestServer_ExportRollupFailure(t *testing.T) {
	reports := &stubReportService{
		dash: func(service.RollupQuery) (*service.Dashboard, error) {
			return &service.Dashboard{GeneratedAt: created}, nil
		},
	}
	s := newTestServer(&stubRecordService{}, reports, &stubExporter{err: fmt.Errorf("zip failed")})

	w := do(t, s, http.MethodGet, "/api/rollups/export", nil, owner)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal", decode(t, w).Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(&stubRecordService{}, nil, nil)

	w := do(t, s, http.MethodOptions, "/api/records", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), HeaderActorID)
}
