package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/record-review/internal/application/port"
	"github.com/garyjia/record-review/internal/application/service"
	"github.com/garyjia/record-review/internal/domain/entity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	recordService service.RecordService
	reportService service.ReportService
	exporter      Exporter
	health        HealthChecker
	logger        Logger
}

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	recordService service.RecordService,
	reportService service.ReportService,
	exporter Exporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		recordService: recordService,
		reportService: reportService,
		exporter:      exporter,
		logger:        logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Database  string `json:"database,omitempty"`
}

// RecordResponse represents a record in API responses
type RecordResponse struct {
	ID            string                `json:"id"`
	Type          string                `json:"record_type"`
	Title         string                `json:"title,omitempty"`
	OwnerID       string                `json:"owner_id"`
	Status        string                `json:"status"`
	Approvers     map[string]string     `json:"approvers"`
	MonetaryValue *decimal.Decimal      `json:"monetary_value,omitempty"`
	Category      string                `json:"category,omitempty"`
	Code          string                `json:"code,omitempty"`
	Branch        string                `json:"branch,omitempty"`
	Region        string                `json:"region,omitempty"`
	DueAt         *string               `json:"due_at,omitempty"`
	Version       int64                 `json:"version"`
	CreatedAt     string                `json:"created_at"`
	History       []HistoryItemResponse `json:"history"`
}

// HistoryItemResponse represents one ledger entry in API responses
type HistoryItemResponse struct {
	ActorID        string `json:"actor_id"`
	ActorName      string `json:"actor_name,omitempty"`
	ActorRole      string `json:"actor_role,omitempty"`
	Action         string `json:"action"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"status"`
	Comment        string `json:"comment,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// ListRecordsRequest represents query parameters for listing records
type ListRecordsRequest struct {
	Types    []string `form:"type"`
	Statuses []string `form:"status"`
	OwnerID  string   `form:"owner"`
	Branch   string   `form:"branch"`
	Region   string   `form:"region"`
	Limit    int      `form:"limit"`
	Offset   int      `form:"offset"`
}

// AssignApproverRequest binds an actor to an approver role
type AssignApproverRequest struct {
	ActorID string `json:"actor_id"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Health(ctx); err != nil {
			h.logger.Error("Health check failed", "error", err)
			response.Status = "unhealthy"
			response.Database = "unreachable"
			c.JSON(http.StatusServiceUnavailable, Response{
				Success: false,
				Data:    response,
				Code:    "unavailable",
			})
			return
		}
		response.Database = "ok"
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateRecord handles POST /api/records
func (h *Handlers) CreateRecord(c *gin.Context) {
	var input service.CreateRecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	record, err := h.recordService.Create(c.Request.Context(), actorFrom(c), input)
	if err != nil {
		h.respondError(c, "failed to create record", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    toRecordResponse(record),
	})
}

// ListRecords handles GET /api/records
func (h *Handlers) ListRecords(c *gin.Context) {
	var req ListRecordsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}

	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	query := port.ListQuery{
		OwnerID: req.OwnerID,
		Branch:  req.Branch,
		Region:  req.Region,
		Limit:   req.Limit,
		Offset:  req.Offset,
	}
	for _, t := range req.Types {
		query.Types = append(query.Types, entity.RecordType(strings.ToUpper(t)))
	}
	for _, s := range req.Statuses {
		query.Statuses = append(query.Statuses, entity.Status(strings.ToUpper(s)))
	}

	records, err := h.recordService.List(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, "failed to retrieve records", err)
		return
	}

	responseRecords := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		responseRecords = append(responseRecords, toRecordResponse(record))
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    responseRecords,
	})
}

// GetRecord handles GET /api/records/:id
func (h *Handlers) GetRecord(c *gin.Context) {
	record, err := h.recordService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "failed to get record", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRecordResponse(record),
	})
}

// AssignApprover handles PUT /api/records/:id/approvers/:role
func (h *Handlers) AssignApprover(c *gin.Context) {
	var req AssignApproverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	role := entity.ApproverRole(strings.ToLower(c.Param("role")))
	record, err := h.recordService.AssignApprover(c.Request.Context(), actorFrom(c), c.Param("id"), role, req.ActorID)
	if err != nil {
		h.respondError(c, "failed to assign approver", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRecordResponse(record),
	})
}

// Transition handles POST /api/records/:id/transitions
func (h *Handlers) Transition(c *gin.Context) {
	var input service.TransitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}
	input.Status = strings.ToUpper(strings.TrimSpace(input.Status))

	record, err := h.recordService.Transition(c.Request.Context(), actorFrom(c), c.Param("id"), input)
	if err != nil {
		h.respondError(c, "failed to transition record", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toRecordResponse(record),
	})
}

// PermittedStatuses handles GET /api/records/:id/permitted
func (h *Handlers) PermittedStatuses(c *gin.Context) {
	statuses, err := h.recordService.Permitted(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, "failed to compute permitted statuses", err)
		return
	}

	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    out,
	})
}

// toRecordResponse converts domain entity to API response
func toRecordResponse(record *entity.Record) RecordResponse {
	resp := RecordResponse{
		ID:            record.ID,
		Type:          string(record.Type),
		Title:         record.Title,
		OwnerID:       record.OwnerID,
		Status:        string(record.Status),
		Approvers:     make(map[string]string, len(record.Approvers)),
		MonetaryValue: record.MonetaryValue,
		Category:      record.Category,
		Code:          record.Code,
		Branch:        record.Branch,
		Region:        record.Region,
		Version:       record.Version,
		CreatedAt:     record.CreatedAt.Format(time.RFC3339),
		History:       make([]HistoryItemResponse, 0, len(record.History)),
	}

	for role, id := range record.Approvers {
		resp.Approvers[string(role)] = id
	}

	if record.DueAt != nil {
		dueAt := record.DueAt.Format(time.RFC3339)
		resp.DueAt = &dueAt
	}

	for _, e := range record.History {
		resp.History = append(resp.History, HistoryItemResponse{
			ActorID:        e.ActorID,
			ActorName:      e.ActorName,
			ActorRole:      e.ActorRole,
			Action:         e.Action,
			PreviousStatus: string(e.PreviousStatus),
			Status:         string(e.Status),
			Comment:        e.Comment,
			Timestamp:      e.Timestamp.Format(time.RFC3339Nano),
		})
	}

	return resp
}
