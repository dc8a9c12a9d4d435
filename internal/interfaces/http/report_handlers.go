package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/record-review/internal/application/service"
	"github.com/garyjia/record-review/internal/infrastructure/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Exporter renders a dashboard report as a workbook
type Exporter interface {
	Write(w io.Writer, report export.Report) error
}

// Rollup handles GET /api/rollups
func (h *Handlers) Rollup(c *gin.Context) {
	query, ok := h.bindRollupQuery(c)
	if !ok {
		return
	}

	result, err := h.reportService.Rollup(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, "failed to compute rollup", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// BudgetReport handles GET /api/budgets
func (h *Handlers) BudgetReport(c *gin.Context) {
	query, ok := h.bindRollupQuery(c)
	if !ok {
		return
	}

	lines, err := h.reportService.BudgetReport(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, "failed to compute budget report", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    lines,
	})
}

// DueSoon handles GET /api/due-soon
func (h *Handlers) DueSoon(c *gin.Context) {
	query, ok := h.bindRollupQuery(c)
	if !ok {
		return
	}

	items, err := h.reportService.DueSoon(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, "failed to list due records", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    items,
	})
}

// ExportRollup handles GET /api/rollups/export
func (h *Handlers) ExportRollup(c *gin.Context) {
	query, ok := h.bindRollupQuery(c)
	if !ok {
		return
	}

	dash, err := h.reportService.Dashboard(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, "failed to compute dashboard", err)
		return
	}

	// render fully before writing headers so a failure can still return JSON
	var buf bytes.Buffer
	err = h.exporter.Write(&buf, export.Report{
		Rollup:      dash.Rollup,
		Budget:      dash.Budget,
		DueSoon:     dash.DueSoon,
		GeneratedAt: dash.GeneratedAt,
	})
	if err != nil {
		h.respondError(c, "failed to export rollup", err)
		return
	}

	filename := fmt.Sprintf("rollup-%s.xlsx", dash.GeneratedAt.UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handlers) bindRollupQuery(c *gin.Context) (service.RollupQuery, bool) {
	var query service.RollupQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return query, false
	}
	for i, t := range query.Types {
		query.Types[i] = strings.ToUpper(t)
	}
	for i, s := range query.Statuses {
		query.Statuses[i] = strings.ToUpper(s)
	}
	return query, true
}
