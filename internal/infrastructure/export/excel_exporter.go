// Package export writes dashboard rollups to Excel workbooks.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/record-review/internal/domain/rollup"
)

// Sheet names in the exported workbook
const (
	SheetSummary     = "汇总"
	SheetSuperGroups = "状态分组"
	SheetBudget      = "预算"
	SheetDueSoon     = "即将到期"
)

// Report is everything one export covers
type Report struct {
	Rollup      rollup.Result
	Budget      []rollup.BudgetLine
	DueSoon     []rollup.DueItem
	GeneratedAt time.Time
}

// ExcelExporter renders reports as .xlsx
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// Write renders the report and streams the workbook to w
func (e *ExcelExporter) Write(w io.Writer, report Report) error {
	f, err := e.build(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Save renders the report to outputPath
func (e *ExcelExporter) Save(outputPath string, report Report) error {
	f, err := e.build(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}

	e.logger.Info("Rollup exported", zap.String("output_path", outputPath))
	return nil
}

func (e *ExcelExporter) build(report Report) (*excelize.File, error) {
	f := excelize.NewFile()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// NewFile starts with Sheet1; rename it rather than leave an empty sheet
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetSuperGroups, SheetBudget, SheetDueSoon} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now().UTC()
	}

	s := &sheetWriter{f: f, header: header, logger: e.logger}

	// summary: one row per group, then totals
	s.start(SheetSummary)
	s.row("生成时间", generated.Format("2006-01-02 15:04:05"))
	s.row("分组方式", string(report.Rollup.GroupBy))
	s.row()
	s.headerRow("分组", "数量", "金额")
	for _, g := range report.Rollup.Groups {
		s.row(g.Key, g.Count, money(g.Sum))
	}
	s.row("合计", report.Rollup.Total, money(report.Rollup.TotalValue))
	s.row("大写金额", AmountInWords(report.Rollup.TotalValue))

	s.start(SheetSuperGroups)
	s.headerRow("状态分组", "数量", "金额")
	for _, g := range report.Rollup.SuperGroups {
		s.row(g.Key, g.Count, money(g.Sum))
	}

	s.start(SheetBudget)
	s.headerRow("类别", "名称", "预算", "已用", "剩余", "状态", "剩余大写")
	for _, line := range report.Budget {
		s.row(
			string(line.Category),
			line.DisplayName,
			money(line.Ceiling),
			money(line.Spent),
			money(line.Remaining),
			string(line.Tier),
			AmountInWords(line.Remaining),
		)
	}

	s.start(SheetDueSoon)
	s.headerRow("记录", "类型", "标题", "状态", "到期时间", "已逾期")
	for _, item := range report.DueSoon {
		overdue := "否"
		if item.Overdue {
			overdue = "是"
		}
		s.row(
			item.RecordID,
			string(item.Type),
			item.Title,
			string(item.Status),
			item.DueAt.Format("2006-01-02 15:04"),
			overdue,
		)
	}

	f.SetActiveSheet(0)
	return f, nil
}

// sheetWriter appends rows to one sheet at a time
type sheetWriter struct {
	f      *excelize.File
	header int
	logger *zap.Logger
	sheet  string
	next   int
}

func (s *sheetWriter) start(sheet string) {
	s.sheet = sheet
	s.next = 1
}

func (s *sheetWriter) row(values ...interface{}) {
	if len(values) > 0 {
		cell, _ := excelize.CoordinatesToCellName(1, s.next)
		if err := s.f.SetSheetRow(s.sheet, cell, &values); err != nil {
			s.logger.Warn("Failed to set row",
				zap.String("sheet", s.sheet),
				zap.Int("row", s.next),
				zap.Error(err))
		}
	}
	s.next++
}

func (s *sheetWriter) headerRow(titles ...interface{}) {
	first, _ := excelize.CoordinatesToCellName(1, s.next)
	last, _ := excelize.CoordinatesToCellName(len(titles), s.next)
	s.row(titles...)
	if err := s.f.SetCellStyle(s.sheet, first, last, s.header); err != nil {
		s.logger.Warn("Failed to style header", zap.String("sheet", s.sheet), zap.Error(err))
	}
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
