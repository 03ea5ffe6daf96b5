/*
export.go - Writing planning results to .xlsx

SHEETS:
  Matrix     one row per (band, level, grade) plus the cell's weighted row
  Summary    Aggregate rollups (total, bands, levels, grades) and budget
  Practical  every practical-view cell and the company total (when a
             view is passed)
  Breakdown  the matrix weighted-average breakdown with contributions

Numbers are written as spreadsheet numerics rounded to 4 decimal places;
the engine keeps full precision.
*/
package workbook

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/practical"
)

// Sheet names written by Export.
const (
	SheetMatrix    = "Matrix"
	SheetSummary   = "Summary"
	SheetPractical = "Practical"
	SheetBreakdown = "Breakdown"
)

const weightedRowLabel = "(weighted)"

// ExportOptions tunes Export.
type ExportOptions struct {
	// Budget is priced on the Summary sheet. Zero means unbounded.
	Budget decimal.Decimal
}

// Export writes m and, when non-nil, v as an .xlsx workbook to w.
func Export(w io.Writer, m *matrix.Matrix, v *practical.View, opts ExportOptions) error {
	f, err := NewFile(m, v, opts)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// NewFile builds the export workbook in memory.
func NewFile(m *matrix.Matrix, v *practical.View, opts ExportOptions) (*excelize.File, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", SheetMatrix); err != nil {
		f.Close()
		return nil, err
	}
	writers := []func(*sheetWriter){
		func(sw *sheetWriter) { writeMatrix(sw, m) },
		func(sw *sheetWriter) { writeSummary(sw, m, opts.Budget) },
	}
	names := []string{SheetMatrix, SheetSummary}
	if v != nil {
		writers = append(writers, func(sw *sheetWriter) { writePractical(sw, v) })
		names = append(names, SheetPractical)
	}
	writers = append(writers, func(sw *sheetWriter) { writeBreakdown(sw, m) })
	names = append(names, SheetBreakdown)

	for i, name := range names {
		if name != SheetMatrix {
			if _, err := f.NewSheet(name); err != nil {
				f.Close()
				return nil, err
			}
		}
		sw := &sheetWriter{f: f, sheet: name, header: header}
		writers[i](sw)
		if sw.err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", name, sw.err)
		}
	}
	return f, nil
}

// =============================================================================
// SHEETS
// =============================================================================

func writeMatrix(sw *sheetWriter, m *matrix.Matrix) {
	sw.headerRow("Band", "Level", "Grade", "Employees", "Total Salary", "Base-up", "Merit", "Additional", "Unit", "Weight %")
	meta := m.Metadata()
	for _, row := range m.Grid() {
		for _, c := range row {
			for _, g := range meta.Grades {
				r := c.GradeRates[g]
				sw.row(c.Band, c.Level, g, c.Statistics.GradeDistribution[g], num(c.Statistics.GradeSalary[g]),
					num(r.BaseUp), num(r.Merit), num(r.Additional.Value), string(r.Additional.Unit), nil)
			}
			wa := c.WeightedAverage
			sw.row(c.Band, c.Level, weightedRowLabel, c.Statistics.EmployeeCount, num(c.Statistics.TotalSalaryAmount),
				num(wa.BaseUp), num(wa.Merit), num(wa.Additional.Value), string(wa.Additional.Unit), num(wa.WeightInMatrix))
		}
	}
}

func writeSummary(sw *sheetWriter, m *matrix.Matrix, budget decimal.Decimal) {
	agg := matrix.Aggregate(m)
	meta := m.Metadata()

	sw.headerRow("Scope", "Key", "Employees", "Total Salary", "Base-up", "Merit", "Additional")
	summary := func(scope, key string, s matrix.Summary) {
		sw.row(scope, key, s.EmployeeCount, num(s.TotalSalary), num(s.Rates.BaseUp), num(s.Rates.Merit), num(s.Rates.Additional.Value))
	}
	summary("total", "", agg.Total)
	for _, b := range meta.Bands {
		summary("band", b, agg.ByBand[b])
	}
	for _, l := range meta.Levels {
		summary("level", l, agg.ByLevel[l])
	}
	for _, g := range meta.Grades {
		summary("grade", g, agg.ByGrade[g])
	}

	impact := matrix.BudgetImpact(m, budget)
	sw.row()
	sw.headerRow("Budget", "Base Salary", "Increase", "Increase %", "Remaining", "Over Budget")
	sw.row(num(impact.Budget), num(impact.BaseSalary), num(impact.IncreaseAmount), num(impact.IncreaseRate), num(impact.Remaining), impact.OverBudget)
}

func writePractical(sw *sheetWriter, v *practical.View) {
	sw.headerRow("Level", "Zone", "Band", "Grade", "Derived", "Employees", "Total Salary", "Base-up", "Merit", "Additional")
	meta := v.Metadata()
	cellRow := func(c *practical.Cell) {
		sw.row(c.Level, c.Zone, c.Band, c.Grade, c.Derived, c.Statistics.EmployeeCount, num(c.Statistics.TotalSalary),
			num(c.Rates.BaseUp), num(c.Rates.Merit), num(c.Rates.Additional.Value))
	}
	for _, l := range meta.Levels {
		for _, z := range v.ZoneKeys() {
			s, _ := v.Slice(l, z)
			for _, g := range meta.Grades {
				cellRow(s.Total[g])
			}
			for _, b := range meta.Bands {
				for _, g := range meta.Grades {
					cellRow(s.ByBand[b][g])
				}
			}
		}
	}
	ct := v.CompanyTotal()
	sw.row("company", "", "", "", true, nil, nil, num(ct.BaseUp), num(ct.Merit), num(ct.Additional.Value))
}

func writeBreakdown(sw *sheetWriter, m *matrix.Matrix) {
	res := m.Breakdown(matrix.BreakdownQuery{SortBy: matrix.SortContribution, Descending: true})
	sw.headerRow("Band", "Level", "Grade", "Employees", "Weight", "Contribution %", "Base-up", "Merit", "Additional")
	for _, d := range res.Details {
		sw.row(d.Band, d.Level, d.Grade, d.EmployeeCount, num(d.Weight), num(d.Contribution),
			num(d.Rates.BaseUp), num(d.Rates.Merit), num(d.Rates.Additional.Value))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// sheetWriter appends rows and keeps the first error.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	header int
	next   int
	err    error
}

func (sw *sheetWriter) row(values ...any) {
	if sw.err != nil {
		return
	}
	sw.next++
	if len(values) == 0 {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, sw.next)
	if err != nil {
		sw.err = err
		return
	}
	sw.err = sw.f.SetSheetRow(sw.sheet, cell, &values)
}

func (sw *sheetWriter) headerRow(titles ...string) {
	values := make([]any, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	sw.row(values...)
	if sw.err != nil {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, sw.next)
	last, _ := excelize.CoordinatesToCellName(len(titles), sw.next)
	sw.err = sw.f.SetCellStyle(sw.sheet, first, last, sw.header)
}

func num(d decimal.Decimal) float64 {
	return d.Round(4).InexactFloat64()
}
