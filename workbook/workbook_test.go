package workbook

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/practical"
)

// newWorkbook writes rows to "Employees" and optionally a Metadata sheet,
// returning the encoded .xlsx bytes.
func newWorkbook(t *testing.T, rows [][]any, metadata [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Employees"))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Employees", cell, &r))
	}
	if metadata != nil {
		_, err := f.NewSheet(MetadataSheet)
		require.NoError(t, err)
		for i, row := range metadata {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(MetadataSheet, cell, &r))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParse_AliasesAndAxes(t *testing.T) {
	// GIVEN: Korean and English headers mixed, with a pay zone column
	buf := newWorkbook(t, [][]any{
		{"사번", "Employee Name", "직군", "Job Level", "Pay Zone", "Performance", "Current Salary"},
		{"E1", "Kim", "Engineering", "L1", "1", "ST", "52,000"},
		{"E2", "Lee", "Design", "L2", "zone2", "AT", "61000"},
		{"E3", "Park", "Engineering", "L2", "L2-1", "ST", "58000.50"},
	}, nil)

	// WHEN: Parsing
	ds, err := Parse(buf, Options{})

	// THEN: Every row is read and the axes follow first appearance
	require.NoError(t, err)
	assert.Equal(t, "Employees", ds.Sheet)
	require.Len(t, ds.Employees, 3)
	assert.Empty(t, ds.Warnings)

	e := ds.Employees[0]
	assert.Equal(t, "E1", e.ID)
	assert.Equal(t, "Kim", e.Name)
	assert.True(t, e.CurrentSalary.Equal(decimal.NewFromInt(52000)))
	assert.True(t, ds.Employees[2].CurrentSalary.Equal(decimal.RequireFromString("58000.5")))

	assert.Equal(t, []string{"Engineering", "Design"}, ds.Metadata.Bands)
	assert.Equal(t, []string{"L1", "L2"}, ds.Metadata.Levels)
	assert.Equal(t, []string{"ST", "AT"}, ds.Metadata.Grades)
	assert.True(t, ds.PayZones.Enabled())
	assert.Equal(t, []int{1, 2}, ds.Metadata.PayZones)
}

func TestParse_WarningsDoNotFail(t *testing.T) {
	// GIVEN: Bad salaries and a blank grade
	buf := newWorkbook(t, [][]any{
		{"Band", "Level", "Grade", "Salary"},
		{"X", "L1", "ST", "abc"},
		{"X", "L1", "ST", "-10"},
		{},
		{"X", "L1", "", "100"},
		{"X", "L1", "ST", "200"},
	}, nil)

	// WHEN: Parsing
	ds, err := Parse(buf, Options{})

	// THEN: Unreadable salaries are skipped, the blank grade is kept with a warning
	require.NoError(t, err)
	require.Len(t, ds.Employees, 2)
	assert.Equal(t, "row-5", ds.Employees[0].ID)
	require.Len(t, ds.Warnings, 3)
	assert.Equal(t, 2, ds.Warnings[0].Row)
	assert.Equal(t, "salary is not a number", ds.Warnings[0].Reason)
	assert.Equal(t, "salary is negative", ds.Warnings[1].Reason)
	assert.Equal(t, 5, ds.Warnings[2].Row)
	assert.False(t, ds.PayZones.Enabled())

	// AND: The blank-grade employee is excluded by the engine, not the parser
	m, err := matrix.Build(ds.Employees, ds.Metadata, matrix.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Diagnostics().MissingGrade)
}

func TestParse_MissingColumn(t *testing.T) {
	buf := newWorkbook(t, [][]any{
		{"Band", "Level", "Salary"},
		{"X", "L1", "100"},
	}, nil)

	_, err := Parse(buf, Options{})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParse_MetadataSheetOverridesAxes(t *testing.T) {
	// GIVEN: A Metadata sheet listing axes in a chosen order, with an unused grade
	buf := newWorkbook(t, [][]any{
		{"Band", "Level", "Grade", "Salary"},
		{"Y", "L2", "AT", "100"},
		{"X", "L1", "ST", "100"},
	}, [][]any{
		{"Bands", "Levels", "Grades"},
		{"X", "L1", "S"},
		{"Y", "L2", "ST"},
		{nil, nil, "AT"},
	})

	// WHEN: Parsing
	ds, err := Parse(buf, Options{})

	// THEN: The explicit order wins and the employee sheet is still picked
	require.NoError(t, err)
	assert.Equal(t, "Employees", ds.Sheet)
	assert.Equal(t, []string{"X", "Y"}, ds.Metadata.Bands)
	assert.Equal(t, []string{"L1", "L2"}, ds.Metadata.Levels)
	assert.Equal(t, []string{"S", "ST", "AT"}, ds.Metadata.Grades)
}

func TestParse_NamedSheet(t *testing.T) {
	buf := newWorkbook(t, [][]any{{"Band", "Level", "Grade", "Salary"}}, nil)

	_, err := Parse(buf, Options{Sheet: "nope"})
	assert.Error(t, err)

	buf = newWorkbook(t, [][]any{{"Band", "Level", "Grade", "Salary"}}, nil)
	ds, err := Parse(buf, Options{Sheet: "employees"})
	require.NoError(t, err)
	assert.Empty(t, ds.Employees)
}

func TestExport_RoundTrip(t *testing.T) {
	// GIVEN: A matrix with one edit and its practical view
	emps := []matrix.Employee{
		{ID: "A", Band: "X", Level: "L1", PerformanceRating: "ST", CurrentSalary: decimal.NewFromInt(100)},
		{ID: "B", Band: "Y", Level: "L1", PerformanceRating: "AT", CurrentSalary: decimal.NewFromInt(300)},
	}
	meta := matrix.Metadata{Bands: []string{"X", "Y"}, Levels: []string{"L1"}, Grades: []string{"ST", "AT"}}
	m, err := matrix.Build(emps, meta, matrix.BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, m.SetGradeRate("X", "L1", "ST", matrix.FieldBaseUp, decimal.NewFromInt(4)))
	m.Recompute()
	v, err := practical.Build(emps, meta, nil, practical.Options{Seed: m})
	require.NoError(t, err)

	// WHEN: Exporting
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, m, v, ExportOptions{Budget: decimal.NewFromInt(10)}))

	// THEN: All four sheets exist with the expected rows
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetMatrix, SheetSummary, SheetPractical, SheetBreakdown}, f.GetSheetList())

	rows, err := f.GetRows(SheetMatrix)
	require.NoError(t, err)
	// header + 2 cells x (2 grades + weighted row)
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"X", "L1", "ST", "1", "100", "4", "0", "0", "percent"}, rows[1])
	assert.Equal(t, weightedRowLabel, rows[3][2])
	assert.Equal(t, "4", rows[3][5])

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"total", "", "2", "400", "1", "0", "0"}, summary[1])
	last := summary[len(summary)-1]
	assert.Equal(t, []string{"10", "400", "4", "1", "6", "FALSE"}, last)

	practicalRows, err := f.GetRows(SheetPractical)
	require.NoError(t, err)
	company := practicalRows[len(practicalRows)-1]
	assert.Equal(t, "company", company[0])
	assert.Equal(t, "1", company[7])

	breakdown, err := f.GetRows(SheetBreakdown)
	require.NoError(t, err)
	assert.Len(t, breakdown, 3)
	assert.Equal(t, "Y", breakdown[1][0], "largest contribution first")
}

func TestExport_MatrixOnly(t *testing.T) {
	emps := []matrix.Employee{{ID: "A", Band: "X", Level: "L1", PerformanceRating: "ST", CurrentSalary: decimal.NewFromInt(100)}}
	meta := matrix.Metadata{Bands: []string{"X"}, Levels: []string{"L1"}, Grades: []string{"ST"}}
	m, err := matrix.Build(emps, meta, matrix.BuildOptions{})
	require.NoError(t, err)

	f, err := NewFile(m, nil, ExportOptions{})
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetMatrix, SheetSummary, SheetBreakdown}, f.GetSheetList())
}
