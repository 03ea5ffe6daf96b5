/*
Package workbook reads employee compensation workbooks and writes planning
results back out as .xlsx.

PURPOSE:
  The engine consumes plain records: []matrix.Employee plus the axis
  vectors in matrix.Metadata. This package is the spreadsheet boundary
  around it, built on excelize.

PARSING:
  1. Pick the sheet (Options.Sheet, else the first sheet that is not
     "Metadata")
  2. Map header cells to fields by case- and space-insensitive aliases
  3. Read every non-blank row; a row whose salary cannot be read becomes a
     ParseWarning and is skipped
  4. Derive the axes in first-appearance order, unless a "Metadata" sheet
     lists them explicitly
  5. Detect pay zones from the raw zone column (payzone.Detect)

  Blank band, level, grade or zone cells are kept as blanks: the engine
  excludes such employees from the groupings that need the key.

SEE ALSO:
  - export.go: writing results
  - matrix.Build: consumer of Dataset
*/
package workbook

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/payzone"
)

// MetadataSheet optionally lists the axes, one column per axis.
const MetadataSheet = "Metadata"

var (
	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("required column missing")

	// ErrNoData is returned for a sheet without a header row.
	ErrNoData = errors.New("sheet has no data rows")
)

// =============================================================================
// FIELD MAPPING
// =============================================================================

type field string

const (
	fieldID         field = "id"
	fieldName       field = "name"
	fieldDepartment field = "department"
	fieldBand       field = "band"
	fieldLevel      field = "level"
	fieldPayZone    field = "payZone"
	fieldGrade      field = "grade"
	fieldSalary     field = "salary"
)

var requiredFields = []field{fieldBand, fieldLevel, fieldGrade, fieldSalary}

// aliases are compared after lower-casing and removing spaces, "_" and "-".
var aliases = map[string]field{
	"id": fieldID, "employeeid": fieldID, "empid": fieldID, "employeeno": fieldID, "사번": fieldID,
	"name": fieldName, "employeename": fieldName, "fullname": fieldName, "성명": fieldName, "이름": fieldName,
	"department": fieldDepartment, "dept": fieldDepartment, "부서": fieldDepartment,
	"band": fieldBand, "jobfamily": fieldBand, "jobband": fieldBand, "직군": fieldBand,
	"level": fieldLevel, "joblevel": fieldLevel, "직급": fieldLevel,
	"payzone": fieldPayZone, "zone": fieldPayZone, "salaryzone": fieldPayZone, "페이존": fieldPayZone,
	"grade": fieldGrade, "performance": fieldGrade, "performancerating": fieldGrade, "performancegrade": fieldGrade, "rating": fieldGrade, "평가등급": fieldGrade,
	"salary": fieldSalary, "currentsalary": fieldSalary, "basesalary": fieldSalary, "annualsalary": fieldSalary, "연봉": fieldSalary, "현재연봉": fieldSalary,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// mapHeaders returns field -> column index. The first matching column wins.
func mapHeaders(headers []string) map[field]int {
	out := make(map[field]int)
	for i, h := range headers {
		f, ok := aliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, dup := out[f]; !dup {
			out[f] = i
		}
	}
	return out
}

// =============================================================================
// PARSE
// =============================================================================

// Options selects what to read.
type Options struct {
	// Sheet names the employee sheet. Empty picks the first sheet.
	Sheet string
}

// ParseWarning is a row that was skipped or partly read.
type ParseWarning struct {
	Sheet  string `json:"sheet"`
	Row    int    `json:"row"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("%s row %d: %s", w.Sheet, w.Row, w.Reason)
}

// Dataset is a parsed workbook.
type Dataset struct {
	Sheet     string            `json:"sheet"`
	Employees []matrix.Employee `json:"employees"`
	Metadata  matrix.Metadata   `json:"metadata"`
	Warnings  []ParseWarning    `json:"warnings,omitempty"`
	PayZones  *payzone.Config   `json:"-"`
}

// Parse reads a workbook from r.
func Parse(r io.Reader, opts Options) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return ParseFile(f, opts)
}

// ParseFile reads an already opened workbook.
func ParseFile(f *excelize.File, opts Options) (*Dataset, error) {
	sheet, err := pickSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", sheet, ErrNoData)
	}

	cols := mapHeaders(rows[0])
	for _, req := range requiredFields {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("%s: %w: %s", sheet, ErrMissingColumn, req)
		}
	}

	ds := &Dataset{Sheet: sheet}
	var observations []payzone.Observation
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		rowNo := i + 1
		if blank(row) {
			continue
		}

		get := func(fld field) string {
			idx, ok := cols[fld]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		raw := get(fieldSalary)
		salary, err := parseSalary(raw)
		if err != nil {
			ds.Warnings = append(ds.Warnings, ParseWarning{Sheet: sheet, Row: rowNo, Column: string(fieldSalary), Value: raw, Reason: err.Error()})
			continue
		}

		e := matrix.Employee{
			ID:                get(fieldID),
			Name:              get(fieldName),
			Department:        get(fieldDepartment),
			Band:              get(fieldBand),
			Level:             get(fieldLevel),
			PayZone:           get(fieldPayZone),
			PerformanceRating: get(fieldGrade),
			CurrentSalary:     salary,
		}
		if e.ID == "" {
			e.ID = "row-" + strconv.Itoa(rowNo)
		}
		if e.Band == "" || e.Level == "" || e.PerformanceRating == "" {
			ds.Warnings = append(ds.Warnings, ParseWarning{Sheet: sheet, Row: rowNo, Reason: "blank band, level or grade; excluded from the matrix"})
		}

		if e.PayZone != "" {
			observations = append(observations, payzone.Observation{Raw: e.PayZone, Level: e.Level})
		}
		ds.Employees = append(ds.Employees, e)
	}

	ds.PayZones = payzone.Detect(observations)
	ds.Metadata = matrix.DeriveMetadata(ds.Employees)
	ds.Metadata.PayZones = ds.PayZones.Zones()

	if explicit, ok, err := readMetadataSheet(f); err != nil {
		return nil, err
	} else if ok {
		ds.Metadata = overlay(ds.Metadata, explicit)
		if len(explicit.PayZones) > 0 {
			ds.PayZones = payzone.New(explicit.PayZones)
		}
	}
	ds.Metadata = ds.Metadata.Normalized()
	return ds, nil
}

func pickSheet(f *excelize.File, want string) (string, error) {
	sheets := f.GetSheetList()
	if want != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, want) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found", want)
	}
	for _, s := range sheets {
		if !strings.EqualFold(s, MetadataSheet) {
			return s, nil
		}
	}
	return "", ErrNoData
}

// parseSalary accepts "52,000", "₩52000", "$ 52000.50". Negative salaries
// are rejected here so one bad row cannot fail the whole build.
func parseSalary(raw string) (decimal.Decimal, error) {
	s := strings.NewReplacer(",", "", "₩", "", "$", "", "€", "", " ", "").Replace(raw)
	if s == "" {
		return decimal.Zero, errors.New("salary is blank")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.New("salary is not a number")
	}
	if v.IsNegative() {
		return decimal.Zero, errors.New("salary is negative")
	}
	return v, nil
}

// readMetadataSheet reads optional explicit axes.
func readMetadataSheet(f *excelize.File) (matrix.Metadata, bool, error) {
	var name string
	for _, s := range f.GetSheetList() {
		if strings.EqualFold(s, MetadataSheet) {
			name = s
		}
	}
	if name == "" {
		return matrix.Metadata{}, false, nil
	}
	cols, err := f.GetCols(name)
	if err != nil {
		return matrix.Metadata{}, false, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}

	var meta matrix.Metadata
	for _, col := range cols {
		if len(col) == 0 {
			continue
		}
		values := trimmed(col[1:])
		switch normalizeHeader(col[0]) {
		case "bands", "band":
			meta.Bands = values
		case "levels", "level":
			meta.Levels = values
		case "grades", "grade":
			meta.Grades = values
		case "payzones", "payzone", "zones":
			for _, v := range values {
				if z, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(v), "zone")); err == nil {
					meta.PayZones = append(meta.PayZones, z)
				}
			}
		}
	}
	return meta, true, nil
}

// overlay replaces each derived axis the explicit metadata lists.
func overlay(derived, explicit matrix.Metadata) matrix.Metadata {
	if len(explicit.Bands) > 0 {
		derived.Bands = explicit.Bands
	}
	if len(explicit.Levels) > 0 {
		derived.Levels = explicit.Levels
	}
	if len(explicit.Grades) > 0 {
		derived.Grades = explicit.Grades
	}
	if len(explicit.PayZones) > 0 {
		derived.PayZones = explicit.PayZones
	}
	return derived
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimmed(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
