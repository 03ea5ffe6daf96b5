/*
Package matrix provides the weighted-average adjustment-matrix engine.

PURPOSE:
  Reconciles a Band x Level x Performance-Grade grid of user-editable
  increase rates with salary-weighted rollups. The same engine answers
  "what is the average merit rate of band X?" and "set every cell of level
  L1 to 3%".

KEY CONCEPTS IN THIS FILE (types.go):
  - Rates: base-up, merit and additional components of one rate assignment
  - Amount: the additional component, carried together with its unit
  - Employee: immutable source record for every statistic
  - Metadata: ordered axis vectors (bands, levels, grades, pay zones)
  - Assignment: grade rates keyed by (band, level, grade), used to
    preserve edits across a rebuild

DESIGN PRINCIPLES:
  1. Precision: every salary and rate is a decimal.Decimal, so aggregating
     twice is bit-identical and broadcasts round-trip exactly
  2. Salary-mass weighting: each contributor weighs in proportion to the
     total current salary it represents, not its headcount
  3. Eventual consistency: direct edits mark cells stale; callers recompute
     after a batch (see propagate.go)
  4. Sparsity is not an error: missing keys exclude an employee from the
     grouping and show up in Diagnostics

SEE ALSO:
  - builder.go: Matrix construction
  - aggregate.go: Band/Level/Grade/Total rollups
  - propagate.go: Top-down and bottom-up edits
*/
package matrix

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FIELDS & UNITS
// =============================================================================

// Field names one rate component.
type Field string

const (
	FieldBaseUp     Field = "baseUp"
	FieldMerit      Field = "merit"
	FieldAdditional Field = "additional"
)

// Fields lists every rate component in display order.
var Fields = []Field{FieldBaseUp, FieldMerit, FieldAdditional}

// ParseField accepts the canonical field names, case-insensitively.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "baseup", "base_up", "base-up":
		return FieldBaseUp, nil
	case "merit":
		return FieldMerit, nil
	case "additional":
		return FieldAdditional, nil
	}
	return "", &ValidationError{Field: "field", Value: s, Reason: "unknown rate field", cause: ErrUnknownField}
}

// Unit qualifies the additional component.
type Unit string

const (
	UnitPercent  Unit = "percent"
	UnitCurrency Unit = "currency"
)

// ParseUnit accepts "percent" or "currency"; empty defaults to percent.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "percent", "%":
		return UnitPercent, nil
	case "currency", "amount":
		return UnitCurrency, nil
	}
	return "", &ValidationError{Field: "additional_unit", Value: s, Reason: "unknown unit"}
}

// =============================================================================
// AMOUNT & RATES
// =============================================================================

// Amount is a value with its unit.
type Amount struct {
	Value decimal.Decimal `json:"value"`
	Unit  Unit            `json:"unit"`
}

// Rates is one rate assignment. BaseUp and Merit are percentages; the unit of
// Additional travels with it.
type Rates struct {
	BaseUp     decimal.Decimal `json:"baseUp"`
	Merit      decimal.Decimal `json:"merit"`
	Additional Amount          `json:"additional"`
}

// ZeroRates returns all-zero rates in the given unit.
func ZeroRates(unit Unit) Rates {
	return Rates{Additional: Amount{Unit: unit}}
}

// NewRates is a convenience constructor for float literals.
func NewRates(baseUp, merit, additional float64, unit Unit) Rates {
	return Rates{
		BaseUp:     decimal.NewFromFloat(baseUp),
		Merit:      decimal.NewFromFloat(merit),
		Additional: Amount{Value: decimal.NewFromFloat(additional), Unit: unit},
	}
}

// Get returns the value of one component.
func (r Rates) Get(f Field) decimal.Decimal {
	switch f {
	case FieldBaseUp:
		return r.BaseUp
	case FieldMerit:
		return r.Merit
	case FieldAdditional:
		return r.Additional.Value
	}
	return decimal.Zero
}

// With returns a copy with one component replaced.
func (r Rates) With(f Field, v decimal.Decimal) Rates {
	switch f {
	case FieldBaseUp:
		r.BaseUp = v
	case FieldMerit:
		r.Merit = v
	case FieldAdditional:
		r.Additional.Value = v
	}
	return r
}

// Equal compares every component and the additional unit.
func (r Rates) Equal(o Rates) bool {
	return r.BaseUp.Equal(o.BaseUp) &&
		r.Merit.Equal(o.Merit) &&
		r.Additional.Value.Equal(o.Additional.Value) &&
		r.Additional.Unit == o.Additional.Unit
}

// PercentIncrease is baseUp + merit, plus additional when it is a percentage.
func (r Rates) PercentIncrease() decimal.Decimal {
	total := r.BaseUp.Add(r.Merit)
	if r.Additional.Unit != UnitCurrency {
		total = total.Add(r.Additional.Value)
	}
	return total
}

// ParseRate parses a user-entered rate value.
func ParseRate(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")))
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "value", Value: s, Reason: "not a number", cause: ErrInvalidInput}
	}
	return v, nil
}

// RateFromFloat converts a float rate, rejecting NaN and infinities.
func RateFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, &ValidationError{Field: "value", Reason: "not a finite number", cause: ErrInvalidInput}
	}
	return decimal.NewFromFloat(f), nil
}

// =============================================================================
// SOURCE DATA
// =============================================================================

// Employee is one row of source data. Blank Band, Level, PerformanceRating or
// PayZone exclude the employee from the groupings that need them.
type Employee struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Department        string          `json:"department"`
	Band              string          `json:"band"`
	Level             string          `json:"level"`
	PayZone           string          `json:"payZone,omitempty"`
	PerformanceRating string          `json:"performanceRating"`
	CurrentSalary     decimal.Decimal `json:"currentSalary"`
}

// Metadata holds the ordered axis vectors of the matrix.
type Metadata struct {
	Bands    []string `json:"bands"`
	Levels   []string `json:"levels"`
	Grades   []string `json:"grades"`
	PayZones []int    `json:"payZones,omitempty"`
}

// Normalized returns a copy with blank entries dropped and duplicates
// collapsed, keeping first-appearance order.
func (m Metadata) Normalized() Metadata {
	return Metadata{
		Bands:    dedupe(m.Bands),
		Levels:   dedupe(m.Levels),
		Grades:   dedupe(m.Grades),
		PayZones: dedupeInts(m.PayZones),
	}
}

// DeriveMetadata collects the band, level and grade axes from employees in
// first-appearance order. Pay zones are left to the caller.
func DeriveMetadata(employees []Employee) Metadata {
	var meta Metadata
	for _, e := range employees {
		meta.Bands = append(meta.Bands, e.Band)
		meta.Levels = append(meta.Levels, e.Level)
		meta.Grades = append(meta.Grades, e.PerformanceRating)
	}
	return meta.Normalized()
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func dedupeInts(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, z := range in {
		if seen[z] {
			continue
		}
		seen[z] = true
		out = append(out, z)
	}
	return out
}

// =============================================================================
// ASSIGNMENT - Rates detached from a built matrix
// =============================================================================

// GradeKey identifies one grade slice of one cell.
type GradeKey struct {
	Band  string
	Level string
	Grade string
}

// Assignment maps grade slices to rates. It seeds an edit-preserving rebuild.
type Assignment map[GradeKey]Rates

// =============================================================================
// DIAGNOSTICS - Employees excluded from groupings
// =============================================================================

// Diagnostics counts employees left out of a grouping. Exclusion is silent
// by contract; these counters are how a caller surfaces data-quality warnings.
type Diagnostics struct {
	TotalEmployees int `json:"totalEmployees"`
	MissingKey     int `json:"missingKey"`     // blank band or level
	UnmappedBand   int `json:"unmappedBand"`   // band absent from metadata
	UnmappedLevel  int `json:"unmappedLevel"`  // level absent from metadata
	MissingGrade   int `json:"missingGrade"`   // in a cell, but no grade
	UnmappedGrade  int `json:"unmappedGrade"`  // in a cell, grade absent from metadata
	UnresolvedZone int `json:"unresolvedZone"` // zone axis active, zone not resolvable
}

// ExcludedFromCells is the number of employees that landed in no cell.
func (d Diagnostics) ExcludedFromCells() int {
	return d.MissingKey + d.UnmappedBand + d.UnmappedLevel
}

// HasWarnings reports whether any employee was left out of any grouping.
func (d Diagnostics) HasWarnings() bool {
	return d.ExcludedFromCells()+d.MissingGrade+d.UnmappedGrade+d.UnresolvedZone > 0
}
