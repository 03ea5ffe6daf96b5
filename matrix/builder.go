/*
builder.go - Matrix construction from employee data

PURPOSE:
  Builds the full Band x Level grid from a flat employee list and the axis
  metadata. Every cell gets its statistics, seeded grade rates and a
  weighted average.

BUILD STEPS:
  1. Create one cell per (band, level) on the axes, grade rates seeded from
     the prior assignment or zero
  2. Route each employee to its cell; excluded employees are counted in
     Diagnostics instead
  3. Finalize statistics (average salary, 0 for empty cells)
  4. Compute each cell's weighted average and its weight in the matrix

EXCLUSION RULES:
  blank band/level            -> MissingKey, in no cell
  band/level not on the axes  -> UnmappedBand/UnmappedLevel, in no cell
  blank grade / grade off axis -> counted in the cell, in no grade slice
  The axes are never extended from data.

SEE ALSO:
  - cell.go: Cell and WeightedSum
  - propagate.go: editing a built matrix
*/
package matrix

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/comp-planner/payzone"
)

// BuildOptions tunes Build.
type BuildOptions struct {
	// Prior seeds grade rates, preserving edits across a data reload.
	Prior Assignment

	// AdditionalUnit of every additional amount. Defaults to percent.
	AdditionalUnit Unit

	// PayZones enables payZoneDistribution statistics.
	PayZones *payzone.Config
}

// Build constructs a matrix. It fails only on invalid input: a negative
// salary, an unknown additional unit, or a prior whose additional amount
// carries a different unit (ErrUnitMismatch). Prior rates without a unit
// take the matrix's.
func Build(employees []Employee, meta Metadata, opts BuildOptions) (*Matrix, error) {
	unit := opts.AdditionalUnit
	if unit == "" {
		unit = UnitPercent
	}
	if unit != UnitPercent && unit != UnitCurrency {
		return nil, &ValidationError{Field: "additional_unit", Value: string(unit), Reason: "unknown unit"}
	}

	for _, e := range employees {
		if e.CurrentSalary.IsNegative() {
			return nil, &ValidationError{
				EmployeeID: e.ID,
				Field:      "currentSalary",
				Value:      e.CurrentSalary.String(),
				Reason:     "salary must not be negative",
			}
		}
	}

	for k, r := range opts.Prior {
		if r.Additional.Unit != "" && r.Additional.Unit != unit {
			return nil, fmt.Errorf("%w: prior %s/%s/%s is %s, matrix is %s",
				ErrUnitMismatch, k.Band, k.Level, k.Grade, r.Additional.Unit, unit)
		}
	}

	meta = meta.Normalized()
	m := &Matrix{
		meta:        meta,
		unit:        unit,
		cells:       make(map[cellKey]*Cell, len(meta.Bands)*len(meta.Levels)),
		bandIndex:   index(meta.Bands),
		levelIndex:  index(meta.Levels),
		gradeIndex:  index(meta.Grades),
		ratedSalary: decimal.Zero,
	}

	// 1. Cells with seeded rates
	for _, b := range meta.Bands {
		for _, l := range meta.Levels {
			c := newCell(b, l, meta.Grades, unit)
			if opts.PayZones.Enabled() {
				c.Statistics.PayZoneDistribution = make(map[int]int)
			}
			for _, g := range meta.Grades {
				if r, ok := opts.Prior[GradeKey{Band: b, Level: l, Grade: g}]; ok {
					r.Additional.Unit = unit
					c.GradeRates[g] = r
				}
			}
			m.cells[cellKey{b, l}] = c
		}
	}

	// 2. Route employees
	m.diagnostics.TotalEmployees = len(employees)
	for _, e := range employees {
		band := strings.TrimSpace(e.Band)
		level := strings.TrimSpace(e.Level)
		switch {
		case band == "" || level == "":
			m.diagnostics.MissingKey++
			continue
		case !m.bandIndex[band]:
			m.diagnostics.UnmappedBand++
			continue
		case !m.levelIndex[level]:
			m.diagnostics.UnmappedLevel++
			continue
		}

		c := m.cells[cellKey{band, level}]
		st := &c.Statistics
		st.EmployeeCount++
		st.TotalSalaryAmount = st.TotalSalaryAmount.Add(e.CurrentSalary)

		grade := strings.TrimSpace(e.PerformanceRating)
		switch {
		case grade == "":
			m.diagnostics.MissingGrade++
		case !m.gradeIndex[grade]:
			m.diagnostics.UnmappedGrade++
		default:
			st.GradeDistribution[grade]++
			st.GradeSalary[grade] = st.GradeSalary[grade].Add(e.CurrentSalary)
		}

		if st.PayZoneDistribution != nil {
			if z, ok := opts.PayZones.Resolve(e.PayZone, level); ok {
				st.PayZoneDistribution[z]++
			} else {
				m.diagnostics.UnresolvedZone++
			}
		}
	}

	// 3. Averages and salary mass
	m.each(func(c *Cell) {
		st := &c.Statistics
		if st.EmployeeCount > 0 {
			st.AverageSalary = st.TotalSalaryAmount.Div(decimal.NewFromInt(int64(st.EmployeeCount)))
		}
		m.ratedSalary = m.ratedSalary.Add(st.RatedSalary())
	})

	// 4. Weighted averages and weight in matrix
	m.each(func(c *Cell) {
		c.recompute(unit)
		if m.ratedSalary.IsPositive() {
			c.WeightedAverage.WeightInMatrix = c.Statistics.RatedSalary().Div(m.ratedSalary).Mul(hundred)
		}
	})

	return m, nil
}

func index(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, v := range values {
		out[v] = true
	}
	return out
}
