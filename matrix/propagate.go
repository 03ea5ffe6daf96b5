/*
propagate.go - Top-down and bottom-up edits on the matrix

PURPOSE:
  Keeps the cell-level weighted averages consistent with the grade rates
  they summarise. Grade rates are the source of truth; weighted averages
  (and every rollup in aggregate.go) are re-derived.

STATE MACHINE (per cell):
  Clean  --SetGradeRate-->  Edited  --RecomputeCell / Recompute-->  Clean

  Direct edits never recompute on their own so that a caller can batch N
  edits and recompute once. Consistency is eventually restored, not
  continuously maintained: between an edit and the recompute, reads of
  WeightedAverage and of Aggregate's band/level/total summaries are stale.

TOP-DOWN:
  DistributeAcrossBands, ApplyToGrade, ApplyToLevel and ApplyToAll write one
  value into many grade slices and leave every touched cell Clean.

SEE ALSO:
  - practical/propagate.go: the same operations on the practical hierarchy
*/
package matrix

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DIRECT EDITS
// =============================================================================

// SetGradeRate writes one component of one grade slice. The cell is left
// stale until RecomputeCell or Recompute.
func (m *Matrix) SetGradeRate(band, level, grade string, field Field, value decimal.Decimal) error {
	if err := validField(field); err != nil {
		return err
	}
	c, err := m.lookupGrade(band, level, grade)
	if err != nil {
		return err
	}
	c.GradeRates[grade] = c.GradeRates[grade].With(field, value)
	c.stale = true
	return nil
}

// SetGradeRates replaces every component of one grade slice. The additional
// unit must match the matrix's unit.
func (m *Matrix) SetGradeRates(band, level, grade string, r Rates) error {
	if r.Additional.Unit == "" {
		r.Additional.Unit = m.unit
	}
	if r.Additional.Unit != m.unit {
		return ErrUnitMismatch
	}
	c, err := m.lookupGrade(band, level, grade)
	if err != nil {
		return err
	}
	c.GradeRates[grade] = r
	c.stale = true
	return nil
}

// =============================================================================
// BOTTOM-UP
// =============================================================================

// RecomputeCell re-derives one cell's weighted average.
func (m *Matrix) RecomputeCell(band, level string) error {
	c, err := m.lookup(band, level)
	if err != nil {
		return err
	}
	c.recompute(m.unit)
	return nil
}

// Recompute re-derives every cell's weighted average.
func (m *Matrix) Recompute() {
	m.each(func(c *Cell) { c.recompute(m.unit) })
}

// IsStale reports whether any cell has edits not yet recomputed.
func (m *Matrix) IsStale() bool {
	stale := false
	m.each(func(c *Cell) { stale = stale || c.stale })
	return stale
}

// StaleCells lists the cells with pending edits, in metadata order.
func (m *Matrix) StaleCells() []*Cell {
	var out []*Cell
	m.each(func(c *Cell) {
		if c.stale {
			out = append(out, c)
		}
	})
	return out
}

// =============================================================================
// TOP-DOWN
// =============================================================================

// DistributeAcrossBands sets field of grade to value in every (band, level)
// cell for the given bands. An empty bands slice means every band.
func (m *Matrix) DistributeAcrossBands(level, grade string, field Field, value decimal.Decimal, bands []string) error {
	if err := validField(field); err != nil {
		return err
	}
	if !m.levelIndex[level] {
		return &CellNotFoundError{Level: level}
	}
	if !m.gradeIndex[grade] {
		return &CellNotFoundError{Level: level, Grade: grade}
	}
	if len(bands) == 0 {
		bands = m.meta.Bands
	}
	for _, b := range bands {
		if !m.bandIndex[b] {
			return &CellNotFoundError{Band: b, Level: level}
		}
	}

	for _, b := range bands {
		c := m.cells[cellKey{b, level}]
		c.GradeRates[grade] = c.GradeRates[grade].With(field, value)
		c.recompute(m.unit)
	}
	return nil
}

// ApplyToGrade sets field of grade to value in every cell.
func (m *Matrix) ApplyToGrade(grade string, field Field, value decimal.Decimal) error {
	if err := validField(field); err != nil {
		return err
	}
	if !m.gradeIndex[grade] {
		return &CellNotFoundError{Grade: grade}
	}
	m.each(func(c *Cell) {
		c.GradeRates[grade] = c.GradeRates[grade].With(field, value)
		c.recompute(m.unit)
	})
	return nil
}

// ApplyToLevel sets field to value for every grade of every band at level.
func (m *Matrix) ApplyToLevel(level string, field Field, value decimal.Decimal) error {
	if err := validField(field); err != nil {
		return err
	}
	if !m.levelIndex[level] {
		return &CellNotFoundError{Level: level}
	}
	for _, b := range m.meta.Bands {
		m.fill(m.cells[cellKey{b, level}], field, value)
	}
	return nil
}

// ApplyToAll sets field to value in every grade slice of every cell.
func (m *Matrix) ApplyToAll(field Field, value decimal.Decimal) error {
	if err := validField(field); err != nil {
		return err
	}
	m.each(func(c *Cell) { m.fill(c, field, value) })
	return nil
}

// fill writes value into every grade of c. Empty cells keep a zero
// weighted average.
func (m *Matrix) fill(c *Cell, field Field, value decimal.Decimal) {
	for _, g := range m.meta.Grades {
		c.GradeRates[g] = c.GradeRates[g].With(field, value)
	}
	c.recompute(m.unit)
}

func validField(f Field) error {
	switch f {
	case FieldBaseUp, FieldMerit, FieldAdditional:
		return nil
	}
	return &ValidationError{Field: "field", Value: string(f), Reason: "unknown rate field", cause: ErrUnknownField}
}
