package matrix

import (
	"github.com/shopspring/decimal"
)

type cellKey struct {
	band  string
	level string
}

// Matrix is the Band x Level grid of cells.
//
// The cells live in one internal store. Grid and CellMap are views over that
// store and hand out the same *Cell pointers, so a change made through one
// accessor is visible through the other.
type Matrix struct {
	meta        Metadata
	unit        Unit
	cells       map[cellKey]*Cell
	bandIndex   map[string]bool
	levelIndex  map[string]bool
	gradeIndex  map[string]bool
	ratedSalary decimal.Decimal
	diagnostics Diagnostics
}

// Metadata returns a copy of the axes.
func (m *Matrix) Metadata() Metadata {
	return Metadata{
		Bands:    append([]string(nil), m.meta.Bands...),
		Levels:   append([]string(nil), m.meta.Levels...),
		Grades:   append([]string(nil), m.meta.Grades...),
		PayZones: append([]int(nil), m.meta.PayZones...),
	}
}

// AdditionalUnit is the unit every additional amount in the matrix carries.
func (m *Matrix) AdditionalUnit() Unit {
	return m.unit
}

// Diagnostics reports employees excluded at build time.
func (m *Matrix) Diagnostics() Diagnostics {
	return m.diagnostics
}

// Cell returns the cell at (band, level).
func (m *Matrix) Cell(band, level string) (*Cell, bool) {
	c, ok := m.cells[cellKey{band, level}]
	return c, ok
}

// Grid returns the cells band-major in metadata order: Grid()[i][j] is
// (Bands[i], Levels[j]).
func (m *Matrix) Grid() [][]*Cell {
	grid := make([][]*Cell, len(m.meta.Bands))
	for i, b := range m.meta.Bands {
		row := make([]*Cell, len(m.meta.Levels))
		for j, l := range m.meta.Levels {
			row[j] = m.cells[cellKey{b, l}]
		}
		grid[i] = row
	}
	return grid
}

// CellMap returns band -> level -> cell.
func (m *Matrix) CellMap() map[string]map[string]*Cell {
	out := make(map[string]map[string]*Cell, len(m.meta.Bands))
	for _, b := range m.meta.Bands {
		row := make(map[string]*Cell, len(m.meta.Levels))
		for _, l := range m.meta.Levels {
			row[l] = m.cells[cellKey{b, l}]
		}
		out[b] = row
	}
	return out
}

// each visits cells in metadata order.
func (m *Matrix) each(fn func(c *Cell)) {
	for _, b := range m.meta.Bands {
		for _, l := range m.meta.Levels {
			fn(m.cells[cellKey{b, l}])
		}
	}
}

// Assignment exports the current grade rates.
func (m *Matrix) Assignment() Assignment {
	out := make(Assignment, len(m.cells)*len(m.meta.Grades))
	m.each(func(c *Cell) {
		for _, g := range m.meta.Grades {
			out[GradeKey{Band: c.Band, Level: c.Level, Grade: g}] = c.GradeRates[g]
		}
	})
	return out
}

// TotalEmployees is Σ employeeCount over every cell.
func (m *Matrix) TotalEmployees() int {
	n := 0
	m.each(func(c *Cell) { n += c.Statistics.EmployeeCount })
	return n
}

func (m *Matrix) lookup(band, level string) (*Cell, error) {
	c, ok := m.cells[cellKey{band, level}]
	if !ok {
		return nil, &CellNotFoundError{Band: band, Level: level}
	}
	return c, nil
}

func (m *Matrix) lookupGrade(band, level, grade string) (*Cell, error) {
	c, err := m.lookup(band, level)
	if err != nil {
		return nil, err
	}
	if !m.gradeIndex[grade] {
		return nil, &CellNotFoundError{Band: band, Level: level, Grade: grade}
	}
	return c, nil
}
