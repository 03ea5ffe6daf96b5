package matrix_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/warp/comp-planner/matrix"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func emp(id, band, level, grade string, salary int64) matrix.Employee {
	return matrix.Employee{
		ID:                id,
		Name:              "Employee " + id,
		Department:        "Ops",
		Band:              band,
		Level:             level,
		PerformanceRating: grade,
		CurrentSalary:     decimal.NewFromInt(salary),
	}
}

// scenarioEmployees is the three-employee example:
// A(X, L1, ST, 100), B(X, L1, AT, 200), C(Y, L1, ST, 300).
func scenarioEmployees() []matrix.Employee {
	return []matrix.Employee{
		emp("A", "X", "L1", "ST", 100),
		emp("B", "X", "L1", "AT", 200),
		emp("C", "Y", "L1", "ST", 300),
	}
}

func scenarioMeta() matrix.Metadata {
	return matrix.Metadata{
		Bands:  []string{"X", "Y"},
		Levels: []string{"L1", "L2"},
		Grades: []string{"ST", "AT"},
	}
}

// scenarioRates assigns ST={5,2} and AT={3,1} to every cell.
func scenarioRates(meta matrix.Metadata) matrix.Assignment {
	a := make(matrix.Assignment)
	for _, b := range meta.Bands {
		for _, l := range meta.Levels {
			a[matrix.GradeKey{Band: b, Level: l, Grade: "ST"}] = matrix.NewRates(5, 2, 0, matrix.UnitPercent)
			a[matrix.GradeKey{Band: b, Level: l, Grade: "AT"}] = matrix.NewRates(3, 1, 0, matrix.UnitPercent)
		}
	}
	return a
}

func buildScenario(t *testing.T) *matrix.Matrix {
	t.Helper()
	meta := scenarioMeta()
	m, err := matrix.Build(scenarioEmployees(), meta, matrix.BuildOptions{Prior: scenarioRates(meta)})
	require.NoError(t, err)
	return m
}

func cell(t *testing.T, m *matrix.Matrix, band, level string) *matrix.Cell {
	t.Helper()
	c, ok := m.Cell(band, level)
	require.True(t, ok, "cell %s/%s", band, level)
	return c
}

func f64(v decimal.Decimal) float64 {
	return v.InexactFloat64()
}
