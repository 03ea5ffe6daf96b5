package matrix

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// WEIGHTED SUM - Salary-mass-weighted accumulator
// =============================================================================

// WeightedSum accumulates Σ(rate × weight) per component and Σweight.
// The zero value is ready to use.
type WeightedSum struct {
	weight     decimal.Decimal
	baseUp     decimal.Decimal
	merit      decimal.Decimal
	additional decimal.Decimal
}

// Add folds one contributor in. Zero and negative weights are ignored.
func (w *WeightedSum) Add(r Rates, weight decimal.Decimal) {
	if !weight.IsPositive() {
		return
	}
	w.weight = w.weight.Add(weight)
	w.baseUp = w.baseUp.Add(r.BaseUp.Mul(weight))
	w.merit = w.merit.Add(r.Merit.Mul(weight))
	w.additional = w.additional.Add(r.Additional.Value.Mul(weight))
}

// Weight is the accumulated Σweight.
func (w WeightedSum) Weight() decimal.Decimal {
	return w.weight
}

// Average returns the weighted mean, or zero rates when nothing was added.
func (w WeightedSum) Average(unit Unit) Rates {
	return w.AverageOr(ZeroRates(unit))
}

// AverageOr returns the weighted mean, or fallback when the accumulated
// weight is zero.
func (w WeightedSum) AverageOr(fallback Rates) Rates {
	if w.weight.IsZero() {
		return fallback
	}
	return Rates{
		BaseUp:     w.baseUp.Div(w.weight),
		Merit:      w.merit.Div(w.weight),
		Additional: Amount{Value: w.additional.Div(w.weight), Unit: fallback.Additional.Unit},
	}
}

// =============================================================================
// CELL
// =============================================================================

// CellStatistics are derived from source employees once, at build time.
type CellStatistics struct {
	EmployeeCount       int                        `json:"employeeCount"`
	AverageSalary       decimal.Decimal            `json:"averageSalary"`
	TotalSalaryAmount   decimal.Decimal            `json:"totalSalaryAmount"`
	GradeDistribution   map[string]int             `json:"gradeDistribution"`
	GradeSalary         map[string]decimal.Decimal `json:"gradeSalary"`
	PayZoneDistribution map[int]int                `json:"payZoneDistribution,omitempty"`
}

// RatedSalary is the salary mass of employees whose grade is on the grade
// axis. It is the weight a cell carries in every rate rollup.
func (s CellStatistics) RatedSalary() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s.GradeSalary {
		total = total.Add(v)
	}
	return total
}

// WeightedAverage is the cell-level rollup of its grade rates.
type WeightedAverage struct {
	Rates
	// WeightInMatrix is the cell's share of the matrix's rated salary, in percent.
	WeightInMatrix decimal.Decimal `json:"weightInMatrix"`
}

// Cell is one (band, level) coordinate.
type Cell struct {
	Band            string           `json:"band"`
	Level           string           `json:"level"`
	GradeRates      map[string]Rates `json:"gradeRates"`
	Statistics      CellStatistics   `json:"statistics"`
	WeightedAverage WeightedAverage  `json:"weightedAverage"`

	grades []string
	stale  bool
}

func newCell(band, level string, grades []string, unit Unit) *Cell {
	c := &Cell{
		Band:       band,
		Level:      level,
		GradeRates: make(map[string]Rates, len(grades)),
		Statistics: CellStatistics{
			AverageSalary:     decimal.Zero,
			TotalSalaryAmount: decimal.Zero,
			GradeDistribution: make(map[string]int, len(grades)),
			GradeSalary:       make(map[string]decimal.Decimal, len(grades)),
		},
		WeightedAverage: WeightedAverage{Rates: ZeroRates(unit), WeightInMatrix: decimal.Zero},
		grades:          grades,
	}
	for _, g := range grades {
		c.GradeRates[g] = ZeroRates(unit)
		c.Statistics.GradeDistribution[g] = 0
		c.Statistics.GradeSalary[g] = decimal.Zero
	}
	return c
}

// IsStale reports whether grade rates changed since the last recompute.
func (c *Cell) IsStale() bool {
	return c.stale
}

// recompute re-derives WeightedAverage from GradeRates. Zero total weight
// yields zero rates, never a division by zero.
func (c *Cell) recompute(unit Unit) {
	var ws WeightedSum
	for _, g := range c.grades {
		ws.Add(c.GradeRates[g], c.Statistics.GradeSalary[g])
	}
	c.WeightedAverage.Rates = ws.Average(unit)
	c.stale = false
}
