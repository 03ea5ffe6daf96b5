/*
aggregate.go - Band / Level / Grade / Total rollups

PURPOSE:
  Rolls cell-level values up into grouping summaries. Every rate is a
  salary-mass-weighted mean; counts and salaries are plain sums.

WEIGHTING:
  Total, ByBand, ByLevel: mean of each cell's WeightedAverage, weighted by
                          the cell's rated salary (Σ grade salary mass)
  ByGrade:                mean of GradeRates[g] across cells, weighted by
                          the per-grade salary mass of each cell

FRESHNESS:
  Aggregate is a pure function of the matrix and keeps no state. It reads
  cell weighted averages as they are, so after direct grade edits the band,
  level and total summaries lag until Recompute runs (see propagate.go).
  ByGrade reads grade rates directly and is never stale.
*/
package matrix

import (
	"github.com/shopspring/decimal"
)

// Summary is one grouping's rollup.
type Summary struct {
	Rates         Rates           `json:"rates"`
	EmployeeCount int             `json:"employeeCount"`
	TotalSalary   decimal.Decimal `json:"totalSalary"`
	// Weight is the salary mass the rates were averaged over.
	Weight decimal.Decimal `json:"weight"`
}

// Aggregated holds every rollup of a matrix.
type Aggregated struct {
	Total   Summary            `json:"total"`
	ByBand  map[string]Summary `json:"byBand"`
	ByLevel map[string]Summary `json:"byLevel"`
	ByGrade map[string]Summary `json:"byGrade"`
}

type group struct {
	sum    WeightedSum
	count  int
	salary decimal.Decimal
}

func (g *group) summary(unit Unit) Summary {
	return Summary{
		Rates:         g.sum.Average(unit),
		EmployeeCount: g.count,
		TotalSalary:   g.salary,
		Weight:        g.sum.Weight(),
	}
}

// Aggregate computes every rollup of m.
func Aggregate(m *Matrix) Aggregated {
	var total group
	total.salary = decimal.Zero
	byBand := newGroups(m.meta.Bands)
	byLevel := newGroups(m.meta.Levels)
	byGrade := newGroups(m.meta.Grades)

	m.each(func(c *Cell) {
		st := c.Statistics
		weight := st.RatedSalary()

		for _, g := range []*group{&total, byBand[c.Band], byLevel[c.Level]} {
			g.sum.Add(c.WeightedAverage.Rates, weight)
			g.count += st.EmployeeCount
			g.salary = g.salary.Add(st.TotalSalaryAmount)
		}

		for _, grade := range m.meta.Grades {
			g := byGrade[grade]
			mass := st.GradeSalary[grade]
			g.sum.Add(c.GradeRates[grade], mass)
			g.count += st.GradeDistribution[grade]
			g.salary = g.salary.Add(mass)
		}
	})

	return Aggregated{
		Total:   total.summary(m.unit),
		ByBand:  summaries(byBand, m.unit),
		ByLevel: summaries(byLevel, m.unit),
		ByGrade: summaries(byGrade, m.unit),
	}
}

func newGroups(keys []string) map[string]*group {
	out := make(map[string]*group, len(keys))
	for _, k := range keys {
		out[k] = &group{salary: decimal.Zero}
	}
	return out
}

func summaries(groups map[string]*group, unit Unit) map[string]Summary {
	out := make(map[string]Summary, len(groups))
	for k, g := range groups {
		out[k] = g.summary(unit)
	}
	return out
}
