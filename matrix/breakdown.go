/*
breakdown.go - Flattened weighted-average breakdown

PURPOSE:
  Lists every (band, level, grade[, pay zone]) contributor behind a
  weighted average, with its salary-mass weight and its contribution as a
  percentage of the breakdown's total weight. The dashboard shows it as a
  sortable, filterable transparency table.

CONTRIBUTION LAW:
  Σ details[i].Contribution = 100 (± decimal rounding) for any breakdown
  with a positive total weight. Zero-weight rows are dropped unless
  IncludeEmpty is set; they contribute 0.
*/
package matrix

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// SortKey orders breakdown rows.
type SortKey string

const (
	SortNatural      SortKey = ""
	SortWeight       SortKey = "weight"
	SortContribution SortKey = "contribution"
	SortBaseUp       SortKey = "baseUp"
	SortMerit        SortKey = "merit"
	SortAdditional   SortKey = "additional"
	SortBand         SortKey = "band"
	SortLevel        SortKey = "level"
	SortGrade        SortKey = "grade"
	SortPayZone      SortKey = "payZone"
)

// BreakdownQuery filters and orders a breakdown. Empty filters match all.
type BreakdownQuery struct {
	Bands        []string
	Levels       []string
	Grades       []string
	PayZones     []string // practical view only
	SortBy       SortKey
	Descending   bool
	IncludeEmpty bool
}

// Detail is one contributor row.
type Detail struct {
	Band          string          `json:"band"`
	Level         string          `json:"level"`
	Grade         string          `json:"grade"`
	PayZone       string          `json:"payZone,omitempty"`
	EmployeeCount int             `json:"employeeCount"`
	TotalSalary   decimal.Decimal `json:"totalSalary"`
	Rates         Rates           `json:"rates"`
	Weight        decimal.Decimal `json:"weight"`
	Contribution  decimal.Decimal `json:"contribution"`
}

// BreakdownSummary describes the breakdown as a whole.
type BreakdownSummary struct {
	DetailCount   int             `json:"detailCount"`
	EmployeeCount int             `json:"employeeCount"`
	TotalSalary   decimal.Decimal `json:"totalSalary"`
	TotalWeight   decimal.Decimal `json:"totalWeight"`
}

// WeightedAverageResult is the transparency view of a weighted average.
type WeightedAverageResult struct {
	TotalAverage Rates            `json:"totalAverage"`
	Details      []Detail         `json:"details"`
	Summary      BreakdownSummary `json:"summary"`
}

// Breakdown lists the grade slices of m that match q.
func (m *Matrix) Breakdown(q BreakdownQuery) WeightedAverageResult {
	bands, levels, grades := filter(q.Bands), filter(q.Levels), filter(q.Grades)

	var details []Detail
	m.each(func(c *Cell) {
		if !bands.match(c.Band) || !levels.match(c.Level) {
			return
		}
		for _, g := range m.meta.Grades {
			if !grades.match(g) {
				continue
			}
			mass := c.Statistics.GradeSalary[g]
			details = append(details, Detail{
				Band:          c.Band,
				Level:         c.Level,
				Grade:         g,
				EmployeeCount: c.Statistics.GradeDistribution[g],
				TotalSalary:   mass,
				Rates:         c.GradeRates[g],
				Weight:        mass,
			})
		}
	})
	return NewWeightedAverageResult(details, m.unit, q)
}

// NewWeightedAverageResult fills contributions, totals and ordering for a
// set of detail rows. Rows must carry Weight; Contribution is overwritten.
func NewWeightedAverageResult(details []Detail, unit Unit, q BreakdownQuery) WeightedAverageResult {
	var (
		ws      WeightedSum
		summary = BreakdownSummary{TotalSalary: decimal.Zero, TotalWeight: decimal.Zero}
		kept    = make([]Detail, 0, len(details))
	)
	for _, d := range details {
		if !q.IncludeEmpty && !d.Weight.IsPositive() {
			continue
		}
		ws.Add(d.Rates, d.Weight)
		summary.EmployeeCount += d.EmployeeCount
		summary.TotalSalary = summary.TotalSalary.Add(d.TotalSalary)
		kept = append(kept, d)
	}
	summary.TotalWeight = ws.Weight()
	summary.DetailCount = len(kept)

	for i := range kept {
		kept[i].Contribution = decimal.Zero
		if summary.TotalWeight.IsPositive() && kept[i].Weight.IsPositive() {
			kept[i].Contribution = kept[i].Weight.Div(summary.TotalWeight).Mul(hundred)
		}
	}
	SortDetails(kept, q.SortBy, q.Descending)

	return WeightedAverageResult{
		TotalAverage: ws.Average(unit),
		Details:      kept,
		Summary:      summary,
	}
}

// SortDetails orders rows in place. SortNatural keeps the input order.
func SortDetails(details []Detail, by SortKey, desc bool) {
	if by == SortNatural {
		if desc {
			for i, j := 0, len(details)-1; i < j; i, j = i+1, j-1 {
				details[i], details[j] = details[j], details[i]
			}
		}
		return
	}
	less := func(a, b Detail) bool {
		switch by {
		case SortWeight:
			return a.Weight.LessThan(b.Weight)
		case SortContribution:
			return a.Contribution.LessThan(b.Contribution)
		case SortBaseUp:
			return a.Rates.BaseUp.LessThan(b.Rates.BaseUp)
		case SortMerit:
			return a.Rates.Merit.LessThan(b.Rates.Merit)
		case SortAdditional:
			return a.Rates.Additional.Value.LessThan(b.Rates.Additional.Value)
		case SortBand:
			return a.Band < b.Band
		case SortLevel:
			return a.Level < b.Level
		case SortGrade:
			return a.Grade < b.Grade
		case SortPayZone:
			return a.PayZone < b.PayZone
		}
		return false
	}
	sort.SliceStable(details, func(i, j int) bool {
		if desc {
			return less(details[j], details[i])
		}
		return less(details[i], details[j])
	})
}

// ParseSortKey accepts the SortKey names case-insensitively.
func ParseSortKey(s string) (SortKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortNatural, nil
	}
	for _, k := range []SortKey{SortWeight, SortContribution, SortBaseUp, SortMerit, SortAdditional, SortBand, SortLevel, SortGrade, SortPayZone} {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", &ValidationError{Field: "sort", Value: s, Reason: "unknown sort key"}
}

type filterSet map[string]bool

func filter(values []string) filterSet {
	if len(values) == 0 {
		return nil
	}
	return filterSet(index(values))
}

func (f filterSet) match(v string) bool {
	return f == nil || f[v]
}

// Match reports whether v passes a query filter. Empty filters match all.
func Match(values []string, v string) bool {
	return filter(values).match(v)
}
