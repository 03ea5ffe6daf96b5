package matrix

import (
	"github.com/shopspring/decimal"
)

// Impact is the cost of a rate assignment against a budget.
type Impact struct {
	BaseSalary     decimal.Decimal `json:"baseSalary"`
	IncreaseAmount decimal.Decimal `json:"increaseAmount"`
	// IncreaseRate is IncreaseAmount as a percentage of BaseSalary.
	IncreaseRate decimal.Decimal            `json:"increaseRate"`
	Budget       decimal.Decimal            `json:"budget"`
	Remaining    decimal.Decimal            `json:"remaining"`
	OverBudget   bool                       `json:"overBudget"`
	ByLevel      map[string]decimal.Decimal `json:"byLevel"`
}

// BudgetImpact prices every grade slice of m. A percent additional adds
// mass × value / 100; a currency additional adds headcount × value. A zero
// budget means unbounded: Remaining is zero and OverBudget false.
func BudgetImpact(m *Matrix, budget decimal.Decimal) Impact {
	impact := Impact{
		BaseSalary:     decimal.Zero,
		IncreaseAmount: decimal.Zero,
		IncreaseRate:   decimal.Zero,
		Budget:         budget,
		Remaining:      decimal.Zero,
		ByLevel:        make(map[string]decimal.Decimal, len(m.meta.Levels)),
	}
	for _, l := range m.meta.Levels {
		impact.ByLevel[l] = decimal.Zero
	}

	m.each(func(c *Cell) {
		for _, g := range m.meta.Grades {
			mass := c.Statistics.GradeSalary[g]
			r := c.GradeRates[g]

			inc := mass.Mul(r.BaseUp.Add(r.Merit)).Div(hundred)
			if r.Additional.Unit == UnitCurrency {
				inc = inc.Add(r.Additional.Value.Mul(decimal.NewFromInt(int64(c.Statistics.GradeDistribution[g]))))
			} else {
				inc = inc.Add(mass.Mul(r.Additional.Value).Div(hundred))
			}

			impact.BaseSalary = impact.BaseSalary.Add(mass)
			impact.IncreaseAmount = impact.IncreaseAmount.Add(inc)
			impact.ByLevel[c.Level] = impact.ByLevel[c.Level].Add(inc)
		}
	})

	if impact.BaseSalary.IsPositive() {
		impact.IncreaseRate = impact.IncreaseAmount.Div(impact.BaseSalary).Mul(hundred)
	}
	if budget.IsPositive() {
		impact.Remaining = budget.Sub(impact.IncreaseAmount)
		impact.OverBudget = impact.Remaining.IsNegative()
	}
	return impact
}
