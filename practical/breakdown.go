package practical

import (
	"github.com/warp/comp-planner/matrix"
)

// Breakdown lists the leaves that match q, with their pay zone. Without a
// zone axis PayZone is empty and a PayZones filter matches "all" only.
func (v *View) Breakdown(q matrix.BreakdownQuery) matrix.WeightedAverageResult {
	var details []matrix.Detail
	for _, l := range v.meta.Levels {
		if !matrix.Match(q.Levels, l) {
			continue
		}
		for _, z := range v.leaves {
			if !matrix.Match(q.PayZones, z) {
				continue
			}
			s := v.levels[l][z]
			for _, b := range v.meta.Bands {
				if !matrix.Match(q.Bands, b) {
					continue
				}
				for _, g := range v.meta.Grades {
					if !matrix.Match(q.Grades, g) {
						continue
					}
					c := s.ByBand[b][g]
					row := matrix.Detail{
						Band:          b,
						Level:         l,
						Grade:         g,
						EmployeeCount: c.Statistics.EmployeeCount,
						TotalSalary:   c.Statistics.TotalSalary,
						Rates:         c.Rates,
						Weight:        c.Statistics.TotalSalary,
					}
					if v.zoned() {
						row.PayZone = z
					}
					details = append(details, row)
				}
			}
		}
	}
	return matrix.NewWeightedAverageResult(details, v.unit, q)
}
