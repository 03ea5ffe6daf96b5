/*
propagate.go - Top-down and bottom-up edits on the practical hierarchy

PURPOSE:
  Same contract as matrix/propagate.go, on two axes (band and pay zone)
  instead of one. Leaves are the source of truth for rates; Total slices,
  the "all" zone and the company total are re-derived from them.

STATE MACHINE (per derived slice):
  Clean  --SetRate on a descendant-->  Edited
  Edited --RecomputeBandTotal / RecomputeZoneAll / Recompute-->  Clean

  SetRate never recomputes. Every Distribute* call and
  ApplyCompanyTotalToAll leaves all derived slices of the levels it touched,
  and the company total, equal to the weighted average of their children.

TOP-DOWN SCOPE:
  A broadcast writes one field of every leaf in (bands x zones) for the
  given grades. An ancestor whose children are ALL in scope is set to the
  broadcast value explicitly; an ancestor only partly covered is recomputed
  bottom-up. The two agree whenever the ancestor carries salary mass; they
  differ only for an empty ancestor, which keeps the explicit value.
  Either way every ancestor of the broadcast is re-derived on all fields
  first, so pending edits under it are settled and it ends Clean.

BOTTOM-UP:
  A parent with zero combined child weight keeps its prior rates.
*/
package practical

import (
	"github.com/shopspring/decimal"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/payzone"
)

// =============================================================================
// DIRECT EDITS
// =============================================================================

// SetRate writes one field of one leaf. Ancestors stay stale until a
// recompute.
func (v *View) SetRate(level, zone, band, grade string, field matrix.Field, value decimal.Decimal) error {
	f, err := matrix.ParseField(string(field))
	if err != nil {
		return err
	}
	c, err := v.leaf(level, zone, band, grade)
	if err != nil {
		return err
	}
	c.Rates = c.Rates.With(f, value)

	v.levels[c.Level][c.Zone].Total[c.Grade].stale = true
	if v.zoned() {
		v.allBand(c.Level, c.Band, c.Grade).stale = true
		v.levels[c.Level][payzone.AllKey].Total[c.Grade].stale = true
	}
	v.companyStale = true
	return nil
}

// =============================================================================
// TOP-DOWN
// =============================================================================

// DistributeToBands broadcasts across bands within one zone of a level. The
// "all" zone broadcasts to every zone. Empty bands means every band.
func (v *View) DistributeToBands(level, zone, grade string, field matrix.Field, value decimal.Decimal, bands []string) error {
	f, err := matrix.ParseField(string(field))
	if err != nil {
		return err
	}
	if err := v.checkLevelGrade(level, grade); err != nil {
		return err
	}
	zk, err := v.zoneKey(zone)
	if err != nil {
		return &NotFoundError{Level: level, Zone: zone, Grade: grade}
	}
	sel, fullBands, err := v.selectBands(level, bands)
	if err != nil {
		return err
	}

	zones := []string{zk}
	if zk == payzone.AllKey {
		zones = v.leaves
	}
	v.broadcast(level, scope{
		grades:    []string{grade},
		bands:     sel,
		zones:     zones,
		fullBands: fullBands,
		fullZones: zk == payzone.AllKey || len(v.leaves) == 1,
	}, f, value)
	return nil
}

// DistributeToZones broadcasts across zones within one band of a level.
// TotalKey as band covers every band. Empty zones means every zone.
func (v *View) DistributeToZones(level, band, grade string, field matrix.Field, value decimal.Decimal, zones []string) error {
	f, err := matrix.ParseField(string(field))
	if err != nil {
		return err
	}
	if err := v.checkLevelGrade(level, grade); err != nil {
		return err
	}

	bands, fullBands := v.meta.Bands, true
	if band != TotalKey {
		if !v.bandIndex[band] {
			return &NotFoundError{Level: level, Band: band, Grade: grade}
		}
		bands, fullBands = []string{band}, len(v.meta.Bands) == 1
	}
	sel, fullZones, err := v.selectZones(level, zones)
	if err != nil {
		return err
	}

	v.broadcast(level, scope{
		grades:    []string{grade},
		bands:     bands,
		zones:     sel,
		fullBands: fullBands,
		fullZones: fullZones,
	}, f, value)
	return nil
}

// DistributeToLevel broadcasts to every band and zone of a level. An empty
// grade covers every grade.
func (v *View) DistributeToLevel(level, grade string, field matrix.Field, value decimal.Decimal) error {
	f, err := matrix.ParseField(string(field))
	if err != nil {
		return err
	}
	grades := v.meta.Grades
	if grade != "" {
		if err := v.checkLevelGrade(level, grade); err != nil {
			return err
		}
		grades = []string{grade}
	} else if !v.levelIndex[level] {
		return &NotFoundError{Level: level}
	}

	v.broadcast(level, scope{
		grades:    grades,
		bands:     v.meta.Bands,
		zones:     v.leaves,
		fullBands: true,
		fullZones: true,
	}, f, value)
	return nil
}

// ApplyCompanyTotalToAll writes value into every cell, leaf and derived,
// and into the company total itself.
func (v *View) ApplyCompanyTotalToAll(field matrix.Field, value decimal.Decimal) error {
	f, err := matrix.ParseField(string(field))
	if err != nil {
		return err
	}
	// Settle pending edits of the other fields before overwriting f.
	v.Recompute()
	v.each(func(c *Cell) { c.Rates = c.Rates.With(f, value) })
	v.company = v.company.With(f, value)
	return nil
}

type scope struct {
	grades    []string
	bands     []string
	zones     []string // leaf zone keys
	fullBands bool
	fullZones bool
}

func (v *View) broadcast(level string, sc scope, f matrix.Field, value decimal.Decimal) {
	// A pinned ancestor is re-derived first so fields other than f, and its
	// stale flag, reflect the children; then f is set to the broadcast value.
	pinned := make(map[*Cell]bool)
	pin := func(c *Cell, children []*Cell) {
		derive(c, children)
		c.Rates = c.Rates.With(f, value)
		pinned[c] = true
	}

	for _, g := range sc.grades {
		for _, z := range sc.zones {
			s := v.levels[level][z]
			for _, b := range sc.bands {
				c := s.ByBand[b][g]
				c.Rates = c.Rates.With(f, value)
			}
			if sc.fullBands {
				pin(s.Total[g], v.bandChildren(level, z, g))
			}
		}
		if v.zoned() {
			if sc.fullZones {
				for _, b := range sc.bands {
					pin(v.allBand(level, b, g), v.zoneChildren(level, b, g))
				}
			}
			if sc.fullBands && sc.fullZones {
				pin(v.levels[level][payzone.AllKey].Total[g], v.bandChildren(level, payzone.AllKey, g))
			}
		}
	}

	for _, g := range sc.grades {
		v.settle(level, g, pinned)
	}
	v.recomputeCompany()
}

// =============================================================================
// BOTTOM-UP
// =============================================================================

// RecomputeBandTotal re-derives the Total slice of (level, zone, grade)
// from its bands. The "all" zone's Total reads the "all" band slices.
func (v *View) RecomputeBandTotal(level, zone, grade string) error {
	if err := v.checkLevelGrade(level, grade); err != nil {
		return err
	}
	zk, err := v.zoneKey(zone)
	if err != nil {
		return &NotFoundError{Level: level, Zone: zone, Grade: grade}
	}
	derive(v.levels[level][zk].Total[grade], v.bandChildren(level, zk, grade))
	return nil
}

// RecomputeZoneAll re-derives the "all" slice of (level, band, grade) from
// its zones. Without a zone axis the "all" slice is the leaf and this is a
// no-op.
func (v *View) RecomputeZoneAll(level, band, grade string) error {
	if err := v.checkLevelGrade(level, grade); err != nil {
		return err
	}
	if !v.bandIndex[band] {
		return &NotFoundError{Level: level, Zone: payzone.AllKey, Band: band, Grade: grade}
	}
	if !v.zoned() {
		return nil
	}
	derive(v.allBand(level, band, grade), v.zoneChildren(level, band, grade))
	return nil
}

// Recompute re-derives every derived slice and the company total.
func (v *View) Recompute() {
	for _, l := range v.meta.Levels {
		for _, g := range v.meta.Grades {
			v.settle(l, g, nil)
		}
	}
	v.recomputeCompany()
}

// IsStale reports whether any derived slice or the company total has
// pending child edits.
func (v *View) IsStale() bool {
	stale := v.companyStale
	v.each(func(c *Cell) { stale = stale || c.stale })
	return stale
}

// CompanyTotal is the salary-mass-weighted mean of every level's "all"
// zone Total slices, as of the last recompute or broadcast.
func (v *View) CompanyTotal() matrix.Rates {
	return v.company
}

// settle re-derives the derived slices of one (level, grade), children
// first. Pinned slices keep their broadcast value.
func (v *View) settle(level, grade string, pinned map[*Cell]bool) {
	if v.zoned() {
		for _, z := range v.leaves {
			if c := v.levels[level][z].Total[grade]; !pinned[c] {
				derive(c, v.bandChildren(level, z, grade))
			}
		}
		for _, b := range v.meta.Bands {
			if c := v.allBand(level, b, grade); !pinned[c] {
				derive(c, v.zoneChildren(level, b, grade))
			}
		}
	}
	if c := v.levels[level][payzone.AllKey].Total[grade]; !pinned[c] {
		derive(c, v.bandChildren(level, payzone.AllKey, grade))
	}
}

func (v *View) recomputeCompany() {
	var ws matrix.WeightedSum
	for _, l := range v.meta.Levels {
		for _, g := range v.meta.Grades {
			c := v.levels[l][payzone.AllKey].Total[g]
			ws.Add(c.Rates, c.Statistics.TotalSalary)
		}
	}
	v.company = ws.AverageOr(v.company)
	v.companyStale = false
}

// derive sets parent to the salary-mass-weighted mean of children, keeping
// its rates when the children carry no weight.
func derive(parent *Cell, children []*Cell) {
	var ws matrix.WeightedSum
	for _, ch := range children {
		ws.Add(ch.Rates, ch.Statistics.TotalSalary)
	}
	parent.Rates = ws.AverageOr(parent.Rates)
	parent.stale = false
}

// =============================================================================
// LOOKUP
// =============================================================================

func (v *View) checkLevelGrade(level, grade string) error {
	if !v.levelIndex[level] || !v.gradeIndex[grade] {
		return &NotFoundError{Level: level, Grade: grade}
	}
	return nil
}

func (v *View) leaf(level, zone, band, grade string) (*Cell, error) {
	if err := v.checkLevelGrade(level, grade); err != nil {
		return nil, err
	}
	zk, err := v.zoneKey(zone)
	if err != nil {
		return nil, &NotFoundError{Level: level, Zone: zone, Band: band, Grade: grade}
	}
	if band == TotalKey || (v.zoned() && zk == payzone.AllKey) {
		return nil, ErrDerivedCell
	}
	if !v.bandIndex[band] {
		return nil, &NotFoundError{Level: level, Zone: zk, Band: band, Grade: grade}
	}
	return v.levels[level][zk].ByBand[band][grade], nil
}

// selectBands validates a band scope. Empty means every band.
func (v *View) selectBands(level string, bands []string) ([]string, bool, error) {
	if len(bands) == 0 {
		return v.meta.Bands, true, nil
	}
	seen := make(map[string]bool, len(bands))
	out := make([]string, 0, len(bands))
	for _, b := range bands {
		if !v.bandIndex[b] {
			return nil, false, &NotFoundError{Level: level, Band: b}
		}
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out, len(out) == len(v.meta.Bands), nil
}

// selectZones validates a zone scope of leaf keys. Empty, or any "all"
// entry, means every zone.
func (v *View) selectZones(level string, zones []string) ([]string, bool, error) {
	if len(zones) == 0 {
		return v.leaves, true, nil
	}
	seen := make(map[string]bool, len(zones))
	out := make([]string, 0, len(zones))
	for _, raw := range zones {
		zk, err := v.zoneKey(raw)
		if err != nil {
			return nil, false, &NotFoundError{Level: level, Zone: raw}
		}
		if zk == payzone.AllKey {
			return v.leaves, true, nil
		}
		if !seen[zk] {
			seen[zk] = true
			out = append(out, zk)
		}
	}
	return out, len(out) == len(v.leaves), nil
}
