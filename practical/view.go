/*
Package practical provides the practical-recommendation view model.

PURPOSE:
  A second hierarchy over the same employees as the adjustment matrix, with
  the axes reordered for bulk-editing workflows:

    level -> zone ("all" | "zoneN") -> { Total: grade -> Cell,
                                         ByBand: band -> grade -> Cell }

  plus a company-total Rates that rolls up every level.

LEAVES AND DERIVED SLICES:
  With pay zones configured, leaves are (level, zoneN, band, grade). The
  "all" zone and every Total slice are derived:
    (level, zoneN, total, g) <- bands of (level, zoneN, *, g)
    (level, all,   band,  g) <- zones of (level, *, band, g)
    (level, all,   total, g) <- bands of (level, all, *, g)
  Without pay zones the only zone is "all" and its ByBand cells are the
  leaves.

  Derived slices are never written directly. They change only through a
  top-down broadcast or a bottom-up recompute (propagate.go).

SEE ALSO:
  - matrix: the Band x Level engine this view reuses (Rates, WeightedSum,
    breakdown rows)
  - payzone: zone keys and raw value resolution
*/
package practical

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/payzone"
)

// TotalKey addresses the Total slice of a zone in place of a band.
const TotalKey = "total"

// =============================================================================
// CELLS
// =============================================================================

// Statistics of one slice. Derived slices sum their children.
type Statistics struct {
	EmployeeCount int             `json:"employeeCount"`
	TotalSalary   decimal.Decimal `json:"totalSalary"`
	AverageSalary decimal.Decimal `json:"averageSalary"`
}

// Cell is one (level, zone, band, grade) slice. Band is TotalKey for the
// Total slice of a zone.
type Cell struct {
	Level      string       `json:"level"`
	Zone       string       `json:"zone"`
	Band       string       `json:"band"`
	Grade      string       `json:"grade"`
	Rates      matrix.Rates `json:"rates"`
	Statistics Statistics   `json:"statistics"`
	Derived    bool         `json:"derived"`

	stale bool
}

// IsStale reports whether a child changed since this slice was last derived.
func (c *Cell) IsStale() bool {
	return c.stale
}

func newCell(level, zone, band, grade string, unit matrix.Unit, derived bool) *Cell {
	return &Cell{
		Level:   level,
		Zone:    zone,
		Band:    band,
		Grade:   grade,
		Rates:   matrix.ZeroRates(unit),
		Derived: derived,
		Statistics: Statistics{
			TotalSalary:   decimal.Zero,
			AverageSalary: decimal.Zero,
		},
	}
}

// ZoneSlice is one zone of one level.
type ZoneSlice struct {
	Total  map[string]*Cell            `json:"total"`
	ByBand map[string]map[string]*Cell `json:"byBand"`
}

// CellKey addresses any cell of the view, leaf or derived.
type CellKey struct {
	Level string
	Zone  string
	Band  string
	Grade string
}

// Assignment maps cells to rates. It restores a previous practical session.
type Assignment map[CellKey]matrix.Rates

// =============================================================================
// VIEW
// =============================================================================

// Options tunes Build.
type Options struct {
	// Seed copies matrix grade rates into the leaves: (level, z, band, g)
	// takes the rates of matrix cell (band, level) grade g.
	Seed *matrix.Matrix

	// Prior restores every cell it names, leaf or derived. It wins over Seed.
	// An additional amount in another unit fails Build with ErrUnitMismatch.
	Prior Assignment

	// CompanyTotal restores the company total. It survives a rebuild only
	// when the view carries no salary mass.
	CompanyTotal *matrix.Rates

	// AdditionalUnit defaults to the seed matrix's unit, then percent.
	AdditionalUnit matrix.Unit
}

// View is the practical-recommendation hierarchy.
type View struct {
	meta    matrix.Metadata
	unit    matrix.Unit
	zones   *payzone.Config
	leaves  []string // leaf zone keys
	levels  map[string]map[string]*ZoneSlice
	company matrix.Rates
	// companyStale is set by leaf edits and cleared by Recompute.
	companyStale bool
	bandIndex    map[string]bool
	levelIndex   map[string]bool
	gradeIndex   map[string]bool
	diagnostics  matrix.Diagnostics
}

// Build constructs the view. A nil zones config falls back to
// meta.PayZones; with neither, the view has no zone axis.
func Build(employees []matrix.Employee, meta matrix.Metadata, zones *payzone.Config, opts Options) (*View, error) {
	meta = meta.Normalized()
	if zones == nil && len(meta.PayZones) > 0 {
		zones = payzone.New(meta.PayZones)
	}

	unit := opts.AdditionalUnit
	if unit == "" && opts.Seed != nil {
		unit = opts.Seed.AdditionalUnit()
	}
	unit, err := matrix.ParseUnit(string(unit))
	if err != nil {
		return nil, err
	}
	if opts.Seed != nil && opts.Seed.AdditionalUnit() != unit {
		return nil, matrix.ErrUnitMismatch
	}

	for k, r := range opts.Prior {
		if r.Additional.Unit != "" && r.Additional.Unit != unit {
			return nil, fmt.Errorf("%w: prior %s/%s/%s/%s is %s, view is %s",
				matrix.ErrUnitMismatch, k.Level, k.Zone, k.Band, k.Grade, r.Additional.Unit, unit)
		}
	}
	if ct := opts.CompanyTotal; ct != nil && ct.Additional.Unit != "" && ct.Additional.Unit != unit {
		return nil, fmt.Errorf("%w: company total is %s, view is %s", matrix.ErrUnitMismatch, ct.Additional.Unit, unit)
	}

	for _, e := range employees {
		if e.CurrentSalary.IsNegative() {
			return nil, &matrix.ValidationError{
				EmployeeID: e.ID,
				Field:      "currentSalary",
				Value:      e.CurrentSalary.String(),
				Reason:     "salary must not be negative",
			}
		}
	}

	v := &View{
		meta:       meta,
		unit:       unit,
		zones:      zones,
		leaves:     []string{payzone.AllKey},
		levels:     make(map[string]map[string]*ZoneSlice, len(meta.Levels)),
		company:    matrix.ZeroRates(unit),
		bandIndex:  indexOf(meta.Bands),
		levelIndex: indexOf(meta.Levels),
		gradeIndex: indexOf(meta.Grades),
	}
	if zones.Enabled() {
		v.leaves = zones.Keys()
		v.meta.PayZones = zones.Zones()
	}

	for _, l := range meta.Levels {
		slices := make(map[string]*ZoneSlice, len(v.leaves)+1)
		for _, z := range v.ZoneKeys() {
			slices[z] = v.newSlice(l, z)
		}
		v.levels[l] = slices
	}

	v.route(employees)
	v.sumStatistics()

	if opts.Seed != nil {
		v.eachLeaf(func(c *Cell) {
			if mc, ok := opts.Seed.Cell(c.Band, c.Level); ok {
				if r, ok := mc.GradeRates[c.Grade]; ok {
					c.Rates = r
				}
			}
		})
	}
	for k, r := range opts.Prior {
		if c, ok := v.Cell(k.Level, k.Zone, k.Band, k.Grade); ok {
			r.Additional.Unit = unit
			c.Rates = r
		}
	}
	if opts.CompanyTotal != nil {
		v.company = *opts.CompanyTotal
		v.company.Additional.Unit = unit
	}

	v.Recompute()
	return v, nil
}

func (v *View) newSlice(level, zone string) *ZoneSlice {
	derivedBands := v.zoned() && zone == payzone.AllKey
	s := &ZoneSlice{
		Total:  make(map[string]*Cell, len(v.meta.Grades)),
		ByBand: make(map[string]map[string]*Cell, len(v.meta.Bands)),
	}
	for _, g := range v.meta.Grades {
		s.Total[g] = newCell(level, zone, TotalKey, g, v.unit, true)
	}
	for _, b := range v.meta.Bands {
		row := make(map[string]*Cell, len(v.meta.Grades))
		for _, g := range v.meta.Grades {
			row[g] = newCell(level, zone, b, g, v.unit, derivedBands)
		}
		s.ByBand[b] = row
	}
	return s
}

// route drops each employee into its leaf. Exclusions follow matrix.Build,
// plus an unresolvable zone when the zone axis is active.
func (v *View) route(employees []matrix.Employee) {
	v.diagnostics.TotalEmployees = len(employees)
	for _, e := range employees {
		band := strings.TrimSpace(e.Band)
		level := strings.TrimSpace(e.Level)
		grade := strings.TrimSpace(e.PerformanceRating)
		switch {
		case band == "" || level == "":
			v.diagnostics.MissingKey++
			continue
		case !v.bandIndex[band]:
			v.diagnostics.UnmappedBand++
			continue
		case !v.levelIndex[level]:
			v.diagnostics.UnmappedLevel++
			continue
		case grade == "":
			v.diagnostics.MissingGrade++
			continue
		case !v.gradeIndex[grade]:
			v.diagnostics.UnmappedGrade++
			continue
		}

		zone := payzone.AllKey
		if v.zoned() {
			z, ok := v.zones.Resolve(e.PayZone, level)
			if !ok {
				v.diagnostics.UnresolvedZone++
				continue
			}
			zone = payzone.Key(z)
		}

		st := &v.levels[level][zone].ByBand[band][grade].Statistics
		st.EmployeeCount++
		st.TotalSalary = st.TotalSalary.Add(e.CurrentSalary)
	}
}

// sumStatistics fills derived statistics from the leaves and every average.
func (v *View) sumStatistics() {
	for _, l := range v.meta.Levels {
		for _, g := range v.meta.Grades {
			if v.zoned() {
				for _, b := range v.meta.Bands {
					sumInto(v.allBand(l, b, g), v.zoneChildren(l, b, g))
				}
			}
			for _, z := range v.ZoneKeys() {
				sumInto(v.levels[l][z].Total[g], v.bandChildren(l, z, g))
			}
		}
	}
	v.each(func(c *Cell) {
		st := &c.Statistics
		if st.EmployeeCount > 0 {
			st.AverageSalary = st.TotalSalary.Div(decimal.NewFromInt(int64(st.EmployeeCount)))
		}
	})
}

func sumInto(parent *Cell, children []*Cell) {
	parent.Statistics.EmployeeCount = 0
	parent.Statistics.TotalSalary = decimal.Zero
	for _, ch := range children {
		parent.Statistics.EmployeeCount += ch.Statistics.EmployeeCount
		parent.Statistics.TotalSalary = parent.Statistics.TotalSalary.Add(ch.Statistics.TotalSalary)
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Metadata returns a copy of the axes. PayZones lists the active zones.
func (v *View) Metadata() matrix.Metadata {
	return matrix.Metadata{
		Bands:    append([]string(nil), v.meta.Bands...),
		Levels:   append([]string(nil), v.meta.Levels...),
		Grades:   append([]string(nil), v.meta.Grades...),
		PayZones: append([]int(nil), v.meta.PayZones...),
	}
}

// AdditionalUnit is the unit every additional amount in the view carries.
func (v *View) AdditionalUnit() matrix.Unit {
	return v.unit
}

// Diagnostics reports employees left out of every leaf.
func (v *View) Diagnostics() matrix.Diagnostics {
	return v.diagnostics
}

// PayZonesEnabled reports whether the view has a zone axis.
func (v *View) PayZonesEnabled() bool {
	return v.zoned()
}

// ZoneKeys lists "all" followed by the leaf zone keys.
func (v *View) ZoneKeys() []string {
	if !v.zoned() {
		return []string{payzone.AllKey}
	}
	return append([]string{payzone.AllKey}, v.leaves...)
}

// Hierarchy returns level -> zone -> slice. The slices are the view's own;
// write through the propagation methods only.
func (v *View) Hierarchy() map[string]map[string]*ZoneSlice {
	return v.levels
}

// Slice returns one zone of one level.
func (v *View) Slice(level, zone string) (*ZoneSlice, bool) {
	key, err := v.zoneKey(zone)
	if err != nil {
		return nil, false
	}
	s, ok := v.levels[level][key]
	return s, ok
}

// Cell returns any cell. Pass TotalKey as band for a Total slice.
func (v *View) Cell(level, zone, band, grade string) (*Cell, bool) {
	s, ok := v.Slice(level, zone)
	if !ok {
		return nil, false
	}
	var c *Cell
	if band == TotalKey {
		c, ok = s.Total[grade]
	} else {
		c, ok = s.ByBand[band][grade]
	}
	return c, ok
}

// Assignment exports the rates of every cell, leaf and derived.
func (v *View) Assignment() Assignment {
	out := make(Assignment)
	v.each(func(c *Cell) {
		out[CellKey{Level: c.Level, Zone: c.Zone, Band: c.Band, Grade: c.Grade}] = c.Rates
	})
	return out
}

func (v *View) zoned() bool {
	return v.zones.Enabled()
}

// zoneKey canonicalises a zone key ("Zone2" -> "zone2").
func (v *View) zoneKey(raw string) (string, error) {
	z, all, err := payzone.ParseKey(raw)
	if err != nil {
		return "", &NotFoundError{Zone: raw}
	}
	if all {
		return payzone.AllKey, nil
	}
	if !v.zones.Contains(z) {
		return "", &NotFoundError{Zone: raw}
	}
	return payzone.Key(z), nil
}

func (v *View) allBand(level, band, grade string) *Cell {
	return v.levels[level][payzone.AllKey].ByBand[band][grade]
}

func (v *View) bandChildren(level, zone, grade string) []*Cell {
	s := v.levels[level][zone]
	out := make([]*Cell, 0, len(v.meta.Bands))
	for _, b := range v.meta.Bands {
		out = append(out, s.ByBand[b][grade])
	}
	return out
}

func (v *View) zoneChildren(level, band, grade string) []*Cell {
	out := make([]*Cell, 0, len(v.leaves))
	for _, z := range v.leaves {
		out = append(out, v.levels[level][z].ByBand[band][grade])
	}
	return out
}

// each visits every cell: level, zone, Total grades, then bands.
func (v *View) each(fn func(c *Cell)) {
	for _, l := range v.meta.Levels {
		for _, z := range v.ZoneKeys() {
			s := v.levels[l][z]
			for _, g := range v.meta.Grades {
				fn(s.Total[g])
			}
			for _, b := range v.meta.Bands {
				for _, g := range v.meta.Grades {
					fn(s.ByBand[b][g])
				}
			}
		}
	}
}

// eachLeaf visits the leaves only.
func (v *View) eachLeaf(fn func(c *Cell)) {
	for _, l := range v.meta.Levels {
		for _, z := range v.leaves {
			s := v.levels[l][z]
			for _, b := range v.meta.Bands {
				for _, g := range v.meta.Grades {
					fn(s.ByBand[b][g])
				}
			}
		}
	}
}

func indexOf(values []string) map[string]bool {
	out := make(map[string]bool, len(values))
	for _, s := range values {
		out[s] = true
	}
	return out
}
