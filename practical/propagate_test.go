package practical_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/practical"
)

func TestSetRate_StaleUntilRecompute(t *testing.T) {
	// GIVEN: A zero-rated view
	v := buildZoned(t, practical.Options{})

	// WHEN: Editing one leaf
	require.NoError(t, v.SetRate("L1", "zone1", "X", "ST", matrix.FieldBaseUp, d("10")))

	// THEN: Its ancestors are stale and unchanged
	zt := cell(t, v, "L1", "zone1", practical.TotalKey, "ST")
	assert.True(t, zt.IsStale())
	assert.True(t, zt.Rates.BaseUp.IsZero())
	assert.True(t, cell(t, v, "L1", "all", "X", "ST").IsStale())
	assert.True(t, v.IsStale())
	assert.True(t, v.CompanyTotal().BaseUp.IsZero())
	// AND: Slices outside the leaf's ancestry are clean
	assert.False(t, cell(t, v, "L1", "zone2", practical.TotalKey, "ST").IsStale())

	// WHEN: Recomputing one parent
	require.NoError(t, v.RecomputeBandTotal("L1", "zone1", "ST"))
	assert.False(t, zt.IsStale())
	assert.True(t, zt.Rates.BaseUp.Equal(d("2.5")), "got %s", zt.Rates.BaseUp)
	assert.True(t, v.IsStale(), "other ancestors still pending")

	// WHEN: Recomputing everything
	v.Recompute()

	// THEN: every ancestor is derived from the leaves
	assert.False(t, v.IsStale())
	assert.True(t, cell(t, v, "L1", "all", "X", "ST").Rates.BaseUp.Equal(d("10")))
	assert.True(t, cell(t, v, "L1", "all", practical.TotalKey, "ST").Rates.BaseUp.Equal(d("2")))
	assert.InDelta(t, 1000.0/1100.0, f64(v.CompanyTotal().BaseUp), 1e-9)
}

func TestSetRate_Errors(t *testing.T) {
	v := buildZoned(t, practical.Options{})

	err := v.SetRate("L1", "all", "X", "ST", matrix.FieldBaseUp, d("1"))
	assert.ErrorIs(t, err, practical.ErrDerivedCell)
	assert.True(t, matrix.IsClientError(err))

	err = v.SetRate("L1", "zone1", practical.TotalKey, "ST", matrix.FieldBaseUp, d("1"))
	assert.ErrorIs(t, err, practical.ErrDerivedCell)

	err = v.SetRate("L1", "zone7", "X", "ST", matrix.FieldBaseUp, d("1"))
	assert.True(t, matrix.IsNotFound(err))

	err = v.SetRate("L1", "zone1", "X", "ST", matrix.Field("bonus"), d("1"))
	assert.ErrorIs(t, err, matrix.ErrUnknownField)

	var nf *practical.NotFoundError
	err = v.SetRate("L9", "zone1", "X", "ST", matrix.FieldBaseUp, d("1"))
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "L9", nf.Level)
}

func TestRecomputeZoneAll(t *testing.T) {
	v := buildZoned(t, practical.Options{})
	require.NoError(t, v.SetRate("L1", "zone1", "Y", "ST", matrix.FieldMerit, d("4")))

	require.NoError(t, v.RecomputeZoneAll("L1", "Y", "ST"))

	// (4*300 + 0*100) / 400
	ab := cell(t, v, "L1", "all", "Y", "ST")
	assert.True(t, ab.Rates.Merit.Equal(d("3")))
	assert.False(t, ab.IsStale())

	assert.True(t, matrix.IsNotFound(v.RecomputeZoneAll("L1", "Q", "ST")))
}

func TestDistributeToLevel_RoundTrip(t *testing.T) {
	// GIVEN: A value that does not divide evenly into the weights
	value := d("3.125")
	v := buildZoned(t, practical.Options{})

	// WHEN: Broadcasting to the whole level, then recomputing bottom-up
	require.NoError(t, v.DistributeToLevel("L1", "", matrix.FieldBaseUp, value))
	v.Recompute()

	// THEN: Every slice of the level, populated or not, is exactly V
	for zone, slice := range v.Hierarchy()["L1"] {
		for g, c := range slice.Total {
			assert.True(t, c.Rates.BaseUp.Equal(value), "%s/total/%s = %s", zone, g, c.Rates.BaseUp)
		}
		for b, row := range slice.ByBand {
			for g, c := range row {
				assert.True(t, c.Rates.BaseUp.Equal(value), "%s/%s/%s = %s", zone, b, g, c.Rates.BaseUp)
			}
		}
	}
	// AND: L2 is untouched
	assert.True(t, cell(t, v, "L2", "zone1", "X", "ST").Rates.BaseUp.IsZero())
}

func TestDistributeToBands_FullVersusPartialScope(t *testing.T) {
	t.Run("full scope sets the zone total explicitly", func(t *testing.T) {
		v := buildZoned(t, practical.Options{})

		require.NoError(t, v.DistributeToBands("L1", "zone1", "ST", matrix.FieldBaseUp, d("4"), nil))

		assert.True(t, cell(t, v, "L1", "zone1", practical.TotalKey, "ST").Rates.BaseUp.Equal(d("4")))
		// zone2 untouched; "all" slices recomputed from zones
		assert.True(t, cell(t, v, "L1", "all", "X", "ST").Rates.BaseUp.Equal(d("4")))
		assert.True(t, cell(t, v, "L1", "all", "Y", "ST").Rates.BaseUp.Equal(d("3")))
		// (4*100 + 3*400) / 500
		assert.True(t, cell(t, v, "L1", "all", practical.TotalKey, "ST").Rates.BaseUp.Equal(d("3.2")))
		assert.False(t, v.IsStale())
	})

	t.Run("partial scope recomputes the zone total", func(t *testing.T) {
		v := buildZoned(t, practical.Options{})

		require.NoError(t, v.DistributeToBands("L1", "zone1", "ST", matrix.FieldBaseUp, d("4"), []string{"X"}))

		assert.True(t, cell(t, v, "L1", "zone1", "X", "ST").Rates.BaseUp.Equal(d("4")))
		assert.True(t, cell(t, v, "L1", "zone1", "Y", "ST").Rates.BaseUp.IsZero())
		// (4*100 + 0*300) / 400
		assert.True(t, cell(t, v, "L1", "zone1", practical.TotalKey, "ST").Rates.BaseUp.Equal(d("1")))
	})

	t.Run("all zone reaches every zone", func(t *testing.T) {
		v := buildZoned(t, practical.Options{})

		require.NoError(t, v.DistributeToBands("L1", "all", "ST", matrix.FieldMerit, d("2"), []string{"Y"}))

		assert.True(t, cell(t, v, "L1", "zone1", "Y", "ST").Rates.Merit.Equal(d("2")))
		assert.True(t, cell(t, v, "L1", "zone2", "Y", "ST").Rates.Merit.Equal(d("2")))
		assert.True(t, cell(t, v, "L1", "all", "Y", "ST").Rates.Merit.Equal(d("2")))
		assert.True(t, cell(t, v, "L1", "zone1", "X", "ST").Rates.Merit.IsZero())
		// (0*100 + 2*400) / 500
		assert.True(t, cell(t, v, "L1", "all", practical.TotalKey, "ST").Rates.Merit.Equal(d("1.6")))
	})

	t.Run("unknown band", func(t *testing.T) {
		v := buildZoned(t, practical.Options{})
		err := v.DistributeToBands("L1", "zone1", "ST", matrix.FieldMerit, d("2"), []string{"Q"})
		assert.ErrorIs(t, err, matrix.ErrCellNotFound)
	})
}

func TestDistributeToZones(t *testing.T) {
	// GIVEN: A zero-rated view
	v := buildZoned(t, practical.Options{})

	// WHEN: Broadcasting merit across every zone of band Y
	require.NoError(t, v.DistributeToZones("L1", "Y", "ST", matrix.FieldMerit, d("2"), nil))

	// THEN: The "all" band slice is set, and zone totals are recomputed
	assert.True(t, cell(t, v, "L1", "all", "Y", "ST").Rates.Merit.Equal(d("2")))
	// zone1: (0*100 + 2*300) / 400
	assert.True(t, cell(t, v, "L1", "zone1", practical.TotalKey, "ST").Rates.Merit.Equal(d("1.5")))
	// zone2: only Y carries mass
	assert.True(t, cell(t, v, "L1", "zone2", practical.TotalKey, "ST").Rates.Merit.Equal(d("2")))

	// WHEN: Broadcasting the Total band across a subset of zones
	require.NoError(t, v.DistributeToZones("L1", practical.TotalKey, "ST", matrix.FieldMerit, d("6"), []string{"zone2"}))

	// THEN: zone2 is uniform, zone1 is not touched
	assert.True(t, cell(t, v, "L1", "zone2", practical.TotalKey, "ST").Rates.Merit.Equal(d("6")))
	assert.True(t, cell(t, v, "L1", "zone1", "Y", "ST").Rates.Merit.Equal(d("2")))
	// all/Y: (2*300 + 6*100) / 400
	assert.True(t, cell(t, v, "L1", "all", "Y", "ST").Rates.Merit.Equal(d("3")))

	assert.True(t, matrix.IsNotFound(v.DistributeToZones("L1", "Y", "ST", matrix.FieldMerit, d("1"), []string{"zone5"})))
}

func TestBottomUp_ZeroWeightParentKeepsPriorValue(t *testing.T) {
	// GIVEN: L2 zone2 carries no salary mass
	v := buildZoned(t, practical.Options{})

	// WHEN: Broadcasting into it and recomputing
	require.NoError(t, v.DistributeToBands("L2", "zone2", "ST", matrix.FieldMerit, d("7"), nil))
	zt := cell(t, v, "L2", "zone2", practical.TotalKey, "ST")
	require.True(t, zt.Rates.Merit.Equal(d("7")))
	v.Recompute()

	// THEN: The empty parent keeps the broadcast value and zero statistics
	assert.True(t, zt.Rates.Merit.Equal(d("7")))
	assert.Equal(t, 0, zt.Statistics.EmployeeCount)
	assert.True(t, zt.Statistics.TotalSalary.IsZero())
	// AND: The populated sibling zone dominates the "all" slice
	assert.True(t, cell(t, v, "L2", "all", "X", "ST").Rates.Merit.IsZero())
}

func TestApplyCompanyTotalToAll(t *testing.T) {
	// GIVEN: A view with uneven rates
	v := buildZoned(t, practical.Options{})
	require.NoError(t, v.DistributeToBands("L1", "zone1", "ST", matrix.FieldBaseUp, d("4"), []string{"X"}))
	require.NoError(t, v.SetRate("L2", "zone1", "X", "ST", matrix.FieldBaseUp, d("9")))

	// WHEN: Broadcasting from the root
	value := d("2.75")
	require.NoError(t, v.ApplyCompanyTotalToAll(matrix.FieldBaseUp, value))

	// THEN: Every cell, leaf and derived, and the root itself equal V
	assert.True(t, v.CompanyTotal().BaseUp.Equal(value))
	n := 0
	for _, zones := range v.Hierarchy() {
		for _, slice := range zones {
			for _, c := range slice.Total {
				assert.True(t, c.Rates.BaseUp.Equal(value))
				n++
			}
			for _, row := range slice.ByBand {
				for _, c := range row {
					assert.True(t, c.Rates.BaseUp.Equal(value))
					n++
				}
			}
		}
	}
	// 2 levels x 3 zones x (1 total + 2 bands) x 2 grades
	assert.Equal(t, 36, n)

	// AND: A recompute keeps the root at V
	v.Recompute()
	assert.True(t, v.CompanyTotal().BaseUp.Equal(value))
}

func TestDistributeToLevel_SettlesPendingEdits(t *testing.T) {
	// GIVEN: Pending leaf edits on the broadcast field and on another field
	v := buildZoned(t, practical.Options{})
	require.NoError(t, v.SetRate("L1", "zone1", "X", "ST", matrix.FieldBaseUp, d("10")))
	require.NoError(t, v.SetRate("L1", "zone1", "Y", "ST", matrix.FieldMerit, d("4")))
	require.True(t, v.IsStale())

	// WHEN: Broadcasting base-up to the whole level
	require.NoError(t, v.DistributeToLevel("L1", "ST", matrix.FieldBaseUp, d("3")))

	// THEN: Nothing is left stale
	assert.False(t, v.IsStale())
	zt := cell(t, v, "L1", "zone1", practical.TotalKey, "ST")
	assert.False(t, zt.IsStale())
	assert.False(t, cell(t, v, "L1", "all", practical.TotalKey, "ST").IsStale())
	assert.True(t, zt.Rates.BaseUp.Equal(d("3")))

	// AND: The other field is derived from the children: (4*300 + 0*100) / 400
	assert.True(t, zt.Rates.Merit.Equal(d("3")), "got %s", zt.Rates.Merit)
	assert.True(t, cell(t, v, "L1", "all", "Y", "ST").Rates.Merit.Equal(d("3")))
}

func TestApplyCompanyTotalToAll_SettlesPendingEdits(t *testing.T) {
	// GIVEN: A pending merit edit
	v := buildZoned(t, practical.Options{})
	require.NoError(t, v.SetRate("L1", "zone1", "Y", "ST", matrix.FieldMerit, d("4")))

	// WHEN: Broadcasting base-up from the root
	require.NoError(t, v.ApplyCompanyTotalToAll(matrix.FieldBaseUp, d("3")))

	// THEN: The view is clean and the merit edit reached its ancestors
	assert.False(t, v.IsStale())
	assert.True(t, v.CompanyTotal().BaseUp.Equal(d("3")))
	assert.True(t, cell(t, v, "L1", "all", "Y", "ST").Rates.Merit.Equal(d("3")))
	assert.True(t, cell(t, v, "L1", "zone1", "Y", "ST").Rates.Merit.Equal(d("4")))
}
