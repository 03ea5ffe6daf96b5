package scenario_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/payzone"
	"github.com/warp/comp-planner/practical"
	"github.com/warp/comp-planner/scenario"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixture() ([]matrix.Employee, matrix.Metadata) {
	emps := []matrix.Employee{
		{ID: "A", Band: "X", Level: "L1", PerformanceRating: "ST", PayZone: "1", CurrentSalary: d("100")},
		{ID: "B", Band: "X", Level: "L1", PerformanceRating: "AT", PayZone: "2", CurrentSalary: d("200")},
		{ID: "C", Band: "Y", Level: "L1", PerformanceRating: "ST", PayZone: "1", CurrentSalary: d("300")},
	}
	meta := matrix.Metadata{Bands: []string{"X", "Y"}, Levels: []string{"L1"}, Grades: []string{"ST", "AT"}, PayZones: []int{1, 2}}
	return emps, meta
}

func TestCaptureAndRestore(t *testing.T) {
	// GIVEN: A session with edits in both views
	emps, meta := fixture()
	m, err := matrix.Build(emps, meta, matrix.BuildOptions{AdditionalUnit: matrix.UnitCurrency})
	require.NoError(t, err)
	require.NoError(t, m.SetGradeRate("X", "L1", "AT", matrix.FieldMerit, d("4.5")))
	require.NoError(t, m.SetGradeRate("Y", "L1", "ST", matrix.FieldAdditional, d("250")))

	v, err := practical.Build(emps, meta, payzone.New(meta.PayZones), practical.Options{Seed: m})
	require.NoError(t, err)
	require.NoError(t, v.DistributeToBands("L1", "zone2", "ST", matrix.FieldBaseUp, d("6"), nil))

	// WHEN: Capturing, encoding and decoding
	snap := scenario.Capture(m, v)
	data, err := scenario.Encode(snap)
	require.NoError(t, err)
	decoded, err := scenario.Decode(data)
	require.NoError(t, err)

	// THEN: The unit and both assignments survive
	assert.Equal(t, matrix.UnitCurrency, decoded.AdditionalUnit)
	assert.Len(t, decoded.Matrix, 4)
	require.NotNil(t, decoded.CompanyTotal)

	m2, err := matrix.Build(emps, meta, matrix.BuildOptions{Prior: decoded.MatrixAssignment(), AdditionalUnit: decoded.AdditionalUnit})
	require.NoError(t, err)
	c, _ := m2.Cell("X", "L1")
	assert.True(t, c.GradeRates["AT"].Merit.Equal(d("4.5")))
	c, _ = m2.Cell("Y", "L1")
	assert.True(t, c.GradeRates["ST"].Additional.Value.Equal(d("250")))
	assert.Equal(t, matrix.UnitCurrency, c.GradeRates["ST"].Additional.Unit)

	v2, err := practical.Build(emps, meta, payzone.New(meta.PayZones), practical.Options{
		Prior:          decoded.PracticalAssignment(),
		CompanyTotal:   decoded.CompanyTotal,
		AdditionalUnit: decoded.AdditionalUnit,
	})
	require.NoError(t, err)
	zt, ok := v2.Cell("L1", "zone2", practical.TotalKey, "ST")
	require.True(t, ok)
	assert.True(t, zt.Rates.BaseUp.Equal(d("6")), "empty slice keeps its broadcast value")
	assert.True(t, v2.CompanyTotal().Equal(v.CompanyTotal()))
}

func TestCapture_MatrixOnly(t *testing.T) {
	emps, meta := fixture()
	m, err := matrix.Build(emps, meta, matrix.BuildOptions{})
	require.NoError(t, err)

	snap := scenario.Capture(m, nil)

	assert.Empty(t, snap.Practical)
	assert.Nil(t, snap.CompanyTotal)
	assert.Nil(t, snap.PracticalAssignment())
	assert.Equal(t, matrix.UnitPercent, snap.AdditionalUnit)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := scenario.Decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestMemory_CRUD(t *testing.T) {
	ctx := context.Background()
	store := scenario.NewMemory()

	// GIVEN: A new scenario
	s := &scenario.Scenario{Name: "conservative", SessionLabel: "2026", Snapshot: scenario.Snapshot{AdditionalUnit: matrix.UnitPercent}}

	// WHEN: Saving it
	require.NoError(t, store.Save(ctx, s))

	// THEN: ID, timestamps and version are assigned
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, s.Version)
	assert.False(t, s.CreatedAt.IsZero())

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "conservative", got.Name)

	// WHEN: Saving again
	s.Name = "moderate"
	require.NoError(t, store.Save(ctx, s))
	assert.Equal(t, 2, s.Version)

	other := &scenario.Scenario{Name: "other", SessionLabel: "2027", Snapshot: scenario.Snapshot{AdditionalUnit: matrix.UnitPercent}}
	require.NoError(t, store.Save(ctx, other))

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	mine, err := store.List(ctx, "2026")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "moderate", mine[0].Name)

	// Delete
	require.NoError(t, store.Delete(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, scenario.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, s.ID), scenario.ErrNotFound)
}

func TestMemory_RejectsInvalid(t *testing.T) {
	store := scenario.NewMemory()

	err := store.Save(context.Background(), &scenario.Scenario{Name: " "})
	assert.ErrorIs(t, err, scenario.ErrInvalidScenario)

	err = store.Save(context.Background(), &scenario.Scenario{Name: "x", Snapshot: scenario.Snapshot{AdditionalUnit: "yen"}})
	assert.ErrorIs(t, err, scenario.ErrInvalidScenario)
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	store := scenario.NewMemory()
	require.NoError(t, store.Save(ctx, &scenario.Scenario{Name: "a", Snapshot: scenario.Snapshot{AdditionalUnit: matrix.UnitPercent}}))

	require.NoError(t, store.Reset(ctx))

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}
