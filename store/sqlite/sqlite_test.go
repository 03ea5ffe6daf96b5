package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/scenario"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return store
}

func sampleScenario(name, label string) *scenario.Scenario {
	total := matrix.NewRates(2, 1, 0, matrix.UnitPercent)
	return &scenario.Scenario{
		Name:         name,
		SessionLabel: label,
		Snapshot: scenario.Snapshot{
			AdditionalUnit: matrix.UnitPercent,
			Matrix: []scenario.MatrixRate{
				{Band: "X", Level: "L1", Grade: "ST", Rates: matrix.NewRates(5, 2, 0.5, matrix.UnitPercent)},
			},
			Practical: []scenario.PracticalRate{
				{Level: "L1", Zone: "zone1", Band: "total", Grade: "ST", Rates: matrix.NewRates(3.125, 0, 0, matrix.UnitPercent)},
			},
			CompanyTotal: &total,
		},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// GIVEN: A new scenario
	sc := sampleScenario("conservative", "2026-plan")

	// WHEN: Saving it
	require.NoError(t, store.Save(ctx, sc))

	// THEN: It is readable with its snapshot intact
	assert.NotEmpty(t, sc.ID)
	assert.Equal(t, 1, sc.Version)

	got, err := store.Get(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "conservative", got.Name)
	assert.Equal(t, "2026-plan", got.SessionLabel)
	require.Len(t, got.Snapshot.Matrix, 1)
	assert.True(t, got.Snapshot.Matrix[0].Rates.Additional.Value.Equal(decimal.RequireFromString("0.5")))
	require.Len(t, got.Snapshot.Practical, 1)
	assert.True(t, got.Snapshot.Practical[0].Rates.BaseUp.Equal(decimal.RequireFromString("3.125")))
	require.NotNil(t, got.Snapshot.CompanyTotal)
	assert.True(t, got.Snapshot.CompanyTotal.Equal(*sc.Snapshot.CompanyTotal))
	assert.True(t, got.CreatedAt.Equal(sc.CreatedAt))
}

func TestStore_ResaveBumpsVersionAndKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sc := sampleScenario("draft", "")
	require.NoError(t, store.Save(ctx, sc))
	created := sc.CreatedAt

	sc.Name = "final"
	sc.CreatedAt = time.Time{}
	require.NoError(t, store.Save(ctx, sc))

	assert.Equal(t, 2, sc.Version)
	got, err := store.Get(ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Name)
	assert.Equal(t, 2, got.Version)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.UpdatedAt.After(created))
}

func TestStore_ListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := sampleScenario("first", "a")
	second := sampleScenario("second", "a")
	third := sampleScenario("third", "b")
	for _, sc := range []*scenario.Scenario{first, second, third} {
		require.NoError(t, store.Save(ctx, sc))
	}

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Name, "most recent first")

	onlyA, err := store.List(ctx, "a")
	require.NoError(t, err)
	require.Len(t, onlyA, 2)
	assert.Equal(t, "second", onlyA[0].Name)

	none, err := store.List(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_DeleteAndNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sc := sampleScenario("gone", "")
	require.NoError(t, store.Save(ctx, sc))

	require.NoError(t, store.Delete(ctx, sc.ID))

	_, err := store.Get(ctx, sc.ID)
	assert.ErrorIs(t, err, scenario.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, sc.ID), scenario.ErrNotFound)
}

func TestStore_RejectsInvalid(t *testing.T) {
	store := newTestStore(t)

	err := store.Save(context.Background(), &scenario.Scenario{})
	assert.ErrorIs(t, err, scenario.ErrInvalidScenario)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Save(ctx, sampleScenario("x", "")))

	require.NoError(t, store.Reset(ctx))

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}
