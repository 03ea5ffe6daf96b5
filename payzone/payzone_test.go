package payzone_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/comp-planner/payzone"
)

func TestNew_SortsAndDeduplicates(t *testing.T) {
	c := payzone.New([]int{3, 1, 3, 0, -2, 2})

	assert.Equal(t, []int{1, 2, 3}, c.Zones())
	assert.Equal(t, []string{"zone1", "zone2", "zone3"}, c.Keys())
	assert.True(t, c.Enabled())
	assert.True(t, c.Contains(2))
	assert.False(t, c.Contains(4))
}

func TestNilConfig_IsDisabled(t *testing.T) {
	var c *payzone.Config

	assert.False(t, c.Enabled())
	assert.Nil(t, c.Zones())
	_, ok := c.Resolve("1", "L1")
	assert.False(t, ok)
}

func TestResolve_RawFormats(t *testing.T) {
	c := payzone.New([]int{1, 2, 3})

	cases := []struct {
		raw   string
		level string
		want  int
		ok    bool
	}{
		{"2", "L1", 2, true},
		{" 3 ", "L1", 3, true},
		{"2.0", "L1", 2, true},
		{"zone1", "L1", 1, true},
		{"Zone 2", "L1", 2, true},
		{"Z3", "L1", 3, true},
		{"L2-3", "L2", 3, true},
		{"l2_z1", "L2", 1, true},
		{"", "L1", 0, false},
		{"4", "L1", 0, false},
		{"2.5", "L1", 0, false},
		{"abc", "L1", 0, false},
		{"0", "L1", 0, false},
	}
	for _, tc := range cases {
		got, ok := c.Resolve(tc.raw, tc.level)
		assert.Equal(t, tc.ok, ok, "raw=%q", tc.raw)
		assert.Equal(t, tc.want, got, "raw=%q", tc.raw)
	}
}

func TestDetect_CollectsDistinctZones(t *testing.T) {
	c := payzone.Detect([]payzone.Observation{
		{Raw: "2", Level: "L1"},
		{Raw: "L1-1", Level: "L1"},
		{Raw: "", Level: "L1"},
		{Raw: "zone2", Level: "L2"},
	})

	assert.Equal(t, []int{1, 2}, c.Zones())
}

func TestParseKey(t *testing.T) {
	z, all, err := payzone.ParseKey("all")
	require.NoError(t, err)
	assert.True(t, all)
	assert.Zero(t, z)

	z, all, err = payzone.ParseKey("zone4")
	require.NoError(t, err)
	assert.False(t, all)
	assert.Equal(t, 4, z)

	_, _, err = payzone.ParseKey("zone")
	assert.Error(t, err)
	_, _, err = payzone.ParseKey("4")
	assert.Error(t, err)
}
