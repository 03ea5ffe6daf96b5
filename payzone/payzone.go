/*
Package payzone provides the pay-zone configuration used by the matrix
and practical-recommendation builders.

PURPOSE:
  A pay zone is a salary-range bucket inside a level. Source workbooks encode
  it inconsistently: a bare integer ("2"), a prefixed label ("zone2", "Z2")
  or a level-coded string ("L3-2", "L3_Z2"). Config turns those raw values
  into zone numbers and exposes the ordered zone axis.

LIFETIME:
  A Config is constructed explicitly (New or Detect) and passed into
  matrix.Build / practical.Build. It is owned by the editing session; there
  is no package-level instance.

ZONE KEYS:
  The practical hierarchy addresses zones by key:
    "all"    derived slice across every zone of a level
    "zoneN"  the leaf slice for zone N

SEE ALSO:
  - matrix/builder.go: payZoneDistribution statistics
  - practical/view.go: Level -> PayZone -> Band -> Grade hierarchy
*/
package payzone

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AllKey addresses the derived slice that spans every zone of a level.
const AllKey = "all"

const keyPrefix = "zone"

// Config is the ordered set of pay zones known to a session.
type Config struct {
	zones []int
	known map[int]bool
}

// New creates a config from the given zone numbers. Non-positive numbers are
// ignored; duplicates are collapsed and the result is sorted.
func New(zones []int) *Config {
	c := &Config{known: make(map[int]bool)}
	for _, z := range zones {
		if z <= 0 || c.known[z] {
			continue
		}
		c.known[z] = true
		c.zones = append(c.zones, z)
	}
	sort.Ints(c.zones)
	return c
}

// Observation is one raw pay-zone value as it appeared next to a level.
type Observation struct {
	Raw   string
	Level string
}

// Detect builds a config from the zone values present in source data.
func Detect(obs []Observation) *Config {
	var zones []int
	for _, o := range obs {
		if z, ok := parse(o.Raw, o.Level); ok {
			zones = append(zones, z)
		}
	}
	return New(zones)
}

// Enabled reports whether any zone is configured. A nil config is disabled.
func (c *Config) Enabled() bool {
	return c != nil && len(c.zones) > 0
}

// Zones returns the zone numbers in ascending order.
func (c *Config) Zones() []int {
	if c == nil {
		return nil
	}
	out := make([]int, len(c.zones))
	copy(out, c.zones)
	return out
}

// Keys returns the leaf zone keys ("zone1", "zone2", ...) in zone order.
func (c *Config) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, len(c.zones))
	for i, z := range c.zones {
		keys[i] = Key(z)
	}
	return keys
}

// Contains reports whether zone is part of the config.
func (c *Config) Contains(zone int) bool {
	return c != nil && c.known[zone]
}

// Resolve maps a raw pay-zone value to a configured zone number. The level
// is used to strip level-coded prefixes such as "L3-2".
func (c *Config) Resolve(raw, level string) (int, bool) {
	if !c.Enabled() {
		return 0, false
	}
	z, ok := parse(raw, level)
	if !ok || !c.known[z] {
		return 0, false
	}
	return z, true
}

// Key returns the hierarchy key of a zone number.
func Key(zone int) string {
	return keyPrefix + strconv.Itoa(zone)
}

// ParseKey splits a hierarchy key into its zone number. The all-zones key
// returns (0, true, nil).
func ParseKey(key string) (zone int, all bool, err error) {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == AllKey {
		return 0, true, nil
	}
	if !strings.HasPrefix(k, keyPrefix) {
		return 0, false, fmt.Errorf("invalid pay zone key %q", key)
	}
	z, err := strconv.Atoi(strings.TrimPrefix(k, keyPrefix))
	if err != nil || z <= 0 {
		return 0, false, fmt.Errorf("invalid pay zone key %q", key)
	}
	return z, false, nil
}

func parse(raw, level string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, false
	}

	// Level-coded values: "L3-2", "l3_z2", "L3 zone 2"
	if lv := strings.ToLower(strings.TrimSpace(level)); lv != "" && strings.HasPrefix(s, lv) && len(s) > len(lv) {
		rest := s[len(lv):]
		if rest[0] == '-' || rest[0] == '_' || rest[0] == ' ' || rest[0] == '/' {
			s = strings.TrimLeft(rest, "-_ /")
		}
	}

	s = strings.TrimPrefix(s, keyPrefix)
	s = strings.TrimPrefix(s, "z")
	s = strings.TrimSpace(s)

	if z, err := strconv.Atoi(s); err == nil {
		return z, z > 0
	}
	// Spreadsheet numerics arrive as "2.0"
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) || f <= 0 {
		return 0, false
	}
	return int(f), true
}
