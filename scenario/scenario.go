/*
Package scenario persists named snapshots of a planning session.

PURPOSE:
  A planner saves the rate assignments of an editing session ("conservative",
  "aggressive", ...) and later reloads them over the same or refreshed
  employee data. A scenario stores rates only; statistics are always
  re-derived from the employees on load.

WHAT IS CAPTURED:
  - the matrix grade rates, keyed by (band, level, grade)
  - every practical-view cell, leaf and derived, keyed by
    (level, zone, band, grade)
  - the practical company total
  - the additional unit, so amounts never change meaning on reload

STORES:
  - Memory (memory.go): in-process, for tests and the no-database mode
  - store/sqlite: durable, one JSON snapshot column per scenario

SEE ALSO:
  - matrix.Build / practical.Build: Prior options consume the assignments
  - api/sessions.go: save / load endpoints
*/
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/practical"
)

var (
	// ErrNotFound is returned when no scenario has the requested ID.
	ErrNotFound = errors.New("scenario not found")

	// ErrInvalidScenario is returned for a scenario that cannot be stored.
	ErrInvalidScenario = errors.New("invalid scenario")
)

// =============================================================================
// TYPES
// =============================================================================

// MatrixRate is one matrix grade slice.
type MatrixRate struct {
	Band  string       `json:"band"`
	Level string       `json:"level"`
	Grade string       `json:"grade"`
	Rates matrix.Rates `json:"rates"`
}

// PracticalRate is one practical-view cell.
type PracticalRate struct {
	Level string       `json:"level"`
	Zone  string       `json:"zone"`
	Band  string       `json:"band"`
	Grade string       `json:"grade"`
	Rates matrix.Rates `json:"rates"`
}

// Snapshot holds the rates of one session.
type Snapshot struct {
	AdditionalUnit matrix.Unit     `json:"additionalUnit"`
	Matrix         []MatrixRate    `json:"matrix"`
	Practical      []PracticalRate `json:"practical,omitempty"`
	CompanyTotal   *matrix.Rates   `json:"companyTotal,omitempty"`
}

// Scenario is a named, stored snapshot.
type Scenario struct {
	ID           string    `json:"id"`
	SessionLabel string    `json:"sessionLabel,omitempty"`
	Name         string    `json:"name"`
	Snapshot     Snapshot  `json:"snapshot"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Validate checks the fields a store needs.
func (s *Scenario) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidScenario)
	}
	if _, err := matrix.ParseUnit(string(s.Snapshot.AdditionalUnit)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return nil
}

// Touch assigns an ID on first save and stamps the timestamps.
func (s *Scenario) Touch(now time.Time) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
}

// =============================================================================
// CAPTURE & RESTORE
// =============================================================================

// Capture snapshots the rates of m and, when non-nil, v.
func Capture(m *matrix.Matrix, v *practical.View) Snapshot {
	snap := Snapshot{AdditionalUnit: m.AdditionalUnit()}

	meta := m.Metadata()
	for _, b := range meta.Bands {
		for _, l := range meta.Levels {
			c, _ := m.Cell(b, l)
			for _, g := range meta.Grades {
				snap.Matrix = append(snap.Matrix, MatrixRate{Band: b, Level: l, Grade: g, Rates: c.GradeRates[g]})
			}
		}
	}

	if v == nil {
		return snap
	}
	for k, r := range v.Assignment() {
		snap.Practical = append(snap.Practical, PracticalRate{Level: k.Level, Zone: k.Zone, Band: k.Band, Grade: k.Grade, Rates: r})
	}
	sort.Slice(snap.Practical, func(i, j int) bool {
		a, b := snap.Practical[i], snap.Practical[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.Zone != b.Zone {
			return a.Zone < b.Zone
		}
		if a.Band != b.Band {
			return a.Band < b.Band
		}
		return a.Grade < b.Grade
	})
	total := v.CompanyTotal()
	snap.CompanyTotal = &total
	return snap
}

// MatrixAssignment returns the matrix rates as a Prior for matrix.Build.
func (s Snapshot) MatrixAssignment() matrix.Assignment {
	out := make(matrix.Assignment, len(s.Matrix))
	for _, r := range s.Matrix {
		out[matrix.GradeKey{Band: r.Band, Level: r.Level, Grade: r.Grade}] = r.Rates
	}
	return out
}

// PracticalAssignment returns the practical rates as a Prior for
// practical.Build. It is nil when the snapshot has no practical view.
func (s Snapshot) PracticalAssignment() practical.Assignment {
	if len(s.Practical) == 0 {
		return nil
	}
	out := make(practical.Assignment, len(s.Practical))
	for _, r := range s.Practical {
		out[practical.CellKey{Level: r.Level, Zone: r.Zone, Band: r.Band, Grade: r.Grade}] = r.Rates
	}
	return out
}

// =============================================================================
// JSON CODEC
// =============================================================================

// Encode serialises a snapshot for storage.
func Encode(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a stored snapshot.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.AdditionalUnit == "" {
		s.AdditionalUnit = matrix.UnitPercent
	}
	return s, nil
}
