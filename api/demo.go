/*
demo.go - Built-in demo datasets for testing and demonstrations

PURPOSE:
  Opens a session on a small, realistic dataset without uploading a
  workbook. Each demo shows one feature of the planner.

AVAILABLE DATASETS:
  three-employee:  the worked example (X/L1 ~3.667, Y/L1 5, L1 ~4.333)
  pay-zones:       three bands, three levels, pay zones per level
  currency-bonus:  additional raise as a flat currency amount
  dirty-data:      unmapped and blank keys, surfaced in diagnostics

USAGE VIA API:
  GET  /api/demos
  POST /api/sessions/demo
  {"dataset_id": "pay-zones"}

ADDING NEW DATASETS:
 1. Add an entry to 'demos' with ID, name, description
 2. Provide employees/metadata and an optional apply func for starting rates

SEE ALSO:
  - handlers.go: session endpoints
*/
package api

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/payzone"
)

// =============================================================================
// DATASET DEFINITIONS
// =============================================================================

type demo struct {
	DemoDTO
	unit  matrix.Unit
	data  func() Dataset
	apply func(s *Session) error
}

var demos = []demo{
	{
		DemoDTO: DemoDTO{
			ID:          "three-employee",
			Name:        "Three Employees",
			Description: "Two bands, one level, ST/AT grades with starting rates",
			Category:    "matrix",
		},
		data:  threeEmployeeData,
		apply: threeEmployeeRates,
	},
	{
		DemoDTO: DemoDTO{
			ID:          "pay-zones",
			Name:        "Pay Zones",
			Description: "Three bands and levels with per-level pay zones for the practical view",
			Category:    "practical",
		},
		data: payZoneData,
		apply: func(s *Session) error {
			return s.Matrix.ApplyToAll(matrix.FieldBaseUp, decimal.NewFromInt(3))
		},
	},
	{
		DemoDTO: DemoDTO{
			ID:          "currency-bonus",
			Name:        "Currency Bonus",
			Description: "Additional raise expressed as a flat currency amount per employee",
			Category:    "matrix",
		},
		unit: matrix.UnitCurrency,
		data: payZoneData,
		apply: func(s *Session) error {
			if err := s.Matrix.ApplyToGrade("S", matrix.FieldAdditional, decimal.NewFromInt(1500)); err != nil {
				return err
			}
			return s.Matrix.ApplyToGrade("A", matrix.FieldAdditional, decimal.NewFromInt(800))
		},
	},
	{
		DemoDTO: DemoDTO{
			ID:          "dirty-data",
			Name:        "Dirty Data",
			Description: "Blank and unmapped keys excluded from the matrix and counted",
			Category:    "diagnostics",
		},
		data: dirtyData,
	},
}

func findDemo(id string) (demo, bool) {
	for _, d := range demos {
		if d.ID == id {
			return d, true
		}
	}
	return demo{}, false
}

// ListDemos returns the available demo datasets.
func (h *Handler) ListDemos(w http.ResponseWriter, r *http.Request) {
	out := make([]DemoDTO, len(demos))
	for i, d := range demos {
		out[i] = d.DemoDTO
	}
	writeJSON(w, http.StatusOK, out)
}

// LoadDemo opens a new session on a demo dataset.
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	var req LoadDemoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	d, ok := findDemo(req.DatasetID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown dataset", nil)
		return
	}

	label := req.Label
	if label == "" {
		label = d.ID
	}
	s, err := h.Sessions.Create(label, d.data(), d.unit, h.Defaults.Budget)
	if err != nil {
		writeFailure(w, "Failed to build session", err)
		return
	}
	if d.apply != nil {
		if err := d.apply(s); err != nil {
			h.Sessions.Delete(s.ID)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load dataset: %v", err), err)
			return
		}
		s.Matrix.Recompute()
		if err := s.rebuildPracticalFromMatrix(); err != nil {
			h.Sessions.Delete(s.ID)
			writeFailure(w, "Failed to build practical view", err)
			return
		}
	}

	h.Log.Info().Str("session", s.ID).Str("dataset", d.ID).Int("employees", len(s.Data.Employees)).Msg("demo session created")
	writeJSON(w, http.StatusCreated, toSessionDTO(s))
}

// =============================================================================
// DATASET LOADERS
// =============================================================================

func emp(id, band, level, grade, zone string, salary int64) matrix.Employee {
	return matrix.Employee{
		ID:                id,
		Name:              "Employee " + id,
		Band:              band,
		Level:             level,
		PayZone:           zone,
		PerformanceRating: grade,
		CurrentSalary:     decimal.NewFromInt(salary),
	}
}

func threeEmployeeData() Dataset {
	return Dataset{
		Employees: []matrix.Employee{
			emp("A", "X", "L1", "ST", "", 100),
			emp("B", "X", "L1", "AT", "", 200),
			emp("C", "Y", "L1", "ST", "", 300),
		},
		Metadata: matrix.Metadata{Bands: []string{"X", "Y"}, Levels: []string{"L1"}, Grades: []string{"ST", "AT"}},
	}
}

func threeEmployeeRates(s *Session) error {
	rates := map[string]matrix.Rates{
		"ST": matrix.NewRates(5, 2, 0, matrix.UnitPercent),
		"AT": matrix.NewRates(3, 1, 0, matrix.UnitPercent),
	}
	for _, b := range []string{"X", "Y"} {
		for g, r := range rates {
			if err := s.Matrix.SetGradeRates(b, "L1", g, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func payZoneData() Dataset {
	employees := []matrix.Employee{
		emp("P01", "Production", "Staff", "S", "1", 42000),
		emp("P02", "Production", "Staff", "A", "2", 45000),
		emp("P03", "Production", "Staff", "B", "3", 47000),
		emp("P04", "Production", "Senior", "A", "1", 58000),
		emp("P05", "Production", "Senior", "B", "2", 61000),
		emp("P06", "Production", "Lead", "S", "1", 76000),
		emp("S01", "Sales", "Staff", "A", "1", 44000),
		emp("S02", "Sales", "Staff", "B", "2", 46500),
		emp("S03", "Sales", "Senior", "S", "2", 63000),
		emp("S04", "Sales", "Senior", "A", "3", 66000),
		emp("S05", "Sales", "Lead", "A", "2", 81000),
		emp("E01", "Engineering", "Staff", "S", "2", 52000),
		emp("E02", "Engineering", "Staff", "A", "3", 54000),
		emp("E03", "Engineering", "Senior", "S", "1", 70000),
		emp("E04", "Engineering", "Senior", "B", "3", 74000),
		emp("E05", "Engineering", "Lead", "A", "3", 93000),
		emp("E06", "Engineering", "Lead", "S", "1", 98000),
	}
	zones := payzone.New([]int{1, 2, 3})
	return Dataset{
		Employees: employees,
		Metadata: matrix.Metadata{
			Bands:    []string{"Production", "Sales", "Engineering"},
			Levels:   []string{"Staff", "Senior", "Lead"},
			Grades:   []string{"S", "A", "B"},
			PayZones: zones.Zones(),
		},
		PayZones: zones,
	}
}

func dirtyData() Dataset {
	return Dataset{
		Employees: []matrix.Employee{
			emp("D1", "X", "L1", "ST", "", 100),
			emp("D2", "X", "L1", "AT", "", 200),
			emp("D3", "", "L1", "ST", "", 300),  // blank band
			emp("D4", "Z", "L1", "ST", "", 400), // band off the axis
			emp("D5", "X", "L9", "ST", "", 500), // level off the axis
			emp("D6", "X", "L1", "", "", 600),   // blank grade
			emp("D7", "X", "L1", "ZZ", "", 700), // grade off the axis
		},
		Metadata: matrix.Metadata{Bands: []string{"X"}, Levels: []string{"L1"}, Grades: []string{"ST", "AT"}},
	}
}
