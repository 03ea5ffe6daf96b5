/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine types
  (matrix.Cell, practical.ZoneSlice, matrix.Aggregated, ...) are returned
  as-is inside these wrappers; the wrappers add the session context the
  engine does not know about.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

RATE VALUES:
  Values are decimal.Decimal, which decodes from a JSON number or string.
  Send strings ("3.125") to keep full precision.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/practical"
	"github.com/warp/comp-planner/scenario"
	"github.com/warp/comp-planner/workbook"
)

// =============================================================================
// SESSIONS
// =============================================================================

// CreateSessionRequest is the JSON form of POST /api/sessions.
type CreateSessionRequest struct {
	Label          string            `json:"label"`
	Employees      []matrix.Employee `json:"employees"`
	Metadata       *matrix.Metadata  `json:"metadata,omitempty"`
	AdditionalUnit string            `json:"additional_unit,omitempty"`
	PayZones       []int             `json:"pay_zones,omitempty"`
	Budget         *decimal.Decimal  `json:"budget,omitempty"`
}

// SessionDTO summarizes a session.
type SessionDTO struct {
	ID              string                  `json:"id"`
	Label           string                  `json:"label,omitempty"`
	Sheet           string                  `json:"sheet,omitempty"`
	CreatedAt       string                  `json:"created_at"`
	EmployeeCount   int                     `json:"employee_count"`
	Metadata        matrix.Metadata         `json:"metadata"`
	AdditionalUnit  matrix.Unit             `json:"additional_unit"`
	PayZonesEnabled bool                    `json:"pay_zones_enabled"`
	Budget          decimal.Decimal         `json:"budget"`
	Diagnostics     matrix.Diagnostics      `json:"diagnostics"`
	Warnings        []workbook.ParseWarning `json:"warnings,omitempty"`
}

func toSessionDTO(s *Session) SessionDTO {
	return SessionDTO{
		ID:              s.ID,
		Label:           s.Label,
		Sheet:           s.Data.Sheet,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		EmployeeCount:   len(s.Data.Employees),
		Metadata:        s.Matrix.Metadata(),
		AdditionalUnit:  s.Matrix.AdditionalUnit(),
		PayZonesEnabled: s.Practical.PayZonesEnabled(),
		Budget:          s.Budget,
		Diagnostics:     s.Matrix.Diagnostics(),
		Warnings:        s.Data.Warnings,
	}
}

// =============================================================================
// MATRIX
// =============================================================================

// CellRef names a matrix cell.
type CellRef struct {
	Band  string `json:"band"`
	Level string `json:"level"`
}

// MatrixDTO is the full matrix of a session.
type MatrixDTO struct {
	Metadata       matrix.Metadata    `json:"metadata"`
	AdditionalUnit matrix.Unit        `json:"additional_unit"`
	Stale          bool               `json:"stale"`
	StaleCells     []CellRef          `json:"stale_cells"`
	Grid           [][]*matrix.Cell   `json:"grid"`
	Diagnostics    matrix.Diagnostics `json:"diagnostics"`
}

func toMatrixDTO(m *matrix.Matrix) MatrixDTO {
	stale := []CellRef{}
	for _, c := range m.StaleCells() {
		stale = append(stale, CellRef{Band: c.Band, Level: c.Level})
	}
	return MatrixDTO{
		Metadata:       m.Metadata(),
		AdditionalUnit: m.AdditionalUnit(),
		Stale:          m.IsStale(),
		StaleCells:     stale,
		Grid:           m.Grid(),
		Diagnostics:    m.Diagnostics(),
	}
}

// SetMatrixRateRequest edits one grade slice. Either Field+Value or Rates.
type SetMatrixRateRequest struct {
	Band  string           `json:"band"`
	Level string           `json:"level"`
	Grade string           `json:"grade"`
	Field string           `json:"field,omitempty"`
	Value *decimal.Decimal `json:"value,omitempty"`
	Rates *matrix.Rates    `json:"rates,omitempty"`
}

// Matrix distribute scopes.
const (
	ScopeBands = "bands"
	ScopeGrade = "grade"
	ScopeLevel = "level"
	ScopeAll   = "all"
)

// MatrixDistributeRequest pushes one value down the matrix.
//
//	scope=bands  level, grade, optional bands (DistributeAcrossBands)
//	scope=grade  grade                       (ApplyToGrade)
//	scope=level  level                       (ApplyToLevel)
//	scope=all                                (ApplyToAll)
type MatrixDistributeRequest struct {
	Scope string          `json:"scope"`
	Level string          `json:"level,omitempty"`
	Grade string          `json:"grade,omitempty"`
	Field string          `json:"field"`
	Value decimal.Decimal `json:"value"`
	Bands []string        `json:"bands,omitempty"`
}

// MatrixRecomputeRequest recomputes one cell when Band and Level are set,
// else the whole matrix.
type MatrixRecomputeRequest struct {
	Band  string `json:"band,omitempty"`
	Level string `json:"level,omitempty"`
}

// =============================================================================
// PRACTICAL VIEW
// =============================================================================

// PracticalDTO is the full practical hierarchy of a session.
type PracticalDTO struct {
	Metadata        matrix.Metadata                            `json:"metadata"`
	AdditionalUnit  matrix.Unit                                `json:"additional_unit"`
	PayZonesEnabled bool                                       `json:"pay_zones_enabled"`
	ZoneKeys        []string                                   `json:"zone_keys"`
	Stale           bool                                       `json:"stale"`
	CompanyTotal    matrix.Rates                               `json:"company_total"`
	Hierarchy       map[string]map[string]*practical.ZoneSlice `json:"hierarchy"`
	Diagnostics     matrix.Diagnostics                         `json:"diagnostics"`
}

func toPracticalDTO(v *practical.View) PracticalDTO {
	return PracticalDTO{
		Metadata:        v.Metadata(),
		AdditionalUnit:  v.AdditionalUnit(),
		PayZonesEnabled: v.PayZonesEnabled(),
		ZoneKeys:        v.ZoneKeys(),
		Stale:           v.IsStale(),
		CompanyTotal:    v.CompanyTotal(),
		Hierarchy:       v.Hierarchy(),
		Diagnostics:     v.Diagnostics(),
	}
}

// SetPracticalRateRequest edits one leaf cell.
type SetPracticalRateRequest struct {
	Level string          `json:"level"`
	Zone  string          `json:"zone"`
	Band  string          `json:"band"`
	Grade string          `json:"grade"`
	Field string          `json:"field"`
	Value decimal.Decimal `json:"value"`
}

// Practical distribute targets.
const (
	TargetBands = "bands"
	TargetZones = "zones"
	TargetLevel = "level"
)

// PracticalDistributeRequest pushes one value down the practical view.
//
//	target=bands  level, zone, grade, optional bands (DistributeToBands)
//	target=zones  level, band, grade, optional zones (DistributeToZones)
//	target=level  level, optional grade             (DistributeToLevel)
type PracticalDistributeRequest struct {
	Target string          `json:"target"`
	Level  string          `json:"level"`
	Zone   string          `json:"zone,omitempty"`
	Band   string          `json:"band,omitempty"`
	Grade  string          `json:"grade,omitempty"`
	Field  string          `json:"field"`
	Value  decimal.Decimal `json:"value"`
	Bands  []string        `json:"bands,omitempty"`
	Zones  []string        `json:"zones,omitempty"`
}

// Practical recompute scopes.
const (
	RecomputeBandTotal = "band-total"
	RecomputeZoneAll   = "zone-all"
)

// PracticalRecomputeRequest recomputes one derived slice, or everything
// when Scope is empty.
type PracticalRecomputeRequest struct {
	Scope string `json:"scope,omitempty"`
	Level string `json:"level,omitempty"`
	Zone  string `json:"zone,omitempty"`
	Band  string `json:"band,omitempty"`
	Grade string `json:"grade,omitempty"`
}

// CompanyTotalRequest broadcasts a company-wide value.
type CompanyTotalRequest struct {
	Field string          `json:"field"`
	Value decimal.Decimal `json:"value"`
}

// =============================================================================
// SCENARIOS & DEMOS
// =============================================================================

// SaveScenarioRequest names the snapshot of the current session.
type SaveScenarioRequest struct {
	Name string `json:"name"`
	// ID re-saves over an existing scenario, bumping its version.
	ID string `json:"id,omitempty"`
}

// ScenarioDTO describes a stored scenario without its rates.
type ScenarioDTO struct {
	ID             string      `json:"id"`
	SessionLabel   string      `json:"session_label,omitempty"`
	Name           string      `json:"name"`
	Version        int         `json:"version"`
	AdditionalUnit matrix.Unit `json:"additional_unit"`
	MatrixRates    int         `json:"matrix_rates"`
	PracticalRates int         `json:"practical_rates"`
	CreatedAt      string      `json:"created_at"`
	UpdatedAt      string      `json:"updated_at"`
}

func toScenarioDTO(sc scenario.Scenario) ScenarioDTO {
	return ScenarioDTO{
		ID:             sc.ID,
		SessionLabel:   sc.SessionLabel,
		Name:           sc.Name,
		Version:        sc.Version,
		AdditionalUnit: sc.Snapshot.AdditionalUnit,
		MatrixRates:    len(sc.Snapshot.Matrix),
		PracticalRates: len(sc.Snapshot.Practical),
		CreatedAt:      sc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      sc.UpdatedAt.Format(time.RFC3339),
	}
}

// DemoDTO describes a built-in demo dataset.
type DemoDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadDemoRequest opens a session on a demo dataset.
type LoadDemoRequest struct {
	DatasetID string `json:"dataset_id"`
	Label     string `json:"label,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeFailure picks the status from the error kind: unknown coordinates
// and IDs are 404, rejected input is 400, anything else 500.
func writeFailure(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case matrix.IsNotFound(err),
		errors.Is(err, scenario.ErrNotFound),
		errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
	case matrix.IsClientError(err),
		errors.Is(err, scenario.ErrInvalidScenario),
		errors.Is(err, workbook.ErrMissingColumn),
		errors.Is(err, workbook.ErrNoData):
		status = http.StatusBadRequest
	}
	writeError(w, status, message, err)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
