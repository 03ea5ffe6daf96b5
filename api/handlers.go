/*
handlers.go - HTTP API handlers for the compensation planner

PURPOSE:
  Exposes the planning engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the matrix, practical, workbook and
  scenario packages.

ENDPOINTS:
  Sessions:
    GET    /api/sessions                      List live sessions
    POST   /api/sessions                      Create (JSON dataset or multipart "file")
    POST   /api/sessions/demo                 Create from a demo dataset
    GET    /api/sessions/{id}                 Session summary
    DELETE /api/sessions/{id}                 Drop a session
    GET    /api/sessions/{id}/export          Download .xlsx

  Matrix:
    GET    /api/sessions/{id}/matrix          Full grid
    PUT    /api/sessions/{id}/matrix/rates    Edit one grade slice
    POST   /api/sessions/{id}/matrix/distribute
    POST   /api/sessions/{id}/matrix/recompute
    GET    /api/sessions/{id}/aggregated      Rollups by band/level/grade
    GET    /api/sessions/{id}/breakdown       Weighted-average breakdown
    GET    /api/sessions/{id}/budget          Budget impact

  Practical view:
    GET    /api/sessions/{id}/practical
    PUT    /api/sessions/{id}/practical/rates
    POST   /api/sessions/{id}/practical/distribute
    POST   /api/sessions/{id}/practical/recompute
    POST   /api/sessions/{id}/practical/company-total
    POST   /api/sessions/{id}/practical/reseed

  Scenarios:
    GET    /api/scenarios                     List (optional ?label=)
    DELETE /api/scenarios                     Remove every saved scenario
    GET    /api/scenarios/{scenarioID}
    DELETE /api/scenarios/{scenarioID}
    POST   /api/sessions/{id}/scenarios       Save the session's rates
    POST   /api/sessions/{id}/scenarios/{scenarioID}/load

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Sessions: live in-memory planning sessions
  - Store: saved scenarios
  - Defaults: planning settings applied to new sessions

REQUEST FLOW:
  1. Resolve the session (404 when unknown or reaped)
  2. Lock it for the whole request
  3. Decode and validate input
  4. Call the engine
  5. Serialize the affected model

EVENTUAL CONSISTENCY:
  Edits do not recompute ancestors. Responses carry "stale" so the client
  knows to call .../recompute before trusting rollups.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unknown field, unit mismatch, derived-cell edit
  - 404: Unknown session, scenario or coordinates
  - 500: Internal errors

SECURITY NOTE:
  No authentication. The server is meant to run on a planner's machine.

SEE ALSO:
  - dto.go: Request/response data structures
  - demo.go: Demo datasets
  - server.go: Router setup and middleware
*/
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/payzone"
	"github.com/warp/comp-planner/scenario"
	"github.com/warp/comp-planner/workbook"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Defaults are applied to sessions that do not set their own.
type Defaults struct {
	Unit     matrix.Unit
	PayZones *payzone.Config
	Budget   decimal.Decimal
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Sessions *Sessions
	Store    scenario.Store
	Defaults Defaults
	Log      zerolog.Logger

	// MaxUploadBytes caps multipart workbook uploads.
	MaxUploadBytes int64
}

// NewHandler creates a new handler with the given store.
func NewHandler(store scenario.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		Sessions:       NewSessions(),
		Store:          store,
		Defaults:       Defaults{Unit: matrix.UnitPercent},
		Log:            logger,
		MaxUploadBytes: 32 << 20,
	}
}

// session resolves {id} and writes 404 on failure.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found", err)
		return nil, false
	}
	return s, true
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// ListSessions returns all live sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.Sessions.List()
	dtos := make([]SessionDTO, 0, len(sessions))
	for _, s := range sessions {
		s.Lock()
		dtos = append(dtos, toSessionDTO(s))
		s.Unlock()
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSession builds a session from a JSON dataset or an uploaded workbook.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var (
		label  string
		data   Dataset
		unit   = h.Defaults.Unit
		budget = h.Defaults.Budget
		err    error
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		label, data, unit, budget, err = h.readUpload(r)
	} else {
		label, data, unit, budget, err = h.readDataset(r)
	}
	if err != nil {
		writeFailure(w, "Invalid dataset", err)
		return
	}

	s, err := h.Sessions.Create(label, data, unit, budget)
	if err != nil {
		writeFailure(w, "Failed to build session", err)
		return
	}

	d := s.Matrix.Diagnostics()
	h.Log.Info().
		Str("session", s.ID).
		Int("employees", len(data.Employees)).
		Int("excluded", d.ExcludedFromCells()).
		Int("warnings", len(data.Warnings)).
		Bool("pay_zones", s.Practical.PayZonesEnabled()).
		Msg("session created")
	writeJSON(w, http.StatusCreated, toSessionDTO(s))
}

func (h *Handler) readUpload(r *http.Request) (string, Dataset, matrix.Unit, decimal.Decimal, error) {
	unit, budget := h.Defaults.Unit, h.Defaults.Budget
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		return "", Dataset{}, unit, budget, fmt.Errorf("%w: %v", matrix.ErrInvalidInput, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", Dataset{}, unit, budget, fmt.Errorf("%w: file: %v", matrix.ErrInvalidInput, err)
	}
	defer file.Close()

	ds, err := workbook.Parse(file, workbook.Options{Sheet: r.FormValue("sheet")})
	if err != nil {
		return "", Dataset{}, unit, budget, fmt.Errorf("%w: %v", matrix.ErrInvalidInput, err)
	}

	if u := r.FormValue("additional_unit"); u != "" {
		if unit, err = matrix.ParseUnit(u); err != nil {
			return "", Dataset{}, unit, budget, err
		}
	}
	if b := r.FormValue("budget"); b != "" {
		if budget, err = parseBudget(b); err != nil {
			return "", Dataset{}, unit, budget, err
		}
	}

	label := r.FormValue("label")
	if label == "" {
		label = header.Filename
	}
	data := Dataset{
		Sheet:     ds.Sheet,
		Employees: ds.Employees,
		Metadata:  ds.Metadata,
		PayZones:  ds.PayZones,
		Warnings:  ds.Warnings,
	}
	h.applyZoneDefault(&data)
	return label, data, unit, budget, nil
}

func (h *Handler) readDataset(r *http.Request) (string, Dataset, matrix.Unit, decimal.Decimal, error) {
	unit, budget := h.Defaults.Unit, h.Defaults.Budget
	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		return "", Dataset{}, unit, budget, fmt.Errorf("%w: %v", matrix.ErrInvalidInput, err)
	}
	if len(req.Employees) == 0 {
		return "", Dataset{}, unit, budget, fmt.Errorf("%w: employees are required", matrix.ErrInvalidInput)
	}

	var err error
	if req.AdditionalUnit != "" {
		if unit, err = matrix.ParseUnit(req.AdditionalUnit); err != nil {
			return "", Dataset{}, unit, budget, err
		}
	}
	if req.Budget != nil {
		if req.Budget.IsNegative() {
			return "", Dataset{}, unit, budget, &matrix.ValidationError{Field: "budget", Value: req.Budget.String(), Reason: "must not be negative"}
		}
		budget = *req.Budget
	}

	data := Dataset{Employees: req.Employees}
	if req.Metadata != nil {
		data.Metadata = req.Metadata.Normalized()
	} else {
		data.Metadata = matrix.DeriveMetadata(req.Employees)
	}

	switch {
	case len(req.PayZones) > 0:
		data.PayZones = payzone.New(req.PayZones)
	case len(data.Metadata.PayZones) > 0:
		data.PayZones = payzone.New(data.Metadata.PayZones)
	default:
		var obs []payzone.Observation
		for _, e := range req.Employees {
			if e.PayZone != "" {
				obs = append(obs, payzone.Observation{Raw: e.PayZone, Level: e.Level})
			}
		}
		data.PayZones = payzone.Detect(obs)
	}
	h.applyZoneDefault(&data)
	return req.Label, data, unit, budget, nil
}

// applyZoneDefault falls back to the configured zones and keeps
// Metadata.PayZones in line with the zone config.
func (h *Handler) applyZoneDefault(data *Dataset) {
	if !data.PayZones.Enabled() && h.Defaults.PayZones.Enabled() {
		data.PayZones = h.Defaults.PayZones
	}
	data.Metadata.PayZones = data.PayZones.Zones()
}

// GetSession returns a session summary.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// DeleteSession drops a session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Sessions.Delete(id); err != nil {
		writeFailure(w, "Session not found", err)
		return
	}
	h.Log.Info().Str("session", id).Msg("session deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ExportSession streams the session as an .xlsx workbook.
func (h *Handler) ExportSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	f, err := workbook.NewFile(s.Matrix, s.Practical, workbook.ExportOptions{Budget: s.Budget})
	if err != nil {
		writeFailure(w, "Failed to export", err)
		return
	}
	defer f.Close()

	name := s.Label
	if name == "" {
		name = s.ID
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		h.Log.Error().Err(err).Str("session", s.ID).Msg("export write failed")
	}
}

// =============================================================================
// MATRIX HANDLERS
// =============================================================================

// GetMatrix returns the full grid.
func (h *Handler) GetMatrix(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()
	writeJSON(w, http.StatusOK, toMatrixDTO(s.Matrix))
}

// SetMatrixRate edits one grade slice and returns its cell. The cell's
// weighted average is stale until recomputed.
func (h *Handler) SetMatrixRate(w http.ResponseWriter, r *http.Request) {
	var req SetMatrixRateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	var err error
	switch {
	case req.Rates != nil:
		err = s.Matrix.SetGradeRates(req.Band, req.Level, req.Grade, *req.Rates)
	case req.Value != nil:
		var f matrix.Field
		if f, err = matrix.ParseField(req.Field); err == nil {
			err = s.Matrix.SetGradeRate(req.Band, req.Level, req.Grade, f, *req.Value)
		}
	default:
		err = fmt.Errorf("%w: value or rates is required", matrix.ErrInvalidInput)
	}
	if err != nil {
		writeFailure(w, "Failed to set rate", err)
		return
	}

	c, _ := s.Matrix.Cell(req.Band, req.Level)
	writeJSON(w, http.StatusOK, map[string]any{"cell": c, "stale": c.IsStale()})
}

// DistributeMatrix pushes one value to a band set, a grade, a level or all.
func (h *Handler) DistributeMatrix(w http.ResponseWriter, r *http.Request) {
	var req MatrixDistributeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	f, err := matrix.ParseField(req.Field)
	if err != nil {
		writeFailure(w, "Invalid field", err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	switch req.Scope {
	case ScopeBands:
		err = s.Matrix.DistributeAcrossBands(req.Level, req.Grade, f, req.Value, req.Bands)
	case ScopeGrade:
		err = s.Matrix.ApplyToGrade(req.Grade, f, req.Value)
	case ScopeLevel:
		err = s.Matrix.ApplyToLevel(req.Level, f, req.Value)
	case ScopeAll:
		err = s.Matrix.ApplyToAll(f, req.Value)
	default:
		err = fmt.Errorf("%w: scope %q", matrix.ErrInvalidInput, req.Scope)
	}
	if err != nil {
		writeFailure(w, "Failed to distribute", err)
		return
	}
	writeJSON(w, http.StatusOK, toMatrixDTO(s.Matrix))
}

// RecomputeMatrix refreshes one cell or every stale cell.
func (h *Handler) RecomputeMatrix(w http.ResponseWriter, r *http.Request) {
	var req MatrixRecomputeRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	if req.Band != "" || req.Level != "" {
		if err := s.Matrix.RecomputeCell(req.Band, req.Level); err != nil {
			writeFailure(w, "Failed to recompute", err)
			return
		}
	} else {
		s.Matrix.Recompute()
	}
	writeJSON(w, http.StatusOK, toMatrixDTO(s.Matrix))
}

// GetAggregated returns rollups over the current cell rates.
func (h *Handler) GetAggregated(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()
	writeJSON(w, http.StatusOK, matrix.Aggregate(s.Matrix))
}

// GetBreakdown returns the weighted-average breakdown.
//
// Query: view=matrix|practical, bands, levels, grades, zones (comma
// lists), sort, desc, include_empty.
func (h *Handler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortBy, err := matrix.ParseSortKey(q.Get("sort"))
	if err != nil {
		writeFailure(w, "Invalid sort", err)
		return
	}
	query := matrix.BreakdownQuery{
		Bands:        splitList(q.Get("bands")),
		Levels:       splitList(q.Get("levels")),
		Grades:       splitList(q.Get("grades")),
		PayZones:     splitList(q.Get("zones")),
		SortBy:       sortBy,
		Descending:   queryBool(q.Get("desc")),
		IncludeEmpty: queryBool(q.Get("include_empty")),
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	switch q.Get("view") {
	case "", "matrix":
		writeJSON(w, http.StatusOK, s.Matrix.Breakdown(query))
	case "practical":
		writeJSON(w, http.StatusOK, s.Practical.Breakdown(query))
	default:
		writeError(w, http.StatusBadRequest, "Unknown view", nil)
	}
}

// GetBudget prices the current rates. ?budget= overrides the session budget.
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	budget := s.Budget
	if b := r.URL.Query().Get("budget"); b != "" {
		var err error
		if budget, err = parseBudget(b); err != nil {
			writeFailure(w, "Invalid budget", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, matrix.BudgetImpact(s.Matrix, budget))
}

// =============================================================================
// PRACTICAL VIEW HANDLERS
// =============================================================================

// GetPractical returns the practical hierarchy.
func (h *Handler) GetPractical(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()
	writeJSON(w, http.StatusOK, toPracticalDTO(s.Practical))
}

// SetPracticalRate edits one leaf. Ancestors go stale.
func (h *Handler) SetPracticalRate(w http.ResponseWriter, r *http.Request) {
	var req SetPracticalRateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	f, err := matrix.ParseField(req.Field)
	if err != nil {
		writeFailure(w, "Invalid field", err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	if err := s.Practical.SetRate(req.Level, req.Zone, req.Band, req.Grade, f, req.Value); err != nil {
		writeFailure(w, "Failed to set rate", err)
		return
	}
	c, _ := s.Practical.Cell(req.Level, req.Zone, req.Band, req.Grade)
	writeJSON(w, http.StatusOK, map[string]any{"cell": c, "stale": s.Practical.IsStale()})
}

// DistributePractical pushes one value down the hierarchy.
func (h *Handler) DistributePractical(w http.ResponseWriter, r *http.Request) {
	var req PracticalDistributeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	f, err := matrix.ParseField(req.Field)
	if err != nil {
		writeFailure(w, "Invalid field", err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	v := s.Practical
	switch req.Target {
	case TargetBands:
		err = v.DistributeToBands(req.Level, req.Zone, req.Grade, f, req.Value, req.Bands)
	case TargetZones:
		err = v.DistributeToZones(req.Level, req.Band, req.Grade, f, req.Value, req.Zones)
	case TargetLevel:
		err = v.DistributeToLevel(req.Level, req.Grade, f, req.Value)
	default:
		err = fmt.Errorf("%w: target %q", matrix.ErrInvalidInput, req.Target)
	}
	if err != nil {
		writeFailure(w, "Failed to distribute", err)
		return
	}
	writeJSON(w, http.StatusOK, toPracticalDTO(v))
}

// RecomputePractical re-derives one slice or the whole view.
func (h *Handler) RecomputePractical(w http.ResponseWriter, r *http.Request) {
	var req PracticalRecomputeRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	var err error
	switch req.Scope {
	case "":
		s.Practical.Recompute()
	case RecomputeBandTotal:
		err = s.Practical.RecomputeBandTotal(req.Level, req.Zone, req.Grade)
	case RecomputeZoneAll:
		err = s.Practical.RecomputeZoneAll(req.Level, req.Band, req.Grade)
	default:
		err = fmt.Errorf("%w: scope %q", matrix.ErrInvalidInput, req.Scope)
	}
	if err != nil {
		writeFailure(w, "Failed to recompute", err)
		return
	}
	writeJSON(w, http.StatusOK, toPracticalDTO(s.Practical))
}

// ApplyCompanyTotal sets one field on every practical cell.
func (h *Handler) ApplyCompanyTotal(w http.ResponseWriter, r *http.Request) {
	var req CompanyTotalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	f, err := matrix.ParseField(req.Field)
	if err != nil {
		writeFailure(w, "Invalid field", err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	if err := s.Practical.ApplyCompanyTotalToAll(f, req.Value); err != nil {
		writeFailure(w, "Failed to apply company total", err)
		return
	}
	writeJSON(w, http.StatusOK, toPracticalDTO(s.Practical))
}

// ReseedPractical rebuilds the practical view from the current matrix rates.
func (h *Handler) ReseedPractical(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	if err := s.rebuildPracticalFromMatrix(); err != nil {
		writeFailure(w, "Failed to reseed", err)
		return
	}
	writeJSON(w, http.StatusOK, toPracticalDTO(s.Practical))
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns saved scenarios, most recent first.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.List(r.Context(), r.URL.Query().Get("label"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list scenarios", err)
		return
	}
	dtos := make([]ScenarioDTO, len(list))
	for i, sc := range list {
		dtos[i] = toScenarioDTO(sc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetScenario returns one scenario including its rates.
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := h.Store.Get(r.Context(), chi.URLParam(r, "scenarioID"))
	if err != nil {
		writeFailure(w, "Failed to get scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// DeleteScenario removes a saved scenario.
func (h *Handler) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "scenarioID")
	if err := h.Store.Delete(r.Context(), id); err != nil {
		writeFailure(w, "Failed to delete scenario", err)
		return
	}
	h.Log.Info().Str("scenario", id).Msg("scenario deleted")
	w.WriteHeader(http.StatusNoContent)
}

// ResetScenarios removes every saved scenario. Live sessions keep their
// rates.
func (h *Handler) ResetScenarios(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeFailure(w, "Failed to reset scenarios", err)
		return
	}
	h.Log.Warn().Msg("all scenarios deleted")
	w.WriteHeader(http.StatusNoContent)
}

// SaveScenario snapshots the session's rates under a name.
func (h *Handler) SaveScenario(w http.ResponseWriter, r *http.Request) {
	var req SaveScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	sc := &scenario.Scenario{
		ID:           req.ID,
		SessionLabel: s.Label,
		Name:         req.Name,
		Snapshot:     scenario.Capture(s.Matrix, s.Practical),
	}
	s.Unlock()

	if req.ID != "" {
		if _, err := h.Store.Get(r.Context(), req.ID); err != nil {
			writeFailure(w, "Failed to load scenario", err)
			return
		}
	}
	if err := h.Store.Save(r.Context(), sc); err != nil {
		writeFailure(w, "Failed to save scenario", err)
		return
	}

	h.Log.Info().Str("session", s.ID).Str("scenario", sc.ID).Int("version", sc.Version).Msg("scenario saved")
	writeJSON(w, http.StatusCreated, toScenarioDTO(*sc))
}

// LoadScenario restores a scenario's rates into the session. Statistics
// come from the session's data; only rates are restored.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := h.Store.Get(r.Context(), chi.URLParam(r, "scenarioID"))
	if err != nil {
		writeFailure(w, "Failed to load scenario", err)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()

	if err := s.rebuild(sc.Snapshot.AdditionalUnit, &sc.Snapshot); err != nil {
		writeFailure(w, "Failed to restore scenario", err)
		return
	}
	h.Log.Info().Str("session", s.ID).Str("scenario", sc.ID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// =============================================================================
// HELPERS
// =============================================================================

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func queryBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func parseBudget(s string) (decimal.Decimal, error) {
	b, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || b.IsNegative() {
		return decimal.Zero, &matrix.ValidationError{Field: "budget", Value: s, Reason: "must be a non-negative number"}
	}
	return b, nil
}
