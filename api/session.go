/*
session.go - In-memory planning sessions

PURPOSE:
  A session is one uploaded dataset plus the two live models built from it:
  the Band x Level matrix and the practical view seeded from it. Edits
  mutate the session's models in place; nothing is persisted until a
  scenario is saved.

CONCURRENCY:
  Sessions holds its map behind an RWMutex. Each Session has its own mutex;
  handlers hold it for the whole read-modify-write of one request, so edits
  on different sessions never contend.

LIFECYCLE:
  Create -> Get (touches lastUsed) -> Delete, or Reap once idle.

SEE ALSO:
  - scheduler.go: SessionReaper
  - handlers.go: session endpoints
*/
package api

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/comp-planner/matrix"
	"github.com/warp/comp-planner/payzone"
	"github.com/warp/comp-planner/practical"
	"github.com/warp/comp-planner/scenario"
	"github.com/warp/comp-planner/workbook"
)

// ErrSessionNotFound is returned for an unknown or reaped session ID.
var ErrSessionNotFound = errors.New("session not found")

// Dataset is the raw input of a session.
type Dataset struct {
	Sheet     string
	Employees []matrix.Employee
	Metadata  matrix.Metadata
	PayZones  *payzone.Config
	Warnings  []workbook.ParseWarning
}

// Session is one planning workspace.
type Session struct {
	ID        string
	Label     string
	Data      Dataset
	Budget    decimal.Decimal
	CreatedAt time.Time

	Matrix    *matrix.Matrix
	Practical *practical.View

	mu       sync.Mutex
	lastUsed time.Time
}

// Lock serializes requests on this session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases Lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// rebuild replaces both models. Priors carry rates over; a nil snapshot
// starts from zero rates.
func (s *Session) rebuild(unit matrix.Unit, snap *scenario.Snapshot) error {
	mopts := matrix.BuildOptions{AdditionalUnit: unit, PayZones: s.Data.PayZones}
	popts := practical.Options{AdditionalUnit: unit}
	if snap != nil {
		mopts.AdditionalUnit = snap.AdditionalUnit
		mopts.Prior = snap.MatrixAssignment()
		popts.AdditionalUnit = snap.AdditionalUnit
		popts.Prior = snap.PracticalAssignment()
		popts.CompanyTotal = snap.CompanyTotal
	}

	m, err := matrix.Build(s.Data.Employees, s.Data.Metadata, mopts)
	if err != nil {
		return err
	}
	popts.Seed = m
	v, err := practical.Build(s.Data.Employees, s.Data.Metadata, s.Data.PayZones, popts)
	if err != nil {
		return err
	}
	s.Matrix, s.Practical = m, v
	return nil
}

// rebuildPracticalFromMatrix reseeds the practical view from the current
// matrix rates, dropping practical-only edits.
func (s *Session) rebuildPracticalFromMatrix() error {
	v, err := practical.Build(s.Data.Employees, s.Data.Metadata, s.Data.PayZones, practical.Options{Seed: s.Matrix})
	if err != nil {
		return err
	}
	s.Practical = v
	return nil
}

// Sessions is the registry of live sessions.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session), now: time.Now}
}

// Create builds a session from data and registers it.
func (r *Sessions) Create(label string, data Dataset, unit matrix.Unit, budget decimal.Decimal) (*Session, error) {
	now := r.now()
	s := &Session{
		ID:        uuid.NewString(),
		Label:     label,
		Data:      data,
		Budget:    budget,
		CreatedAt: now,
		lastUsed:  now,
	}
	if err := s.rebuild(unit, nil); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s, nil
}

// Get returns a session and marks it used.
func (r *Sessions) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.lastUsed = r.now()
	return s, nil
}

// Delete drops a session.
func (r *Sessions) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// List returns all sessions, oldest first.
func (r *Sessions) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Reap removes sessions unused for longer than idle and returns their IDs.
func (r *Sessions) Reap(idle time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-idle)
	var reaped []string
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			reaped = append(reaped, id)
		}
	}
	sort.Strings(reaped)
	return reaped
}

// Len is the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
