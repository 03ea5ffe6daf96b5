package scenario

import (
	"context"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

var _ Store = (*Memory)(nil)

// Memory keeps scenarios in a map. Stored values are copies; callers cannot
// mutate them through a returned Scenario's slices.
type Memory struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		scenarios: make(map[string]Scenario),
		now:       time.Now,
	}
}

func (m *Memory) Save(_ context.Context, s *Scenario) error {
	if err := s.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s.Touch(m.now().UTC())
	if prev, ok := m.scenarios[s.ID]; ok {
		s.CreatedAt = prev.CreatedAt
		s.Version = prev.Version + 1
	} else {
		s.Version = 1
	}
	m.scenarios[s.ID] = clone(*s)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.scenarios[id]
	if !ok {
		return Scenario{}, ErrNotFound
	}
	return clone(s), nil
}

func (m *Memory) List(_ context.Context, sessionLabel string) ([]Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Scenario, 0, len(m.scenarios))
	for _, s := range m.scenarios {
		if sessionLabel != "" && s.SessionLabel != sessionLabel {
			continue
		}
		out = append(out, clone(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scenarios[id]; !ok {
		return ErrNotFound
	}
	delete(m.scenarios, id)
	return nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scenarios = make(map[string]Scenario)
	return nil
}

func clone(s Scenario) Scenario {
	s.Snapshot.Matrix = append([]MatrixRate(nil), s.Snapshot.Matrix...)
	s.Snapshot.Practical = append([]PracticalRate(nil), s.Snapshot.Practical...)
	if s.Snapshot.CompanyTotal != nil {
		total := *s.Snapshot.CompanyTotal
		s.Snapshot.CompanyTotal = &total
	}
	return s
}
