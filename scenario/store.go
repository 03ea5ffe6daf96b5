package scenario

import "context"

// Store persists scenarios.
type Store interface {
	// Save inserts or replaces a scenario. It assigns the ID on first save,
	// stamps the timestamps and bumps Version.
	Save(ctx context.Context, s *Scenario) error

	// Get returns ErrNotFound for an unknown ID.
	Get(ctx context.Context, id string) (Scenario, error)

	// List returns scenarios, most recently updated first. An empty label
	// lists every session's scenarios.
	List(ctx context.Context, sessionLabel string) ([]Scenario, error)

	// Delete returns ErrNotFound for an unknown ID.
	Delete(ctx context.Context, id string) error

	// Reset removes every scenario.
	Reset(ctx context.Context) error
}
