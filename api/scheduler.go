/*
scheduler.go - Idle session reaper

PURPOSE:
  Sessions live in memory. The reaper periodically drops sessions nobody
  has touched for IdleTimeout so an unattended server does not accumulate
  uploaded datasets.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Any request that resolves a session refreshes its idle clock
  - Saved scenarios are not affected; a reaped session can be rebuilt by
    uploading the data again and loading a scenario

CONFIGURATION:
  - CheckInterval: How often to check (default: 10 minutes)
  - IdleTimeout:   How long a session may sit unused (default: 2 hours)
  - Enabled:       Whether the reaper is active (default: true)

USAGE:
  reaper := NewSessionReaper(handler.Sessions, logger)
  reaper.Start()
  // ... later
  reaper.Stop()

SEE ALSO:
  - session.go: Sessions.Reap
*/
package api

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionReaper removes idle sessions in the background.
type SessionReaper struct {
	Sessions      *Sessions
	CheckInterval time.Duration
	IdleTimeout   time.Duration
	Enabled       bool

	log    zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSessionReaper creates a reaper with default timings.
func NewSessionReaper(sessions *Sessions, logger zerolog.Logger) *SessionReaper {
	return &SessionReaper{
		Sessions:      sessions,
		CheckInterval: 10 * time.Minute,
		IdleTimeout:   2 * time.Hour,
		Enabled:       true,
		log:           logger,
	}
}

// Start begins the reaper.
func (sr *SessionReaper) Start() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if !sr.Enabled || sr.IdleTimeout <= 0 {
		sr.log.Info().Msg("session reaper disabled")
		return
	}
	if sr.ticker != nil {
		return
	}

	sr.ticker = time.NewTicker(sr.CheckInterval)
	sr.stop = make(chan struct{})
	sr.wg.Add(1)
	go sr.run(sr.ticker, sr.stop)

	sr.log.Info().Dur("interval", sr.CheckInterval).Dur("idle_timeout", sr.IdleTimeout).Msg("session reaper started")
}

// Stop stops the reaper and waits for the goroutine to exit.
func (sr *SessionReaper) Stop() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sr.ticker == nil {
		return
	}
	sr.ticker.Stop()
	close(sr.stop)
	sr.wg.Wait()
	sr.ticker = nil
	sr.log.Info().Msg("session reaper stopped")
}

func (sr *SessionReaper) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer sr.wg.Done()
	for {
		select {
		case <-ticker.C:
			sr.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow reaps immediately and returns the removed session IDs.
func (sr *SessionReaper) RunNow() []string {
	reaped := sr.Sessions.Reap(sr.IdleTimeout)
	for _, id := range reaped {
		sr.log.Info().Str("session", id).Msg("idle session reaped")
	}
	return reaped
}
