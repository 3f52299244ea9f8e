package checkpoint

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("checkpoint store disabled")

// Config configures checkpoint persistence.
//
// Driver values:
//   - "file": single JSON document, replaced atomically on save
//   - "sqlite": SQLite database file (single-row table)
//
// If Driver is empty or "none", persistence is disabled and every run
// behaves like a first run.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// State is everything the bridge remembers between runs.
// Keep it compact and schema-stable.
type State struct {
	// LastChecked is the high-water mark: only notifications updated after
	// this instant are forwarded. It is set to the run's start time, and
	// only after the run published everything it intended to.
	LastChecked time.Time `json:"last_checked"`

	// Bookkeeping from the last successful run, surfaced by the ops
	// endpoint. Failed runs never reach the store; their errors live in the
	// poller's in-memory stats.
	LastRunAt  time.Time `json:"last_run_at,omitzero"`
	Fetched    int       `json:"fetched"`
	Published  int       `json:"published"`
	Suppressed int       `json:"suppressed"`
}
