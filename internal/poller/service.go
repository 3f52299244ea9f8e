// Package poller hosts the periodic check loop: fetch notifications, format
// them, publish batches, advance the checkpoint.
package poller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ghnotify/internal/checkpoint"
	"ghnotify/internal/eventbus"
	"ghnotify/internal/format"
	"ghnotify/internal/github"
	logx "ghnotify/pkg/logx"
)

// ErrRunInProgress is returned when a trigger overlaps a running check.
// Overlap is rejected, never queued.
var ErrRunInProgress = errors.New("a check is already running")

// Fetcher lists the notification feed. Satisfied by *github.Client.
type Fetcher interface {
	ListNotifications(ctx context.Context, since time.Time) ([]github.Notification, error)
}

// Formatter maps one notification to its display record. Satisfied by
// *format.Formatter; format.ErrSuppressed drops the item.
type Formatter interface {
	Format(ctx context.Context, n github.Notification) (format.Record, error)
}

// Publisher delivers records and reports how many batches went out.
// Satisfied by *publish.Publisher.
type Publisher interface {
	Publish(ctx context.Context, recs []format.Record) (int, error)
}

type Config struct {
	Enabled  bool
	Schedule string // cron spec or interval, see ParseSchedule
	Timezone string

	// FirstRunLimit bounds a run that has no checkpoint (newest N items).
	FirstRunLimit int

	// LastCheckOverride seeds the checkpoint when the store has none.
	LastCheckOverride time.Time
}

// Service owns the trigger and the single-flight gate. The cron trigger and
// manual triggers funnel through the same run path.
type Service struct {
	fetch   Fetcher
	format  Formatter
	publish Publisher
	store   checkpoint.Store // may be nil (persistence disabled)
	bus     eventbus.Bus
	log     logx.Logger

	parser cron.Parser

	mu      sync.Mutex
	cfg     Config
	c       *cron.Cron
	runCtx  context.Context
	started bool

	flight sync.Mutex // held for the duration of one run

	statsMu sync.Mutex
	inRun   bool
	last    RunStats
}

// RunStats is the outcome of the most recent run, surfaced by the ops
// endpoint and attached to bus events.
type RunStats struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration,omitempty"`
	Fetched    int       `json:"fetched"`
	Matched    int       `json:"matched"`
	Suppressed int       `json:"suppressed"`
	Dropped    int       `json:"dropped"`
	Published  int       `json:"published"`
	Batches    int       `json:"batches"`
	Error      string    `json:"error,omitempty"`
}

func New(fetch Fetcher, fm Formatter, pub Publisher, store checkpoint.Store, bus eventbus.Bus, cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.New()
	}
	return &Service{
		fetch:   fetch,
		format:  fm,
		publish: pub,
		store:   store,
		bus:     bus,
		log:     log,
		cfg:     cfg,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Start registers the schedule and begins triggering runs. Disabled pollers
// start successfully and do nothing; a manual trigger still works.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.runCtx = ctx
	s.started = true
	if !s.cfg.Enabled {
		s.log.Info("poller disabled, waiting for manual triggers only")
		return nil
	}
	return s.startCronLocked()
}

func (s *Service) startCronLocked() error {
	spec, err := ParseSchedule(s.cfg.Schedule)
	if err != nil {
		return fmt.Errorf("poller: %w", err)
	}
	loc := time.UTC
	if tz := strings.TrimSpace(s.cfg.Timezone); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("poller: timezone: %w", err)
		}
	}

	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	runCtx := s.runCtx
	if _, err := c.AddFunc(spec.cronSpec(), func() { s.scheduledRun(runCtx) }); err != nil {
		return fmt.Errorf("poller: register schedule: %w", err)
	}
	c.Start()
	s.c = c
	s.log.Info("poller scheduled",
		logx.String("schedule", s.cfg.Schedule), logx.String("tz", loc.String()))
	return nil
}

// Stop halts the trigger and waits for an in-flight run to return, bounded
// by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.started = false
	s.mu.Unlock()

	if c != nil {
		stopped := c.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Wait for a run that was already in flight.
	done := make(chan struct{})
	go func() {
		s.flight.Lock()
		s.flight.Unlock() //nolint:staticcheck // lock/unlock pair used as a barrier
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply swaps the config; a schedule or timezone change restarts the cron
// trigger. The old trigger is stopped outside s.mu: an in-flight scheduled
// run still needs s.mu for its config snapshot, so waiting on it under the
// lock would wedge both goroutines.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	restart := s.started &&
		(cfg.Enabled != s.cfg.Enabled ||
			cfg.Schedule != s.cfg.Schedule ||
			cfg.Timezone != s.cfg.Timezone)
	s.cfg = cfg
	var c *cron.Cron
	if restart {
		c = s.c
		s.c = nil
	}
	s.mu.Unlock()

	if !restart {
		return nil
	}
	if c != nil {
		<-c.Stop().Done()
	}
	if !cfg.Enabled {
		s.log.Info("poller disabled by config reload")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.c != nil || !s.cfg.Enabled {
		// Stopped, or superseded by a competing reload, while waiting.
		return nil
	}
	return s.startCronLocked()
}

// Stats returns the outcome of the most recent run.
func (s *Service) Stats() RunStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.last
}

// Running reports whether a check is in flight right now.
func (s *Service) Running() bool {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.inRun
}

func (s *Service) setRunning(v bool) {
	s.statsMu.Lock()
	s.inRun = v
	s.statsMu.Unlock()
}

func (s *Service) scheduledRun(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.Trigger(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.log.Warn("scheduled check skipped, previous run still in flight")
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeRunSkipped})
			return
		}
		// Already logged with run context inside the run.
	}
}
