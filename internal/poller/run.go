package poller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"ghnotify/internal/checkpoint"
	"ghnotify/internal/eventbus"
	"ghnotify/internal/format"
	"ghnotify/internal/github"
	logx "ghnotify/pkg/logx"
)

// Trigger runs one check now. Returns ErrRunInProgress when another run
// holds the gate.
func (s *Service) Trigger(ctx context.Context) (RunStats, error) {
	if !s.flight.TryLock() {
		return RunStats{}, ErrRunInProgress
	}
	defer s.flight.Unlock()

	s.setRunning(true)
	defer s.setRunning(false)

	stats, err := s.run(ctx)

	s.statsMu.Lock()
	s.last = stats
	s.statsMu.Unlock()

	if err != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeRunFailed, Data: stats})
	} else {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeRunCompleted, Data: stats})
	}
	return stats, err
}

// run is one full check: fetch → filter → format → publish → checkpoint.
// The checkpoint is advanced to the run's start time, and only when every
// batch went out.
func (s *Service) run(ctx context.Context) (RunStats, error) {
	runStart := time.Now().UTC()
	stats := RunStats{
		RunID:     uuid.NewString(),
		StartedAt: runStart,
	}
	log := s.log.With(logx.String("run_id", stats.RunID))
	defer func() {
		stats.Duration = time.Since(runStart).Round(time.Millisecond).String()
	}()
	s.bus.Publish(eventbus.Event{Type: eventbus.TypeRunStarted, Data: stats.RunID})

	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	since, haveCheckpoint, err := s.loadSince(ctx, cfg)
	if err != nil {
		stats.Error = err.Error()
		log.Error("checkpoint load failed", logx.Err(err))
		return stats, err
	}

	log.Info("checking notifications",
		logx.Bool("first_run", !haveCheckpoint),
		logx.Time("since", since))

	items, err := s.fetch.ListNotifications(ctx, since)
	if err != nil {
		stats.Error = err.Error()
		log.Error("fetch failed, checkpoint untouched", logx.Err(err))
		return stats, err
	}
	stats.Fetched = len(items)

	items = selectForPublish(items, since, haveCheckpoint, cfg.FirstRunLimit)
	stats.Matched = len(items)
	if len(items) == 0 {
		log.Info("no new notifications")
		return stats, s.saveCheckpoint(ctx, runStart, stats, log)
	}

	if err := ctx.Err(); err != nil {
		stats.Error = err.Error()
		return stats, err
	}

	records := make([]format.Record, 0, len(items))
	for _, n := range items {
		rec, err := s.format.Format(ctx, n)
		if errors.Is(err, format.ErrSuppressed) {
			stats.Suppressed++
			continue
		}
		if err != nil {
			stats.Dropped++
			log.Warn("record dropped", logx.String("subject", n.Subject.Title), logx.Err(err))
			continue
		}
		records = append(records, rec)
	}

	if err := ctx.Err(); err != nil {
		stats.Error = err.Error()
		return stats, err
	}

	batches, err := s.publish.Publish(ctx, records)
	stats.Batches = batches
	if err != nil {
		stats.Error = err.Error()
		log.Error("publish failed, checkpoint untouched",
			logx.Int("batches_delivered", batches), logx.Err(err))
		return stats, err
	}
	stats.Published = len(records)

	log.Info("notifications forwarded",
		logx.Int("fetched", stats.Fetched),
		logx.Int("published", stats.Published),
		logx.Int("suppressed", stats.Suppressed),
		logx.Int("dropped", stats.Dropped),
		logx.Int("batches", stats.Batches))

	return stats, s.saveCheckpoint(ctx, runStart, stats, log)
}

// loadSince resolves the filter boundary: stored checkpoint first, then the
// configured override, else zero (bounded first run).
func (s *Service) loadSince(ctx context.Context, cfg Config) (time.Time, bool, error) {
	if s.store != nil {
		st, ok, err := s.store.Load(ctx)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("poller: load checkpoint: %w", err)
		}
		if ok {
			return st.LastChecked, true, nil
		}
	}
	if !cfg.LastCheckOverride.IsZero() {
		return cfg.LastCheckOverride.UTC(), true, nil
	}
	return time.Time{}, false, nil
}

func (s *Service) saveCheckpoint(ctx context.Context, runStart time.Time, stats RunStats, log logx.Logger) error {
	if s.store == nil {
		return nil
	}
	st := checkpoint.State{
		LastChecked: runStart,
		LastRunAt:   runStart,
		Fetched:     stats.Fetched,
		Published:   stats.Published,
		Suppressed:  stats.Suppressed,
	}
	if err := s.store.Save(ctx, st); err != nil {
		log.Error("checkpoint save failed", logx.Err(err))
		return fmt.Errorf("poller: save checkpoint: %w", err)
	}
	return nil
}

// selectForPublish filters to strictly-newer items and orders them oldest
// first. Without a checkpoint the newest limit items are kept (flood guard).
func selectForPublish(items []github.Notification, since time.Time, haveCheckpoint bool, firstRunLimit int) []github.Notification {
	out := items
	if haveCheckpoint {
		out = out[:0:0]
		for _, n := range items {
			if n.UpdatedAt.After(since) {
				out = append(out, n)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})

	if !haveCheckpoint {
		if firstRunLimit <= 0 {
			firstRunLimit = 10
		}
		if len(out) > firstRunLimit {
			out = out[len(out)-firstRunLimit:] // newest N, still oldest-first
		}
	}
	return out
}
