package app

import (
	"testing"
	"time"

	"ghnotify/internal/config"
	logx "ghnotify/pkg/logx"
)

func TestMapPollerConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Poll.Enabled = true
	cfg.GitHub.FirstRunLimit = 7

	t.Run("defaults schedule", func(t *testing.T) {
		t.Parallel()
		got, err := mapPollerConfig(cfg, logx.Nop())
		if err != nil {
			t.Fatalf("mapPollerConfig: %v", err)
		}
		if got.Schedule != "5m" {
			t.Errorf("schedule = %q, want 5m", got.Schedule)
		}
		if got.FirstRunLimit != 7 {
			t.Errorf("first run limit = %d", got.FirstRunLimit)
		}
		if !got.LastCheckOverride.IsZero() {
			t.Errorf("override should be zero, got %v", got.LastCheckOverride)
		}
	})

	t.Run("lenient override", func(t *testing.T) {
		t.Parallel()
		c := *cfg
		c.Poll.LastCheckOverride = "2026-03-14 09:26"
		got, err := mapPollerConfig(&c, logx.Nop())
		if err != nil {
			t.Fatalf("mapPollerConfig: %v", err)
		}
		want := time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)
		if !got.LastCheckOverride.Equal(want) {
			t.Errorf("override = %v, want %v", got.LastCheckOverride, want)
		}
	})

	t.Run("unparsable override degrades", func(t *testing.T) {
		t.Parallel()
		c := *cfg
		c.Poll.LastCheckOverride = "last tuesday-ish"
		got, err := mapPollerConfig(&c, logx.Nop())
		if err != nil {
			t.Fatalf("mapPollerConfig: %v", err)
		}
		if !got.LastCheckOverride.IsZero() {
			t.Errorf("unparsable override should map to zero, got %v", got.LastCheckOverride)
		}
	})
}

func TestMapEnrichOptionsDefaults(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Enrich.Enabled = true
	got, err := mapEnrichOptions(cfg)
	if err != nil {
		t.Fatalf("mapEnrichOptions: %v", err)
	}
	if got.CommentWindow != 2*time.Minute || got.RunWindow != 10*time.Minute || got.Timeout != 5*time.Second {
		t.Errorf("defaults = %+v", got)
	}

	cfg.Enrich.RunWindow = "not-a-duration"
	if _, err := mapEnrichOptions(cfg); err == nil {
		t.Fatal("invalid duration should error")
	}
}

func TestMapGitHubConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.GitHub.Token = "t"
	cfg.GitHub.Timeout = "30s"
	cfg.GitHub.PageLimit = 3
	got, err := mapGitHubConfig(cfg)
	if err != nil {
		t.Fatalf("mapGitHubConfig: %v", err)
	}
	if got.Timeout != 30*time.Second || got.PageLimit != 3 || got.Token != "t" {
		t.Errorf("mapped = %+v", got)
	}
}
