package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validJSON = `{
  "github": {"token": "ghp_test", "first_run_limit": 5},
  "discord": {"webhook_url": "https://discord.example/api/webhooks/1/abc"},
  "logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}, "webhook": {"enabled": false, "min_level": "", "rate_per_sec": 0}},
  "poll": {"enabled": true, "schedule": "5m"}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json", validJSON))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "ghp_test" {
		t.Errorf("token = %q", cfg.GitHub.Token)
	}
	if cfg.GitHub.FirstRunLimit != 5 {
		t.Errorf("first_run_limit = %d, want 5", cfg.GitHub.FirstRunLimit)
	}
	if !cfg.Poll.Enabled || cfg.Poll.Schedule != "5m" {
		t.Errorf("poll = %+v", cfg.Poll)
	}
	if got := m.Get(); got != cfg {
		t.Error("Get() should return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	const y = `
github:
  token: ghp_yaml
discord:
  webhook_url: https://discord.example/api/webhooks/1/abc
logging:
  level: info
  console: true
  file: {enabled: false, path: ""}
  webhook: {enabled: false, min_level: "", rate_per_sec: 0}
poll:
  enabled: false
  schedule: "*/5 * * * *"
`
	m := NewManager(writeFile(t, "config.yaml", y))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GitHub.Token != "ghp_yaml" {
		t.Errorf("token = %q", cfg.GitHub.Token)
	}
	if cfg.Poll.Schedule != "*/5 * * * *" {
		t.Errorf("schedule = %q", cfg.Poll.Schedule)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json", `{"github": {"token": "t", "tokne": "typo"}, "discord": {}}`))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json", validJSON+`{"github": {}}`))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	m := NewManager(filepath.Join(t.TempDir(), "nope.json"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWatchPublishesValidatedChange(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.json", validJSON)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var rejected []string
	m.SetValidator(func(_ context.Context, cfg *Config) error {
		if strings.Contains(cfg.GitHub.Token, "bad") {
			rejected = append(rejected, cfg.GitHub.Token)
			return os.ErrInvalid
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()

	sub := m.Subscribe(4)
	defer m.Unsubscribe(sub)

	// Rejected update: never published.
	if err := os.WriteFile(path, []byte(strings.Replace(validJSON, "ghp_test", "ghp_bad", 1)), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	select {
	case cfg := <-sub:
		t.Fatalf("rejected config was published: token=%q", cfg.GitHub.Token)
	case <-time.After(700 * time.Millisecond):
	}

	// Valid update: published and committed.
	if err := os.WriteFile(path, []byte(strings.Replace(validJSON, "ghp_test", "ghp_next", 1)), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	select {
	case cfg := <-sub:
		if cfg.GitHub.Token != "ghp_next" {
			t.Errorf("published token = %q, want ghp_next", cfg.GitHub.Token)
		}
		if m.Get().GitHub.Token != "ghp_next" {
			t.Error("valid update not committed")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config publish")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not exit after cancel")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	m := NewManager("unused")
	ch := m.Subscribe(1)
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Unsubscribe")
	}
	// Double unsubscribe is a no-op.
	m.Unsubscribe(ch)
}
