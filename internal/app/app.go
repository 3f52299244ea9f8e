// Package app wires configuration, logging, the GitHub client, the
// formatter, the publisher, the checkpoint store, the poller, and the ops
// server into one lifecycle.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/coreos/go-systemd/v22/daemon"

	"ghnotify/internal/checkpoint"
	"ghnotify/internal/config"
	"ghnotify/internal/discord"
	"ghnotify/internal/eventbus"
	"ghnotify/internal/format"
	"ghnotify/internal/github"
	"ghnotify/internal/ops"
	"ghnotify/internal/poller"
	"ghnotify/internal/publish"
	"ghnotify/internal/runtime/supervisor"
	logx "ghnotify/pkg/logx"
)

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store      checkpoint.Store
	gh         *github.Client
	formatter  *format.Formatter
	webhook    *discord.WebhookClient
	opsWebhook *discord.WebhookClient
	publisher  *publish.Publisher
	poll       *poller.Service
	opsSrv     *ops.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolve secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ops webhook first: it doubles as the log mirror sink, so the logging
	// service needs it at construction time.
	var opsWebhook *discord.WebhookClient
	var logSender logx.Sender
	bootLog := logx.NewConsole(cfg.Logging.Level)
	if strings.TrimSpace(cfg.Discord.OpsWebhookURL) != "" {
		opsWebhook = discord.NewWebhook(cfg.Discord.OpsWebhookURL, 0, bootLog)
		logSender = opsWebhook
	}

	logSvc, log := logx.New(mapLogxConfig(cfg), logSender)
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Checkpoint store (optional)
	ckCfg, err := mapCheckpointConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := checkpoint.Open(ckCfg, log.With(logx.String("comp", "checkpoint")))
	if err != nil {
		return nil, err
	}
	if store != nil {
		log.Info("checkpoint store enabled", logx.String("driver", ckCfg.Driver))
	}

	ghCfg, err := mapGitHubConfig(cfg)
	if err != nil {
		return nil, err
	}
	gh := github.NewClient(ghCfg, log.With(logx.String("comp", "github")))

	enrichOpts, err := mapEnrichOptions(cfg)
	if err != nil {
		return nil, err
	}
	formatter := format.New(gh, enrichOpts, log.With(logx.String("comp", "format")))

	webhook := discord.NewWebhook(cfg.Discord.WebhookURL, 0, log.With(logx.String("comp", "discord")))
	publisher := publish.New(webhook, bus, mapPublishConfig(cfg), log.With(logx.String("comp", "publish")))

	pollCfg, err := mapPollerConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	pollSvc := poller.New(gh, formatter, publisher, store, bus, pollCfg,
		log.With(logx.String("comp", "poller")))

	opsSrv := ops.New(pollSvc, store, ops.Config{
		Enabled: cfg.Ops.Enabled,
		Addr:    cfg.Ops.Addr,
		Token:   cfg.Ops.Token,
	}, log.With(logx.String("comp", "ops")))

	return &App{
		cfgm:       cfgm,
		log:        log,
		logs:       logSvc,
		bus:        bus,
		store:      store,
		gh:         gh,
		formatter:  formatter,
		webhook:    webhook,
		opsWebhook: opsWebhook,
		publisher:  publisher,
		poll:       pollSvc,
		opsSrv:     opsSrv,
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// Transactional config reload: validate before commit/publish.
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if s := strings.TrimSpace(cfg.Poll.Schedule); s != "" {
			if _, err := poller.ParseSchedule(s); err != nil {
				return fmt.Errorf("poll.schedule: %w", err)
			}
		}
		if tz := strings.TrimSpace(cfg.Poll.Timezone); tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("poll.timezone: invalid %q: %w", tz, err)
			}
		}
		if _, err := mapCheckpointConfig(cfg); err != nil {
			return err
		}
		if _, err := mapGitHubConfig(cfg); err != nil {
			return err
		}
		if _, err := mapEnrichOptions(cfg); err != nil {
			return err
		}
		return nil
	})

	if err := a.poll.Start(a.sup.Context()); err != nil {
		return err
	}
	if err := a.opsSrv.Start(a.sup.Context()); err != nil {
		return err
	}

	// Event log for observability/debug.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// Config file watcher; self-heals on transient fsnotify failures.
	a.sup.GoRestart("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	// Hot reload fan-out.
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	// systemd readiness + watchdog (no-ops outside systemd).
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		a.sup.Go0("systemd.watchdog", func(c context.Context) {
			t := time.NewTicker(interval / 2)
			defer t.Stop()
			for {
				select {
				case <-c.Done():
					return
				case <-t.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		})
	}

	a.log.Info("started")
	return nil
}

// applyConfig pushes hot-reloadable sections into the running services.
// Sections that cannot change live (github client, checkpoint driver) log a
// restart-required warning instead.
func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	if err := newCfg.ResolveSecrets(); err != nil {
		a.log.Warn("config reload: resolve secrets failed, keeping previous secrets", logx.Err(err))
	}

	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("applying config change", fields...)

	for _, s := range sections {
		switch s {
		case "github":
			a.log.Warn("github config changed; restart required for changes to take effect")
		case "checkpoint":
			a.log.Warn("checkpoint config changed; restart required for changes to take effect")
		case "ops":
			a.log.Warn("ops server config changed; restart required for changes to take effect")
		}
	}

	a.logs.Apply(mapLogxConfig(newCfg))

	a.webhook.Apply(newCfg.Discord.WebhookURL)
	if a.opsWebhook != nil {
		a.opsWebhook.Apply(newCfg.Discord.OpsWebhookURL)
	}

	a.publisher.Apply(mapPublishConfig(newCfg))

	if opts, err := mapEnrichOptions(newCfg); err == nil {
		a.formatter.Apply(opts)
	} else {
		a.log.Warn("invalid enrich config; keeping previous", logx.Err(err))
	}

	if pollCfg, err := mapPollerConfig(newCfg, a.log); err != nil {
		a.log.Warn("invalid poll config; keeping previous", logx.Err(err))
	} else if err := a.poll.Apply(pollCfg); err != nil {
		a.log.Warn("poll config apply failed", logx.Err(err))
	}
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.opsSrv != nil {
		if err := a.opsSrv.Stop(ctx); err != nil {
			a.log.Warn("ops server stop", logx.Err(err))
		}
	}
	if a.poll != nil {
		if err := a.poll.Stop(ctx); err != nil {
			a.log.Warn("poller stop", logx.Err(err))
		}
	}

	var supErr error
	if a.sup != nil {
		supErr = a.sup.Stop(ctx)
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("checkpoint store close", logx.Err(err))
		}
	}
	a.log.Info("stopped")
	_ = a.logs.Close()
	return supErr
}

func mapLogxConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Webhook: logx.WebhookConfig{
			Enabled:    cfg.Logging.Webhook.Enabled,
			MinLevel:   cfg.Logging.Webhook.MinLevel,
			RatePerSec: cfg.Logging.Webhook.RatePerSec,
		},
	}
}

func mapGitHubConfig(cfg *config.Config) (github.Config, error) {
	timeout, err := config.ParseDurationOrDefault("github.timeout", cfg.GitHub.Timeout, 15*time.Second)
	if err != nil {
		return github.Config{}, err
	}
	return github.Config{
		Token:     cfg.GitHub.Token,
		APIBase:   cfg.GitHub.APIBase,
		UserAgent: cfg.GitHub.UserAgent,
		Timeout:   timeout,
		PageLimit: cfg.GitHub.PageLimit,
	}, nil
}

func mapEnrichOptions(cfg *config.Config) (format.Options, error) {
	commentWindow, err := config.ParseDurationOrDefault("enrich.comment_window", cfg.Enrich.CommentWindow, 2*time.Minute)
	if err != nil {
		return format.Options{}, err
	}
	runWindow, err := config.ParseDurationOrDefault("enrich.run_window", cfg.Enrich.RunWindow, 10*time.Minute)
	if err != nil {
		return format.Options{}, err
	}
	timeout, err := config.ParseDurationOrDefault("enrich.timeout", cfg.Enrich.Timeout, 5*time.Second)
	if err != nil {
		return format.Options{}, err
	}
	return format.Options{
		Enabled:       cfg.Enrich.Enabled,
		CommentWindow: commentWindow,
		RunWindow:     runWindow,
		Timeout:       timeout,
	}, nil
}

func mapPublishConfig(cfg *config.Config) publish.Config {
	return publish.Config{
		BatchSize:  cfg.Publish.BatchSize,
		RatePerSec: float64(cfg.Publish.RatePerSec),
	}
}

func mapCheckpointConfig(cfg *config.Config) (checkpoint.Config, error) {
	busy, err := config.ParseDurationOrDefault("checkpoint.busy_timeout", cfg.Checkpoint.BusyTimeout, 5*time.Second)
	if err != nil {
		return checkpoint.Config{}, err
	}
	return checkpoint.Config{
		Driver:      cfg.Checkpoint.Driver,
		Path:        cfg.Checkpoint.Path,
		BusyTimeout: busy,
	}, nil
}

func mapPollerConfig(cfg *config.Config, log logx.Logger) (poller.Config, error) {
	schedule := strings.TrimSpace(cfg.Poll.Schedule)
	if schedule == "" {
		schedule = "5m"
	}

	var override time.Time
	if raw := strings.TrimSpace(cfg.Poll.LastCheckOverride); raw != "" {
		ts, err := dateparse.ParseAny(raw)
		if err != nil {
			// Lenient by design: a bad override degrades to "no checkpoint".
			log.Warn("poll.last_check_override unparsable, ignoring", logx.String("value", raw))
		} else {
			override = ts.UTC()
		}
	}

	return poller.Config{
		Enabled:           cfg.Poll.Enabled,
		Schedule:          schedule,
		Timezone:          cfg.Poll.Timezone,
		FirstRunLimit:     cfg.GitHub.FirstRunLimit,
		LastCheckOverride: override,
	}, nil
}
