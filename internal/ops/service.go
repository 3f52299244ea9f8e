// Package ops exposes a small localhost HTTP surface: health, status, and a
// manual check trigger.
package ops

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"ghnotify/internal/checkpoint"
	"ghnotify/internal/poller"
	logx "ghnotify/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string // default 127.0.0.1:8610
	Token   string // optional bearer token
}

// Runner is the slice of the poller the ops surface needs.
type Runner interface {
	Trigger(ctx context.Context) (poller.RunStats, error)
	Stats() poller.RunStats
	Running() bool
}

type Service struct {
	runner Runner
	store  checkpoint.Store // may be nil
	log    logx.Logger

	mu      sync.Mutex
	cfg     Config
	e       *echo.Echo
	started time.Time
}

func New(runner Runner, store checkpoint.Store, cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:8610"
	}
	return &Service{runner: runner, store: store, cfg: cfg, log: log}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.e != nil {
		return nil
	}
	s.started = time.Now()

	e := s.buildEcho()
	s.e = e
	addr := s.cfg.Addr

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("ops server exited", logx.String("addr", addr), logx.Err(err))
		}
	}()
	s.log.Info("ops server listening", logx.String("addr", addr))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	e := s.e
	s.e = nil
	s.mu.Unlock()
	if e == nil {
		return nil
	}
	return e.Shutdown(ctx)
}

// buildEcho wires routes and middleware. Split out so tests can hit the
// handler without binding a port.
func (s *Service) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	token := s.cfg.Token
	if token != "" {
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				got := c.Request().Header.Get(echo.HeaderAuthorization)
				if got != "Bearer "+token {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				return next(c)
			}
		})
	}

	e.GET("/healthz", s.handleHealthz)
	e.GET("/status", s.handleStatus)
	e.POST("/check", s.handleCheck)
	return e
}

func (s *Service) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type statusPayload struct {
	Running    bool              `json:"running"`
	UptimeSec  int64             `json:"uptime_sec"`
	LastRun    poller.RunStats   `json:"last_run"`
	Checkpoint *checkpoint.State `json:"checkpoint,omitempty"`
}

func (s *Service) handleStatus(c echo.Context) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	p := statusPayload{
		Running:   s.runner.Running(),
		UptimeSec: int64(time.Since(started).Seconds()),
		LastRun:   s.runner.Stats(),
	}
	if s.store != nil {
		if st, ok, err := s.store.Load(c.Request().Context()); err == nil && ok {
			p.Checkpoint = &st
		}
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Service) handleCheck(c echo.Context) error {
	stats, err := s.runner.Trigger(c.Request().Context())
	if errors.Is(err, poller.ErrRunInProgress) {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]any{
			"error": err.Error(),
			"stats": stats,
		})
	}
	return c.JSON(http.StatusOK, stats)
}
