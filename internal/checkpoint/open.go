package checkpoint

import (
	"context"
	"errors"
	"strings"

	logx "ghnotify/pkg/logx"
)

// Store is the minimal persistence API used by the poller.
type Store interface {
	// Load returns the persisted state. ok is false when nothing usable has
	// been saved yet (missing file, empty table, unreadable timestamp).
	Load(ctx context.Context) (st State, ok bool, err error)
	Save(ctx context.Context, st State) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if checkpointing is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown checkpoint driver: " + driver)
	}
}
