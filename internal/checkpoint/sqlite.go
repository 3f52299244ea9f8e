package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	logx "ghnotify/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS checkpoint (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	last_checked TEXT NOT NULL,
	last_run_at  TEXT,
	fetched      INTEGER NOT NULL DEFAULT 0,
	published    INTEGER NOT NULL DEFAULT 0,
	suppressed   INTEGER NOT NULL DEFAULT 0
);
`

type sqliteStore struct {
	db  *sqlx.DB
	log logx.Logger
}

type checkpointRow struct {
	LastChecked string         `db:"last_checked"`
	LastRunAt   sql.NullString `db:"last_run_at"`
	Fetched     int            `db:"fetched"`
	Published   int            `db:"published"`
	Suppressed  int            `db:"suppressed"`
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("checkpoint.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Load(ctx context.Context) (State, bool, error) {
	if s == nil || s.db == nil {
		return State{}, false, ErrDisabled
	}
	var row checkpointRow
	err := s.db.GetContext(ctx, &row, `SELECT last_checked, last_run_at, fetched, published, suppressed FROM checkpoint WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}

	ts, err := time.Parse(time.RFC3339Nano, row.LastChecked)
	if err != nil || ts.IsZero() {
		s.log.Warn("checkpoint timestamp unparsable, treating as absent", logx.String("value", row.LastChecked))
		return State{}, false, nil
	}

	st := State{
		LastChecked: ts.UTC(),
		Fetched:     row.Fetched,
		Published:   row.Published,
		Suppressed:  row.Suppressed,
	}
	if row.LastRunAt.Valid {
		if at, err := time.Parse(time.RFC3339Nano, row.LastRunAt.String); err == nil {
			st.LastRunAt = at.UTC()
		}
	}
	return st, true, nil
}

func (s *sqliteStore) Save(ctx context.Context, st State) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	var lastRun string
	if !st.LastRunAt.IsZero() {
		lastRun = st.LastRunAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoint(id, last_checked, last_run_at, fetched, published, suppressed)
		 VALUES(1,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
			last_checked=excluded.last_checked,
			last_run_at=excluded.last_run_at,
			fetched=excluded.fetched,
			published=excluded.published,
			suppressed=excluded.suppressed`,
		st.LastChecked.UTC().Format(time.RFC3339Nano),
		nullStr(lastRun),
		st.Fetched, st.Published, st.Suppressed,
	)
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
