package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"

	logx "ghnotify/pkg/logx"
)

// fileStore keeps the state in a single JSON document. Saves go through a
// temp file and rename so a crash mid-write never leaves a torn checkpoint.
//
// The timestamp is parsed leniently on load: operators hand-edit this file
// to rewind or skip, and "2025-01-02 15:04" should just work.
type fileStore struct {
	log  logx.Logger
	mu   sync.Mutex
	path string
}

// fileState is the on-disk shape. LastChecked stays a string so lenient
// parsing can happen after decode.
type fileState struct {
	LastChecked string    `json:"last_checked"`
	LastRunAt   time.Time `json:"last_run_at,omitzero"`
	Fetched     int       `json:"fetched"`
	Published   int       `json:"published"`
	Suppressed  int       `json:"suppressed"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("checkpoint.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Load(ctx context.Context) (State, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}

	var fs fileState
	if err := json.Unmarshal(b, &fs); err != nil {
		// A corrupt file is treated as a missing checkpoint, not a fatal
		// error. The next save rewrites it.
		s.log.Warn("checkpoint file unreadable, treating as absent", logx.String("path", s.path), logx.Err(err))
		return State{}, false, nil
	}

	st := State{
		LastRunAt:  fs.LastRunAt,
		Fetched:    fs.Fetched,
		Published:  fs.Published,
		Suppressed: fs.Suppressed,
	}
	ts, err := dateparse.ParseAny(strings.TrimSpace(fs.LastChecked))
	if err != nil || ts.IsZero() {
		s.log.Warn("checkpoint timestamp unparsable, treating as absent", logx.String("value", fs.LastChecked))
		return State{}, false, nil
	}
	st.LastChecked = ts.UTC()
	return st, true, nil
}

func (s *fileStore) Save(ctx context.Context, st State) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	fs := fileState{
		LastChecked: st.LastChecked.UTC().Format(time.RFC3339Nano),
		LastRunAt:   st.LastRunAt,
		Fetched:     st.Fetched,
		Published:   st.Published,
		Suppressed:  st.Suppressed,
	}
	b, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Close() error { return nil }
