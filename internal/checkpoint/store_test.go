package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "ghnotify/pkg/logx"
)

func TestOpenDispatch(t *testing.T) {
	t.Parallel()

	st, err := Open(Config{Driver: "none"}, logx.Nop())
	if err != nil || st != nil {
		t.Fatalf("driver none: got store=%v err=%v, want nil, nil", st, err)
	}
	st, err = Open(Config{Driver: ""}, logx.Nop())
	if err != nil || st != nil {
		t.Fatalf("empty driver: got store=%v err=%v, want nil, nil", st, err)
	}
	if _, err := Open(Config{Driver: "bogus"}, logx.Nop()); err == nil {
		t.Fatalf("unknown driver: want error")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatalf("file driver without path: want error")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	// Nothing saved yet.
	if _, ok, err := st.Load(ctx); err != nil || ok {
		t.Fatalf("load before save: ok=%v err=%v, want false, nil", ok, err)
	}

	want := State{
		LastChecked: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		LastRunAt:   time.Date(2026, 3, 14, 9, 27, 0, 0, time.UTC),
		Fetched:     12,
		Published:   10,
		Suppressed:  2,
	}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := st.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !got.LastChecked.Equal(want.LastChecked) {
		t.Fatalf("last_checked = %v, want %v", got.LastChecked, want.LastChecked)
	}
	if got.Fetched != 12 || got.Published != 10 || got.Suppressed != 2 {
		t.Fatalf("counts = %+v", got)
	}

	// No stray temp file after save.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestFileStoreLenientTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		wantOK bool
		want   time.Time
	}{
		{
			name:   "rfc3339",
			body:   `{"last_checked":"2026-03-14T09:26:53Z"}`,
			wantOK: true,
			want:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		},
		{
			name:   "hand edited",
			body:   `{"last_checked":"2026-03-14 09:26"}`,
			wantOK: true,
			want:   time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC),
		},
		{
			name:   "garbage timestamp",
			body:   `{"last_checked":"last tuesday-ish"}`,
			wantOK: false,
		},
		{
			name:   "empty timestamp",
			body:   `{"last_checked":""}`,
			wantOK: false,
		},
		{
			name:   "corrupt json",
			body:   `{"last_checked":`,
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "checkpoint.json")
			if err := os.WriteFile(path, []byte(tc.body), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer st.Close()

			got, ok, err := st.Load(context.Background())
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if tc.wantOK && !got.LastChecked.Equal(tc.want) {
				t.Fatalf("last_checked = %v, want %v", got.LastChecked, tc.want)
			}
		})
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "checkpoint.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: 2 * time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	if _, ok, err := st.Load(ctx); err != nil || ok {
		t.Fatalf("load before save: ok=%v err=%v, want false, nil", ok, err)
	}

	first := State{
		LastChecked: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Fetched:     3,
		Published:   3,
	}
	if err := st.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Upsert replaces, never grows.
	second := first
	second.LastChecked = first.LastChecked.Add(5 * time.Minute)
	second.Published = 7
	if err := st.Save(ctx, second); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, ok, err := st.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !got.LastChecked.Equal(second.LastChecked) {
		t.Fatalf("last_checked = %v, want %v", got.LastChecked, second.LastChecked)
	}
	if got.Published != 7 {
		t.Fatalf("published = %d, want 7", got.Published)
	}
}
