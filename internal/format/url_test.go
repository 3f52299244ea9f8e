package format

import "testing"

func TestRewriteAPIURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "pull request",
			in:   "https://api.github.com/repos/o/r/pulls/7",
			want: "https://github.com/o/r/pull/7",
		},
		{
			name: "issue keeps segment",
			in:   "https://api.github.com/repos/o/r/issues/123",
			want: "https://github.com/o/r/issues/123",
		},
		{
			name: "commit",
			in:   "https://api.github.com/repos/o/r/commits/abc123",
			want: "https://github.com/o/r/commit/abc123",
		},
		{
			name: "actions run",
			in:   "https://api.github.com/repos/o/r/actions/runs/99",
			want: "https://github.com/o/r/actions/runs/99",
		},
		{
			name: "discussion",
			in:   "https://api.github.com/repos/o/r/discussions/12",
			want: "https://github.com/o/r/discussions/12",
		},
		{
			name: "release needs lookup",
			in:   "https://api.github.com/repos/o/r/releases/5",
			want: "",
		},
		{
			name: "check suite needs lookup",
			in:   "https://api.github.com/repos/o/r/check-suites/5",
			want: "",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := RewriteAPIURL(tc.in); got != tc.want {
				t.Fatalf("RewriteAPIURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRunIDFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"https://api.github.com/repos/o/r/actions/runs/123", 123, true},
		{"https://api.github.com/repos/o/r/actions/runs/123?query=1", 123, true},
		{"https://api.github.com/repos/o/r/actions/runs/123/jobs", 123, true},
		{"https://api.github.com/repos/o/r/actions/runs/notanumber", 0, false},
		{"https://api.github.com/repos/o/r/issues/123", 0, false},
	}
	for _, tc := range tests {
		got, ok := RunIDFromURL(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("RunIDFromURL(%q) = %d, %v; want %d, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}
