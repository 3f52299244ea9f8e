package config

import (
	"testing"
	"time"
)

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "  ", want: 0},
		{raw: "5m", want: 5 * time.Minute},
		{raw: " 90s ", want: 90 * time.Second},
		{raw: "-1s", wantErr: true},
		{raw: "soon", wantErr: true},
		{raw: "5", wantErr: true}, // bare numbers are ambiguous
	}
	for _, tc := range cases {
		got, err := ParseDurationField("test.path", tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDurationField(%q): expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDurationField(%q): %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDurationField(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()

	def := 15 * time.Second
	if got, err := ParseDurationOrDefault("p", "", def); err != nil || got != def {
		t.Errorf("empty: got %v, %v; want %v", got, err, def)
	}
	if got, err := ParseDurationOrDefault("p", "0s", def); err != nil || got != def {
		t.Errorf("zero: got %v, %v; want default %v", got, err, def)
	}
	if got, err := ParseDurationOrDefault("p", "2s", def); err != nil || got != 2*time.Second {
		t.Errorf("2s: got %v, %v", got, err)
	}
	if _, err := ParseDurationOrDefault("p", "nope", def); err == nil {
		t.Error("invalid input should not fall back to the default")
	}
}
