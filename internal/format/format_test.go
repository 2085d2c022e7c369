package format

import (
	"testing"
	"time"
)

func TestFormatExecutionDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "0µs"},
		{750 * time.Microsecond, "750µs"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.5s"},
		{1500*time.Millisecond + 300*time.Microsecond, "1.5s"},
		{2*time.Minute + 3*time.Second, "2m3s"},
	}
	for _, tt := range tests {
		if got := FormatExecutionDuration(tt.d); got != tt.want {
			t.Errorf("FormatExecutionDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatETA(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		elapsed, limit time.Duration
		want           string
	}{
		{"no limit", 3200 * time.Millisecond, 0, "3s"},
		{"within limit", 3 * time.Second, 10 * time.Second, "3s, ~7s left"},
		{"past limit", 12 * time.Second, 10 * time.Second, "12s, ~0s left"},
	}
	for _, tt := range tests {
		if got := FormatETA(tt.elapsed, tt.limit); got != tt.want {
			t.Errorf("%s: FormatETA(%v, %v) = %q, want %q", tt.name, tt.elapsed, tt.limit, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{3 << 20, "3.0 MiB"},
		{5 << 30, "5.0 GiB"},
		{1 << 40, "1.0 TiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
