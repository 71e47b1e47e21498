package timeutil

import (
	"testing"
	"time"
)

func TestShortDur(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"zero", 0, "0s"},
		{"1 second", 1 * time.Second, "1s"},
		{"1 minute 0 seconds", 1 * time.Minute, "1m"},
		{"1 minute 30 seconds", 1*time.Minute + 30*time.Second, "1m30s"},
		{"1 hour 0 minutes 0 seconds", 1 * time.Hour, "1h"},
		{"1 hour 30 minutes 0 seconds", 1*time.Hour + 30*time.Minute, "1h30m"},
		{"1 hour 0 minutes 30 seconds", 1*time.Hour + 30*time.Second, "1h0m30s"},
		{"500 milliseconds", 500 * time.Millisecond, "500ms"},
		{"1 second 500 milliseconds", 1*time.Second + 500*time.Millisecond, "1.5s"},
		{"negative 1 minute", -1 * time.Minute, "-1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortDur(tt.duration); got != tt.want {
				t.Errorf("ShortDur(%v) = %q, want %q (original: %q)", tt.duration, got, tt.want, tt.duration.String())
			}
		})
	}
}

func TestFormatMillis(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0ms"},
		{850, "850ms"},
		{1250, "1.250s"},
		{59999, "59.999s"},
		{90000, "1m30s"},
		{3600000, "1h"},
		{-20, "-20ms"},
	}
	for _, tt := range tests {
		if got := FormatMillis(tt.ms); got != tt.want {
			t.Errorf("FormatMillis(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestMillisAndAverage(t *testing.T) {
	if got := Millis(1500*time.Millisecond + 999*time.Microsecond); got != 1500 {
		t.Errorf("Millis() = %d, want 1500", got)
	}
	if got := Average(300, 4); got != 75 {
		t.Errorf("Average() = %d, want 75", got)
	}
	if got := Average(300, 0); got != 0 {
		t.Errorf("Average() with zero count = %d, want 0", got)
	}
}

func TestRunID(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 0, 0, time.Local)
	if got := RunID(ts); got != "2024-03-09_14-05-00" {
		t.Errorf("RunID() = %q", got)
	}
	if _, err := time.ParseInLocation(RunIDLayout, RunID(time.Now()), time.Local); err != nil {
		t.Errorf("RunID() output does not round-trip: %v", err)
	}
}
