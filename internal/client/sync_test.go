package client

import (
	"testing"
	"time"
)

func TestBackoffDelaySchedule(t *testing.T) {
	opts := DefaultSyncOptions()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // capped
		30 * time.Second,
	}
	for attempt, expected := range want {
		if got := BackoffDelay(opts, attempt); got != expected {
			t.Errorf("attempt %d: delay = %v, want %v", attempt, got, expected)
		}
	}
}

func TestBackoffDelayNeverExceedsCap(t *testing.T) {
	opts := DefaultSyncOptions()
	for attempt := 0; attempt < 64; attempt++ {
		if got := BackoffDelay(opts, attempt); got > opts.ReconnectCap {
			t.Fatalf("attempt %d: delay %v exceeds cap %v", attempt, got, opts.ReconnectCap)
		}
	}
}
