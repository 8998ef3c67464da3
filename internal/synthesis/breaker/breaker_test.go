package breaker

import (
	"errors"
	"testing"
	"time"
)

func TestOpensAtFailureThreshold(t *testing.T) {
	b := New(WithFailureThreshold(3))
	for i := 0; i < 2; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("allow before threshold: %v", err)
		}
		b.RecordFailure()
	}
	if b.State() != Closed {
		t.Fatalf("state = %q, want closed below threshold", b.State())
	}
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state = %q, want open at threshold", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("allow while open = %v, want ErrOpen", err)
	}
	if b.Failures() != 3 {
		t.Fatalf("failures = %d, want 3", b.Failures())
	}
}

func TestHalfOpenSingleProbe(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	b := New(WithFailureThreshold(1), WithResetTimeout(time.Minute), WithClock(func() time.Time { return now }))
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state = %q, want open", b.State())
	}

	// Before the reset timeout every call is refused.
	now = now.Add(30 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("allow before timeout = %v, want ErrOpen", err)
	}

	// After the timeout exactly one probe is admitted.
	now = now.Add(31 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe allow: %v", err)
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %q, want half_open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("second probe = %v, want ErrOpen", err)
	}
}

func TestProbeSuccessCloses(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	b := New(WithFailureThreshold(1), WithResetTimeout(time.Minute), WithClock(func() time.Time { return now }))
	b.RecordFailure()
	now = now.Add(2 * time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe allow: %v", err)
	}
	b.RecordSuccess()
	if b.State() != Closed {
		t.Fatalf("state = %q, want closed after probe success", b.State())
	}
	if b.Failures() != 0 {
		t.Fatalf("failures = %d, want 0 after success", b.Failures())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("allow after close: %v", err)
	}
}

func TestProbeFailureReopens(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	b := New(WithFailureThreshold(3), WithResetTimeout(time.Minute), WithClock(func() time.Time { return now }))
	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	now = now.Add(2 * time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe allow: %v", err)
	}
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state = %q, want open after failed probe", b.State())
	}
	// The reset timer restarts from the failed probe.
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("allow after failed probe = %v, want ErrOpen", err)
	}
}

func TestSuccessResetsConsecutiveCount(t *testing.T) {
	b := New(WithFailureThreshold(3))
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	if b.State() != Closed {
		t.Fatalf("state = %q, want closed; only consecutive failures count", b.State())
	}
}

func TestReset(t *testing.T) {
	b := New(WithFailureThreshold(1))
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state = %q, want open", b.State())
	}
	b.Reset()
	if b.State() != Closed || b.Failures() != 0 {
		t.Fatalf("state = %q failures = %d, want closed/0 after reset", b.State(), b.Failures())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("allow after reset: %v", err)
	}
}
