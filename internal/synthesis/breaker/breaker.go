// Package breaker guards a remote dependency behind a circuit breaker.
//
// The breaker is an explicitly owned state object: callers construct one per
// remote dependency and pass it by reference. State is process-lifetime only
// and never persisted.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// State is the breaker's current disposition toward the remote dependency.
type State string

const (
	// Closed passes calls through.
	Closed State = "closed"
	// Open fails calls fast without touching the dependency.
	Open State = "open"
	// HalfOpen allows exactly one probe call after the reset timeout.
	HalfOpen State = "half_open"
)

// ErrOpen indicates the breaker refused a call without invoking the dependency.
var ErrOpen = errors.New("circuit breaker is open")

const (
	// DefaultFailureThreshold is consecutive failures before opening.
	DefaultFailureThreshold = 5
	// DefaultResetTimeout is how long the breaker stays open before probing.
	DefaultResetTimeout = 60 * time.Second
)

// Breaker tracks consecutive failures of one remote dependency.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	probing          bool
	failureThreshold int
	resetTimeout     time.Duration
	clock            func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold overrides the consecutive-failure threshold.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithResetTimeout overrides the open-state cool-down.
func WithResetTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.resetTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(b *Breaker) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// New builds a closed breaker.
func New(opts ...Option) *Breaker {
	b := &Breaker{
		state:            Closed,
		failureThreshold: DefaultFailureThreshold,
		resetTimeout:     DefaultResetTimeout,
		clock:            time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allow reports whether a call may proceed. When the breaker is open and the
// reset timeout has elapsed it admits exactly one half-open probe; concurrent
// callers during the probe are refused.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		return nil
	case Open:
		if b.clock().Sub(b.openedAt) < b.resetTimeout {
			return ErrOpen
		}
		b.state = HalfOpen
		b.probing = true
		return nil
	case HalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	}
	return nil
}

// RecordSuccess closes the breaker and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.probing = false
}

// RecordFailure increments the failure count. The breaker opens when the count
// reaches the threshold, and a failed half-open probe reopens it immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.state == HalfOpen || b.failures >= b.failureThreshold {
		b.state = Open
		b.openedAt = b.clock()
		b.probing = false
	}
}

// Reset returns the breaker to its initial closed state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.probing = false
	b.openedAt = time.Time{}
}

// State reports the current state without admitting a call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures reports the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
