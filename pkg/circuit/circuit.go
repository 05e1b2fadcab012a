// Package circuit provides a small circuit breaker used to stop hammering an
// upstream that is down.
package circuit

import (
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	// StateClosed means requests flow normally.
	StateClosed State = iota
	// StateOpen means the upstream is considered down and calls fail fast,
	// except for a probe every retry interval.
	StateOpen
)

// Breaker counts consecutive outcomes. After failureThreshold consecutive
// failures the circuit opens; while open, one probe call is allowed per retry
// interval, and successThreshold consecutive successes close it again.
// Callers decide what counts as a failure: a reachable upstream returning an
// application-level error usually should not trip it.
type Breaker struct {
	mu               sync.Mutex
	state            State
	name             string
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
	retryAfter       time.Duration
	lastAttempt      time.Time
	now              func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes close it again.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithRetryAfter sets how long an open circuit waits between probes.
func WithRetryAfter(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.retryAfter = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a closed breaker with the given name.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: 5,
		successThreshold: 2,
		retryAfter:       15 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name identifies the breaker in logs and metrics.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. A closed circuit always allows;
// an open one allows a single probe per retry interval.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateClosed {
		return true
	}
	if b.now().Sub(b.lastAttempt) >= b.retryAfter {
		b.lastAttempt = b.now()
		return true
	}
	return false
}

// RecordFailure counts a failed call. It returns true when this failure
// transitioned the circuit to open.
func (b *Breaker) RecordFailure() (opened bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.successCount = 0
	b.lastAttempt = b.now()

	if b.state == StateClosed && b.failureCount >= b.failureThreshold {
		b.state = StateOpen
		return true
	}
	return false
}

// RecordSuccess counts a successful call. It returns true when this success
// transitioned the circuit back to closed.
func (b *Breaker) RecordSuccess() (closed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++
	b.failureCount = 0

	if b.state == StateOpen && b.successCount >= b.successThreshold {
		b.state = StateClosed
		return true
	}
	return false
}
