package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := New("vault", WithFailureThreshold(3))

	assert.False(t, b.RecordFailure())
	assert.False(t, b.RecordFailure())
	assert.True(t, b.RecordFailure())
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b := New("vault", WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	assert.False(t, b.RecordFailure())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerAllowsProbeAfterRetryInterval(t *testing.T) {
	current := time.Now()
	b := New("vault",
		WithFailureThreshold(1),
		WithRetryAfter(10*time.Second),
		WithClock(func() time.Time { return current }),
	)

	assert.True(t, b.RecordFailure())
	assert.False(t, b.Allow())

	current = current.Add(11 * time.Second)
	assert.True(t, b.Allow())
	// Only one probe per interval.
	assert.False(t, b.Allow())
}

func TestBreakerClosesAfterProbeSuccesses(t *testing.T) {
	current := time.Now()
	b := New("vault",
		WithFailureThreshold(1),
		WithSuccessThreshold(2),
		WithRetryAfter(time.Second),
		WithClock(func() time.Time { return current }),
	)

	b.RecordFailure()
	assert.False(t, b.RecordSuccess())
	assert.True(t, b.RecordSuccess())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}
