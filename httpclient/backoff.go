package httpclient

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var _ backoff.BackOff = (*DoublingBackOff)(nil)

// DoublingBackOff waits Base * 2^n before retry n (0-based), without jitter.
//
// Example with Base=1s:
//
//	Retry 1: 1s
//	Retry 2: 2s
//	Retry 3: 4s
//
// The sequence is deterministic so callers can reason about the worst-case
// duration of a call. MaxInterval, when positive, caps each interval.
type DoublingBackOff struct {
	// Base is the first backoff interval.
	Base time.Duration

	// MaxInterval caps the interval. Zero means no cap.
	MaxInterval time.Duration

	// attempt is the 0-based index of the next retry.
	attempt int
}

// NewDoublingBackOff creates a DoublingBackOff starting at base.
func NewDoublingBackOff(base time.Duration) *DoublingBackOff {
	return &DoublingBackOff{Base: base}
}

// Reset restarts the sequence at Base.
func (b *DoublingBackOff) Reset() {
	b.attempt = 0
}

// NextBackOff returns the next interval and advances the sequence.
func (b *DoublingBackOff) NextBackOff() time.Duration {
	interval := doubled(b.Base, b.attempt)
	b.attempt++

	if b.MaxInterval > 0 && interval > b.MaxInterval {
		return b.MaxInterval
	}
	return interval
}

// doubled returns base * 2^n, saturating instead of overflowing.
func doubled(base time.Duration, n int) time.Duration {
	if base <= 0 {
		return 0
	}
	if n >= 62 || base > time.Duration(math.MaxInt64>>uint(n)) {
		return time.Duration(math.MaxInt64)
	}
	return base << uint(n)
}
