package resilience

import (
	"math"
	"math/bits"
	"math/rand/v2"
	"time"
)

// Kind selects how the retry delay grows.
type Kind string

const (
	KindFixed       Kind = "fixed"
	KindExponential Kind = "exponential"
)

// Jitter selects how the retry delay is randomized.
type Jitter string

const (
	JitterNone Jitter = "none"
	JitterFull Jitter = "full"
)

// Strategy computes the wait before a retry. It is a value type; the
// With* methods return modified copies.
type Strategy struct {
	kind     Kind
	base     time.Duration
	maxDelay time.Duration
	jitter   Jitter
}

// FixedDelay waits d before every retry.
func FixedDelay(d time.Duration) Strategy {
	return Strategy{kind: KindFixed, base: d, jitter: JitterNone}
}

// ExponentialBackoff waits base * 2^(attempt-1).
func ExponentialBackoff(base time.Duration) Strategy {
	return Strategy{kind: KindExponential, base: base, jitter: JitterNone}
}

// WithMaxDelay caps every delay at d. Zero or negative removes the cap.
func (s Strategy) WithMaxDelay(d time.Duration) Strategy {
	s.maxDelay = d
	return s
}

// WithFullJitter replaces each delay with a uniformly random value in
// [0, delay].
func (s Strategy) WithFullJitter() Strategy {
	s.jitter = JitterFull
	return s
}

func (s Strategy) Kind() Kind {
	return s.kind
}

func (s Strategy) MaxDelay() time.Duration {
	return s.maxDelay
}

// Delay returns the wait before retry number attempt, counting from 1.
// Attempts below 1 are treated as 1. The result is never negative and
// never exceeds the configured cap.
func (s Strategy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := max(s.base, 0)
	if s.kind == KindExponential && d > 0 {
		shift := uint(attempt - 1)
		if shift >= 63 || bits.Len64(uint64(d))+int(shift) > 63 {
			d = math.MaxInt64
		} else {
			d <<= shift
		}
	}

	if s.maxDelay > 0 && d > s.maxDelay {
		d = s.maxDelay
	}

	if s.jitter == JitterFull && d > 0 {
		if d == math.MaxInt64 {
			return rand.N(d)
		}
		return rand.N(d + 1)
	}
	return d
}

// StrategyFromConfig builds the Strategy described by cfg.
func StrategyFromConfig(cfg Config) Strategy {
	var s Strategy
	switch cfg.RetryStrategy {
	case KindFixed:
		s = FixedDelay(cfg.RetryBaseDelay)
	default:
		s = ExponentialBackoff(cfg.RetryBaseDelay)
	}
	s = s.WithMaxDelay(cfg.MaxRetryDelay)
	if cfg.RetryJitter == JitterFull {
		s = s.WithFullJitter()
	}
	return s
}
