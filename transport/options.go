package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/boniface/opsig/clock"
	"github.com/boniface/opsig/resilience"
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

// ResilientOption configures a Resilient transport.
type ResilientOption interface {
	Option
	resilientOption()
}

type resilientOption struct {
	Option
}

func (resilientOption) resilientOption() {}

// Waiter suspends until d has passed or ctx is done, returning ctx.Err()
// in the latter case.
type Waiter func(ctx context.Context, d time.Duration) error

// WithClock sets the clock used by the circuit breaker.
func WithClock(c clock.Clock) ResilientOption {
	return resilientOption{option.New(identClock{}, c)}
}

// WithWaiter replaces the timer-based wait between attempts.
func WithWaiter(w Waiter) ResilientOption {
	return resilientOption{option.New(identWaiter{}, w)}
}

// WithLogger sets the logger for retries and breaker transitions.
func WithLogger(l *slog.Logger) ResilientOption {
	return resilientOption{option.New(identLogger{}, l)}
}

// WithBreaker uses b instead of a breaker built from the config, so that
// several transports can share one.
func WithBreaker(b *resilience.Breaker) ResilientOption {
	return resilientOption{option.New(identBreaker{}, b)}
}

// WithStrategy overrides the retry strategy derived from the config.
func WithStrategy(s resilience.Strategy) ResilientOption {
	return resilientOption{option.New(identStrategy{}, s)}
}

type identClock struct{}

func (identClock) String() string { return "WithClock" }

type identWaiter struct{}

func (identWaiter) String() string { return "WithWaiter" }

type identLogger struct{}

func (identLogger) String() string { return "WithLogger" }

type identBreaker struct{}

func (identBreaker) String() string { return "WithBreaker" }

type identStrategy struct{}

func (identStrategy) String() string { return "WithStrategy" }
