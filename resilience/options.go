package resilience

import (
	"github.com/boniface/opsig/clock"
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

// BreakerOption configures a Breaker.
type BreakerOption interface {
	Option
	breakerOption()
}

type breakerOption struct {
	Option
}

func (breakerOption) breakerOption() {}

// WithClock sets the clock used to time the OPEN state.
func WithClock(c clock.Clock) BreakerOption {
	return breakerOption{option.New(identClock{}, c)}
}

// WithStateChangeHook registers fn to be called after every state
// transition. fn runs on the goroutine that made the transition and must
// not block.
func WithStateChangeHook(fn func(from, to State)) BreakerOption {
	return breakerOption{option.New(identStateChange{}, fn)}
}

type identClock struct{}

func (identClock) String() string { return "WithClock" }

type identStateChange struct{}

func (identStateChange) String() string { return "WithStateChangeHook" }
