package resilience

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/boniface/opsig/clock"
	"github.com/lestrrat-go/blackmagic"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is an immutable view of the breaker. Generation increases on
// every state transition.
type Snapshot struct {
	State               State
	ConsecutiveFailures int
	OpenedAt            time.Time
	HalfOpenProbesUsed  int
	HalfOpenSuccesses   int
	Generation          uint64
}

// Permit is handed out by Allow and must be returned through exactly one
// of Success, Failure or Release. Outcomes for a permit issued before the
// latest state transition are ignored.
type Permit struct {
	generation uint64
	probe      bool
}

// Breaker is a circuit breaker whose state is swapped atomically.
// It is safe for concurrent use.
type Breaker struct {
	state       atomic.Pointer[Snapshot]
	threshold   int
	openTimeout time.Duration
	probes      int
	clock       clock.Clock
	onChange    func(from, to State)
}

// NewBreaker creates a closed Breaker. threshold and probes below 1 are
// treated as 1.
func NewBreaker(threshold int, openTimeout time.Duration, probes int, options ...BreakerOption) (*Breaker, error) {
	b := &Breaker{
		threshold:   max(threshold, 1),
		openTimeout: max(openTimeout, 0),
		probes:      max(probes, 1),
		clock:       clock.SystemClock{},
	}

	for _, opt := range options {
		switch opt.Ident() {
		case identClock{}:
			if err := blackmagic.AssignIfCompatible(&b.clock, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign clock: %w", err)
			}
		case identStateChange{}:
			if err := blackmagic.AssignIfCompatible(&b.onChange, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign state change hook: %w", err)
			}
		}
	}

	b.state.Store(&Snapshot{State: StateClosed})
	return b, nil
}

// NewBreakerFromConfig creates a Breaker from the breaker fields of cfg.
func NewBreakerFromConfig(cfg Config, options ...BreakerOption) (*Breaker, error) {
	return NewBreaker(cfg.FailureThreshold, cfg.OpenTimeout, cfg.HalfOpenProbeCount, options...)
}

// Snapshot returns the current state.
func (b *Breaker) Snapshot() Snapshot {
	return *b.state.Load()
}

func (b *Breaker) State() State {
	return b.state.Load().State
}

// Allow asks to make a call. It returns ErrCircuitOpen when the call must
// not reach the transport. An OPEN breaker whose timeout has elapsed moves
// to HALF_OPEN and admits the caller as the first probe.
func (b *Breaker) Allow() (Permit, error) {
	for {
		cur := b.state.Load()
		switch cur.State {
		case StateClosed:
			return Permit{generation: cur.Generation}, nil

		case StateOpen:
			if b.clock.Now().Sub(cur.OpenedAt) < b.openTimeout {
				return Permit{}, ErrCircuitOpen
			}
			next := &Snapshot{
				State:              StateHalfOpen,
				HalfOpenProbesUsed: 1,
				Generation:         cur.Generation + 1,
			}
			if b.swap(cur, next) {
				return Permit{generation: next.Generation, probe: true}, nil
			}

		case StateHalfOpen:
			if cur.HalfOpenProbesUsed >= b.probes {
				return Permit{}, ErrCircuitOpen
			}
			next := *cur
			next.HalfOpenProbesUsed++
			if b.swap(cur, &next) {
				return Permit{generation: next.Generation, probe: true}, nil
			}
		}
	}
}

// Success records a successful call.
func (b *Breaker) Success(p Permit) {
	for {
		cur := b.state.Load()
		if cur.Generation != p.generation {
			return
		}

		var next *Snapshot
		switch cur.State {
		case StateClosed:
			if cur.ConsecutiveFailures == 0 {
				return
			}
			dup := *cur
			dup.ConsecutiveFailures = 0
			next = &dup
		case StateHalfOpen:
			dup := *cur
			dup.HalfOpenSuccesses++
			if dup.HalfOpenSuccesses >= b.probes {
				dup = Snapshot{State: StateClosed, Generation: cur.Generation + 1}
			}
			next = &dup
		default:
			return
		}

		if b.swap(cur, next) {
			return
		}
	}
}

// Failure records a failed call. In CLOSED the breaker opens when the
// consecutive failure count reaches the threshold; in HALF_OPEN any
// failure reopens it.
func (b *Breaker) Failure(p Permit) {
	for {
		cur := b.state.Load()
		if cur.Generation != p.generation {
			return
		}

		var next *Snapshot
		switch cur.State {
		case StateClosed:
			failures := cur.ConsecutiveFailures + 1
			if failures >= b.threshold {
				next = b.opened(cur, failures)
			} else {
				dup := *cur
				dup.ConsecutiveFailures = failures
				next = &dup
			}
		case StateHalfOpen:
			next = b.opened(cur, cur.ConsecutiveFailures)
		default:
			return
		}

		if b.swap(cur, next) {
			return
		}
	}
}

// Release gives back a permit whose call was abandoned, such as one
// cancelled by its context, without recording an outcome. A released
// probe frees its HALF_OPEN slot.
func (b *Breaker) Release(p Permit) {
	if !p.probe {
		return
	}
	for {
		cur := b.state.Load()
		if cur.Generation != p.generation || cur.State != StateHalfOpen || cur.HalfOpenProbesUsed == 0 {
			return
		}
		next := *cur
		next.HalfOpenProbesUsed--
		if b.swap(cur, &next) {
			return
		}
	}
}

// Reset forces the breaker back to CLOSED.
func (b *Breaker) Reset() {
	for {
		cur := b.state.Load()
		next := &Snapshot{State: StateClosed, Generation: cur.Generation + 1}
		if b.swap(cur, next) {
			return
		}
	}
}

func (b *Breaker) opened(cur *Snapshot, failures int) *Snapshot {
	return &Snapshot{
		State:               StateOpen,
		ConsecutiveFailures: failures,
		OpenedAt:            b.clock.Now(),
		Generation:          cur.Generation + 1,
	}
}

// swap installs next if cur is still current. Only the winning caller
// reports the transition.
func (b *Breaker) swap(cur, next *Snapshot) bool {
	if !b.state.CompareAndSwap(cur, next) {
		return false
	}
	if cur.State != next.State && b.onChange != nil {
		b.onChange(cur.State, next.State)
	}
	return true
}
