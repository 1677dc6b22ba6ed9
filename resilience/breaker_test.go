package resilience_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boniface/opsig/clock"
	"github.com/boniface/opsig/resilience"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type transition struct {
	From resilience.State
	To   resilience.State
}

type recorder struct {
	mu          sync.Mutex
	transitions []transition
}

func (r *recorder) hook(from, to resilience.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, transition{From: from, To: to})
}

func (r *recorder) list() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.transitions...)
}

func newBreaker(t *testing.T, threshold int, probes int) (*resilience.Breaker, *clock.Manual, *recorder) {
	t.Helper()
	clk := clock.NewManual(time.Unix(1700000000, 0))
	rec := &recorder{}
	b, err := resilience.NewBreaker(threshold, 30*time.Second, probes,
		resilience.WithClock(clk),
		resilience.WithStateChangeHook(rec.hook),
	)
	require.NoError(t, err)
	return b, clk, rec
}

func fail(t *testing.T, b *resilience.Breaker) {
	t.Helper()
	p, err := b.Allow()
	require.NoError(t, err)
	b.Failure(p)
}

func succeed(t *testing.T, b *resilience.Breaker) {
	t.Helper()
	p, err := b.Allow()
	require.NoError(t, err)
	b.Success(p)
}

func TestBreakerTransitions(t *testing.T) {
	t.Parallel()

	t.Run("opens at threshold", func(t *testing.T) {
		t.Parallel()
		b, clk, rec := newBreaker(t, 3, 1)

		fail(t, b)
		fail(t, b)
		require.Equal(t, resilience.StateClosed, b.State())
		require.Equal(t, 2, b.Snapshot().ConsecutiveFailures)

		fail(t, b)
		snap := b.Snapshot()
		require.Equal(t, resilience.StateOpen, snap.State)
		require.True(t, clk.Now().Equal(snap.OpenedAt))

		_, err := b.Allow()
		require.ErrorIs(t, err, resilience.ErrCircuitOpen)
		require.Equal(t, []transition{{resilience.StateClosed, resilience.StateOpen}}, rec.list())
	})

	t.Run("success resets the failure count", func(t *testing.T) {
		t.Parallel()
		b, _, _ := newBreaker(t, 3, 1)

		fail(t, b)
		fail(t, b)
		succeed(t, b)
		require.Equal(t, 0, b.Snapshot().ConsecutiveFailures)
		fail(t, b)
		fail(t, b)
		require.Equal(t, resilience.StateClosed, b.State())
	})

	t.Run("half-open probe success closes", func(t *testing.T) {
		t.Parallel()
		b, clk, rec := newBreaker(t, 1, 1)

		fail(t, b)
		require.Equal(t, resilience.StateOpen, b.State())

		clk.Advance(29 * time.Second)
		_, err := b.Allow()
		require.ErrorIs(t, err, resilience.ErrCircuitOpen)

		clk.Advance(time.Second)
		probe, err := b.Allow()
		require.NoError(t, err)
		require.Equal(t, resilience.StateHalfOpen, b.State())

		_, err = b.Allow()
		require.ErrorIs(t, err, resilience.ErrCircuitOpen, "only one probe is admitted")

		b.Success(probe)
		snap := b.Snapshot()
		require.Equal(t, resilience.StateClosed, snap.State)
		require.Equal(t, 0, snap.ConsecutiveFailures)

		require.Equal(t, []transition{
			{resilience.StateClosed, resilience.StateOpen},
			{resilience.StateOpen, resilience.StateHalfOpen},
			{resilience.StateHalfOpen, resilience.StateClosed},
		}, rec.list())
	})

	t.Run("half-open probe failure reopens", func(t *testing.T) {
		t.Parallel()
		b, clk, _ := newBreaker(t, 1, 2)

		fail(t, b)
		clk.Advance(30 * time.Second)

		first, err := b.Allow()
		require.NoError(t, err)
		second, err := b.Allow()
		require.NoError(t, err)

		b.Success(first)
		require.Equal(t, resilience.StateHalfOpen, b.State())

		b.Failure(second)
		snap := b.Snapshot()
		require.Equal(t, resilience.StateOpen, snap.State)
		require.True(t, clk.Now().Equal(snap.OpenedAt), "openedAt is reset")
	})

	t.Run("needs every probe to succeed", func(t *testing.T) {
		t.Parallel()
		b, clk, _ := newBreaker(t, 1, 2)

		fail(t, b)
		clk.Advance(30 * time.Second)
		succeed(t, b)
		require.Equal(t, resilience.StateHalfOpen, b.State())
		succeed(t, b)
		require.Equal(t, resilience.StateClosed, b.State())
	})

	t.Run("stale outcomes are ignored", func(t *testing.T) {
		t.Parallel()
		b, _, _ := newBreaker(t, 2, 1)

		stale, err := b.Allow()
		require.NoError(t, err)
		fail(t, b)
		fail(t, b)
		require.Equal(t, resilience.StateOpen, b.State())

		b.Success(stale)
		require.Equal(t, resilience.StateOpen, b.State())
	})

	t.Run("released probe frees its slot", func(t *testing.T) {
		t.Parallel()
		b, clk, _ := newBreaker(t, 1, 1)

		fail(t, b)
		clk.Advance(30 * time.Second)
		probe, err := b.Allow()
		require.NoError(t, err)

		b.Release(probe)
		require.Equal(t, resilience.StateHalfOpen, b.State())
		require.Equal(t, 0, b.Snapshot().HalfOpenProbesUsed)

		_, err = b.Allow()
		require.NoError(t, err)
	})

	t.Run("reset", func(t *testing.T) {
		t.Parallel()
		b, _, _ := newBreaker(t, 1, 1)
		fail(t, b)
		b.Reset()
		require.Equal(t, resilience.StateClosed, b.State())
		succeed(t, b)
	})
}

func TestBreakerOpensExactlyOnce(t *testing.T) {
	t.Parallel()

	const threshold = 5
	b, _, rec := newBreaker(t, threshold, 1)

	var rejected atomic.Int64
	var g errgroup.Group
	for range 64 {
		g.Go(func() error {
			p, err := b.Allow()
			if err != nil {
				rejected.Add(1)
				return nil
			}
			b.Failure(p)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, resilience.StateOpen, b.State())
	require.Equal(t, []transition{{resilience.StateClosed, resilience.StateOpen}}, rec.list())
	require.Equal(t, uint64(1), b.Snapshot().Generation)
}

func TestStateString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "CLOSED", resilience.StateClosed.String())
	require.Equal(t, "OPEN", resilience.StateOpen.String())
	require.Equal(t, "HALF_OPEN", resilience.StateHalfOpen.String())
}
