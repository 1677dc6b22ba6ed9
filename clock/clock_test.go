package clock_test

import (
	"testing"
	"time"

	"github.com/boniface/opsig/clock"
	"github.com/stretchr/testify/require"
)

func TestClock(t *testing.T) {
	t.Parallel()

	t.Run("Fixed clock never moves", func(t *testing.T) {
		t.Parallel()
		ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c := clock.FixedClock(ts)
		require.Equal(t, ts, c.Now())
		require.Equal(t, ts, c.Now())
	})

	t.Run("Manual clock advances on demand", func(t *testing.T) {
		t.Parallel()
		ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		c := clock.NewManual(ts)
		require.Equal(t, ts, c.Now())
		c.Advance(30 * time.Second)
		require.Equal(t, ts.Add(30*time.Second), c.Now())
	})

	t.Run("System clock tracks wall time", func(t *testing.T) {
		t.Parallel()
		before := time.Now()
		now := clock.SystemClock{}.Now()
		require.False(t, now.Before(before))
	})
}
