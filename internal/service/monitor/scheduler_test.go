package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestInitialTick anchors the first window on the previous whole minute.
func TestInitialTick(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 10, 7, 42, 513, time.UTC)
	require.Equal(t, time.Date(2024, 5, 1, 10, 6, 0, 0, time.UTC), initialTick(now, time.Minute))
	require.Equal(t, time.Date(2024, 5, 1, 10, 2, 0, 0, time.UTC), initialTick(now, 5*time.Minute))
}

// TestNextTick advances from the anchor and rejects overflow.
func TestNextTick(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2024, 5, 1, 10, 6, 0, 0, time.UTC)

	next, err := nextTick(anchor, time.Minute)
	require.NoError(t, err)
	require.Equal(t, anchor.Add(time.Minute), next)

	_, err = nextTick(time.Date(9999, 12, 31, 23, 59, 30, 0, time.UTC), time.Minute)
	require.ErrorIs(t, err, ErrDateOutOfRange)
}

// TestSleepDuration never returns a negative wait.
func TestSleepDuration(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2024, 5, 1, 10, 6, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"before anchor", anchor.Add(-10 * time.Second), time.Minute},
		{"at anchor", anchor, time.Minute},
		{"inside period", anchor.Add(20 * time.Second), 40 * time.Second},
		{"exactly one period", anchor.Add(time.Minute), 0},
		{"behind schedule", anchor.Add(3 * time.Minute), 0},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, sleepDuration(tc.now, anchor, time.Minute), tc.name)
	}
}
