package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/usage-alarms/internal/domain/alarm"
)

// TestBoard_PublishSnapshot checks readers get sorted copies.
func TestBoard_PublishSnapshot(t *testing.T) {
	t.Parallel()

	board := NewBoard("svc-1")
	require.True(t, board.Snapshot().UpdatedAt.IsZero())
	require.Equal(t, "svc-1", board.Snapshot().ServiceID)

	published := &alarm.Snapshot{
		ServiceID: "svc-1",
		UpdatedAt: time.Now(),
		Alarms: []*alarm.Status{
			{Kind: alarm.MemoryUpperLimitGB, Window: []bool{true}},
			{Kind: alarm.CPULowerLimitVCPUs, Window: []bool{false}},
		},
	}
	board.Publish(published)

	published.Alarms[0].Window[0] = false

	got := board.Snapshot()
	require.Equal(t, alarm.CPULowerLimitVCPUs, got.Alarms[0].Kind)
	require.Equal(t, alarm.MemoryUpperLimitGB, got.Alarms[1].Kind)
	require.Equal(t, []bool{true}, got.Alarms[1].Window)

	got.Alarms[1].On = true
	require.False(t, board.Snapshot().Alarms[1].On)
}
