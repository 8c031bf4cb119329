package telemetry

import (
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-queue/internal/domain/alarm"
)

// TestQueueMetrics_Counters verifies per-kind counting, Outstanding and Reset.
func TestQueueMetrics_Counters(t *testing.T) {
	t.Parallel()

	var m QueueMetrics

	m.Sent(alarm.Normal)
	m.Sent(alarm.Normal)
	m.Sent(alarm.Alarm)
	m.Received(alarm.Alarm)
	m.Rejected()

	s := m.Snapshot()
	require.Equal(t, uint64(2), s.SentNormal)
	require.Equal(t, uint64(1), s.SentAlarm)
	require.Equal(t, uint64(1), s.ReceivedAlarm)
	require.Equal(t, uint64(1), s.Rejected)
	require.Equal(t, uint64(2), s.Outstanding())
	require.Zero(t, s.AverageWait())

	m.Reset()
	require.Equal(t, Snapshot{}, m.Snapshot())
}

// TestQueueMetrics_TraceWait measures suspensions with the bubble clock.
func TestQueueMetrics_TraceWait(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var m QueueMetrics

		done := m.TraceWait(true)
		time.Sleep(3 * time.Second)
		done()

		done = m.TraceWait(false)
		time.Sleep(time.Second)
		done()

		s := m.Snapshot()
		require.Equal(t, uint64(1), s.BlockedSends)
		require.Equal(t, uint64(1), s.BlockedReceives)
		require.Equal(t, 4*time.Second, s.WaitTotal)
		require.Equal(t, 2*time.Second, s.AverageWait())
	})
}
