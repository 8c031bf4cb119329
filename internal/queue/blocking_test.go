package queue

import (
	"sync/atomic"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-queue/internal/domain/alarm"
)

// TestSend_SecondAlarmBlocks verifies that a second alarm waits until the first is received.
func TestSend_SecondAlarmBlocks(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := newQueue(t)
		require.NoError(t, q.Send("first", alarm.Alarm))

		var sent atomic.Bool

		go func() {
			if err := q.Send("second", alarm.Alarm); err == nil {
				sent.Store(true)
			}
		}()

		synctest.Wait()
		require.False(t, sent.Load(), "second alarm must wait for the slot")
		requireSize(t, q, 1, 1)

		requireReceive(t, q, alarm.Alarm, "first")

		synctest.Wait()
		require.True(t, sent.Load())
		requireSize(t, q, 1, 1)
		requireReceive(t, q, alarm.Alarm, "second")

		metrics := q.Metrics()
		require.Equal(t, uint64(1), metrics.BlockedSends)
		require.Equal(t, uint64(2), metrics.ReceivedAlarm)
	})
}

// TestSend_NormalsNeverBlock verifies that normal messages pass while an alarm sender waits.
func TestSend_NormalsNeverBlock(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := newQueue(t)
		require.NoError(t, q.Send("first", alarm.Alarm))

		go func() {
			_ = q.Send("second", alarm.Alarm) //nolint:errcheck // Checked through the receive order below.
		}()

		synctest.Wait()

		require.NoError(t, q.Send(1, alarm.Normal))
		require.NoError(t, q.Send(2, alarm.Normal))
		requireSize(t, q, 3, 1)

		requireReceive(t, q, alarm.Alarm, "first")
		synctest.Wait()

		// The waiting alarm took the slot and overtakes the normals.
		requireReceive(t, q, alarm.Alarm, "second")
		requireReceive(t, q, alarm.Normal, 1)
		requireReceive(t, q, alarm.Normal, 2)
	})
}

// TestReceive_BlocksUntilSend verifies that a receiver on an empty queue wakes on the next send.
func TestReceive_BlocksUntilSend(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := newQueue(t)

		got := make(chan any, 1)

		go func() {
			_, payload, err := q.Receive()
			if err == nil {
				got <- payload
			}

			close(got)
		}()

		synctest.Wait()
		require.Empty(t, got)

		require.NoError(t, q.Send(42, alarm.Normal))
		synctest.Wait()
		require.Equal(t, 42, <-got)
		requireSize(t, q, 0, 0)
		require.Equal(t, uint64(1), q.Metrics().BlockedReceives)
	})
}

// TestReceive_EveryWaiterIsServed verifies that no receiver is left waiting
// while messages are available.
func TestReceive_EveryWaiterIsServed(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		const receivers = 5

		q := newQueue(t)
		got := make(chan any, receivers)

		for range receivers {
			go func() {
				_, payload, err := q.Receive()
				if err == nil {
					got <- payload
				}
			}()
		}

		synctest.Wait()

		for i := range receivers - 1 {
			require.NoError(t, q.Send(i, alarm.Normal))
		}

		require.NoError(t, q.Send("urgent", alarm.Alarm))
		synctest.Wait()

		require.Len(t, got, receivers)
		requireSize(t, q, 0, 0)
	})
}

// TestReceive_WakesAllAlarmSenders verifies that every waiting alarm sender
// eventually gets the slot, one at a time.
func TestReceive_WakesAllAlarmSenders(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		const senders = 3

		q := newQueue(t)
		require.NoError(t, q.Send(0, alarm.Alarm))

		for i := 1; i <= senders; i++ {
			go func() {
				_ = q.Send(i, alarm.Alarm) //nolint:errcheck // Every payload is checked on receive.
			}()
		}

		synctest.Wait()

		seen := make(map[any]bool, senders+1)

		for range senders + 1 {
			alarms, err := q.Alarms()
			require.NoError(t, err)
			require.Equal(t, 1, alarms)

			kind, payload, err := q.Receive()
			require.NoError(t, err)
			require.Equal(t, alarm.Alarm, kind)
			require.False(t, seen[payload])

			seen[payload] = true

			synctest.Wait()
		}

		require.Len(t, seen, senders+1)
		requireSize(t, q, 0, 0)
	})
}

// TestDestroy_WakesBlockedParties verifies that suspended callers return
// instead of hanging when the queue is torn down.
func TestDestroy_WakesBlockedParties(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		receiving := newQueue(t)
		receiveErr := make(chan error, 1)

		go func() {
			_, _, err := receiving.Receive()
			receiveErr <- err
		}()

		sending := newQueue(t)
		outstanding := &resource{id: 1}
		waiting := &resource{id: 2}
		require.NoError(t, sending.Send(outstanding, alarm.Alarm))

		sendErr := make(chan error, 1)

		go func() {
			sendErr <- sending.Send(waiting, alarm.Alarm)
		}()

		synctest.Wait()
		require.Empty(t, receiveErr)
		require.Empty(t, sendErr)

		require.NoError(t, receiving.Destroy())
		require.NoError(t, sending.Destroy())
		synctest.Wait()

		require.ErrorIs(t, <-receiveErr, ErrUninitializedQueue)
		require.ErrorIs(t, <-sendErr, ErrUninitializedQueue)

		// Only the payload held by the queue is released; the waiting sender keeps its own.
		require.Equal(t, 1, outstanding.released)
		require.Zero(t, waiting.released)
	})
}
