package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/oshokin/alarm-queue/internal/domain/alarm"
)

// QueueMetrics aggregates counters for one queue. The zero value is ready to use.
type QueueMetrics struct {
	sentNormal      atomic.Uint64
	sentAlarm       atomic.Uint64
	receivedNormal  atomic.Uint64
	receivedAlarm   atomic.Uint64
	rejected        atomic.Uint64
	blockedSends    atomic.Uint64
	blockedReceives atomic.Uint64
	waitNanos       atomic.Int64
}

// Snapshot is a copy of the counters at one instant.
type Snapshot struct {
	SentNormal      uint64
	SentAlarm       uint64
	ReceivedNormal  uint64
	ReceivedAlarm   uint64
	Rejected        uint64
	BlockedSends    uint64
	BlockedReceives uint64
	WaitTotal       time.Duration
}

// Sent counts an accepted message.
func (m *QueueMetrics) Sent(kind alarm.Kind) {
	if kind == alarm.Alarm {
		m.sentAlarm.Add(1)
		return
	}

	m.sentNormal.Add(1)
}

// Received counts a delivered message.
func (m *QueueMetrics) Received(kind alarm.Kind) {
	if kind == alarm.Alarm {
		m.receivedAlarm.Add(1)
		return
	}

	m.receivedNormal.Add(1)
}

// Rejected counts a send that was refused after validation.
func (m *QueueMetrics) Rejected() {
	m.rejected.Add(1)
}

// TraceWait counts a suspension and returns a function that records its duration.
func (m *QueueMetrics) TraceWait(send bool) func() {
	if send {
		m.blockedSends.Add(1)
	} else {
		m.blockedReceives.Add(1)
	}

	start := time.Now()

	return func() {
		m.waitNanos.Add(time.Since(start).Nanoseconds())
	}
}

// Snapshot returns the current counter values.
func (m *QueueMetrics) Snapshot() Snapshot {
	return Snapshot{
		SentNormal:      m.sentNormal.Load(),
		SentAlarm:       m.sentAlarm.Load(),
		ReceivedNormal:  m.receivedNormal.Load(),
		ReceivedAlarm:   m.receivedAlarm.Load(),
		Rejected:        m.rejected.Load(),
		BlockedSends:    m.blockedSends.Load(),
		BlockedReceives: m.blockedReceives.Load(),
		WaitTotal:       time.Duration(m.waitNanos.Load()),
	}
}

// Reset zeroes every counter.
func (m *QueueMetrics) Reset() {
	m.sentNormal.Store(0)
	m.sentAlarm.Store(0)
	m.receivedNormal.Store(0)
	m.receivedAlarm.Store(0)
	m.rejected.Store(0)
	m.blockedSends.Store(0)
	m.blockedReceives.Store(0)
	m.waitNanos.Store(0)
}

// Outstanding returns accepted messages not yet delivered.
func (s Snapshot) Outstanding() uint64 {
	return s.SentNormal + s.SentAlarm - s.ReceivedNormal - s.ReceivedAlarm
}

// AverageWait returns the mean suspension time, or zero when nothing waited.
func (s Snapshot) AverageWait() time.Duration {
	waits := s.BlockedSends + s.BlockedReceives
	if waits == 0 {
		return 0
	}

	return s.WaitTotal / time.Duration(waits)
}
