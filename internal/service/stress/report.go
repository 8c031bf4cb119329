package stress

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/alarm-queue/internal/domain/alarm"
	"github.com/oshokin/alarm-queue/internal/repository/history"
	"github.com/oshokin/alarm-queue/internal/telemetry"
)

// Report is the outcome of a stress run.
type Report struct {
	Actor      string
	Discipline string
	Seed       uint64

	Producers int
	Consumers int
	Messages  int

	// Sent counts accepted messages, SentAlarms the alarms among them.
	Sent       int
	SentAlarms int
	Received   int

	Duplicates      int
	Lost            int
	Corrupted       int
	KindMismatches  int
	OrderViolations int

	// MaxAlarms is the highest alarm count seen by the sampler.
	MaxAlarms int
	Samples   int
	FinalSize int

	SendRetries    uint64
	ReceiveRetries uint64

	// SentDigest and ReceivedDigest sum the envelope fingerprints on both sides.
	SentDigest     uint64
	ReceivedDigest uint64

	Elapsed time.Duration
	Metrics telemetry.Snapshot
}

// Problems lists every failed check. An empty result means the run was clean.
func (r *Report) Problems() []string {
	var problems []string

	check := func(failed bool, format string, args ...any) {
		if failed {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(r.Duplicates > 0, "%d duplicate deliveries", r.Duplicates)
	check(r.Lost > 0, "%d lost messages", r.Lost)
	check(r.Corrupted > 0, "%d corrupted messages", r.Corrupted)
	check(r.KindMismatches > 0, "%d messages delivered with the wrong kind", r.KindMismatches)
	check(r.OrderViolations > 0, "%d normal messages out of order", r.OrderViolations)
	check(r.MaxAlarms > 1, "%d alarms outstanding at once", r.MaxAlarms)
	check(r.Received != r.Sent, "received %d of %d messages", r.Received, r.Sent)
	check(r.SentDigest != r.ReceivedDigest, "digest mismatch %x != %x", r.SentDigest, r.ReceivedDigest)
	check(r.FinalSize != 0, "final size %d", r.FinalSize)

	return problems
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return len(r.Problems()) == 0
}

// Record summarises the report for the run history.
func (r *Report) Record(at time.Time, runErr error) *history.Record {
	rec := &history.Record{
		RecordedAt: at,
		Actor:      r.Actor,
		Discipline: r.Discipline,
		Seed:       r.Seed,
		Producers:  r.Producers,
		Consumers:  r.Consumers,
		Messages:   r.Messages,
		Sent:       r.Sent,
		Received:   r.Received,
		Elapsed:    r.Elapsed,
		Problems:   r.Problems(),
	}

	if runErr != nil {
		rec.Error = runErr.Error()
	}

	return rec
}

// verify cross-checks what producers sent against what consumers received.
func (r *run) verify() *Report {
	report := &Report{
		Seed:           r.seed,
		Producers:      r.settings.Producers,
		Consumers:      r.settings.Consumers,
		Messages:       r.settings.Messages,
		MaxAlarms:      int(r.maxAlarms.Load()),
		Samples:        int(r.samples.Load()),
		FinalSize:      r.finalSize,
		SendRetries:    r.sendRetries.Load(),
		ReceiveRetries: r.receiveRetries.Load(),
	}

	sent := make(map[uuid.UUID]uint64)

	for _, records := range r.sent {
		for _, rec := range records {
			sent[rec.env.ID] = rec.digest
			report.Sent++
			report.SentDigest += rec.digest

			if rec.env.Kind == alarm.Alarm {
				report.SentAlarms++
			}
		}
	}

	seen := make(map[uuid.UUID]int, len(sent))

	for _, records := range r.got {
		// A consumer receives sequentially, so normals of one producer must keep their order.
		lastSeq := make(map[int]int)

		for _, rec := range records {
			report.Received++
			report.ReceivedDigest += rec.digest

			if seen[rec.env.ID]++; seen[rec.env.ID] > 1 {
				report.Duplicates++
			}

			if digest, ok := sent[rec.env.ID]; !ok || digest != rec.digest {
				report.Corrupted++
			}

			if rec.kind != rec.env.Kind {
				report.KindMismatches++
			}

			if rec.kind != alarm.Normal {
				continue
			}

			if prev, ok := lastSeq[rec.env.Producer]; ok && rec.env.Seq <= prev {
				report.OrderViolations++
			}

			lastSeq[rec.env.Producer] = rec.env.Seq
		}
	}

	for id := range sent {
		if seen[id] == 0 {
			report.Lost++
		}
	}

	return report
}
