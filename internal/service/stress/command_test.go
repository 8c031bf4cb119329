package stress

import (
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oshokin/alarm-queue/internal/allocator"
	"github.com/oshokin/alarm-queue/internal/config"
	"github.com/oshokin/alarm-queue/internal/domain/alarm"
	"github.com/oshokin/alarm-queue/internal/queue"
	"github.com/oshokin/alarm-queue/internal/repository/history"
)

func newQueue(t *testing.T, opts ...queue.Option) *queue.AlarmQueue {
	t.Helper()

	q, err := queue.New(append([]queue.Option{queue.WithLogger(zap.NewNop().Sugar())}, opts...)...)
	require.NoError(t, err)

	return q
}

// TestExecute stresses both disciplines and expects a clean report.
func TestExecute(t *testing.T) {
	t.Parallel()

	settings := config.Stress{
		Producers:  4,
		Consumers:  3,
		Messages:   200,
		AlarmRatio: 0.2,
		Seed:       7,
		Timeout:    30 * time.Second,
	}

	for _, d := range []queue.Discipline{queue.Blocking, queue.NonBlocking} {
		t.Run(d.String(), func(t *testing.T) {
			t.Parallel()

			runtime := allocator.NewRuntime()
			q := newQueue(t, queue.WithDiscipline(d), queue.WithAllocator(runtime))

			report, err := Execute(t.Context(), q, settings)
			require.NoError(t, err)
			require.True(t, report.OK(), report.Problems())
			require.Equal(t, d.String(), report.Discipline)
			require.Equal(t, 800, report.Sent)
			require.Equal(t, 800, report.Received)
			require.Equal(t, uint64(7), report.Seed)
			require.Equal(t, uint64(report.SentAlarms), report.Metrics.SentAlarm)
			require.Zero(t, report.Metrics.Outstanding())
			require.LessOrEqual(t, report.MaxAlarms, 1)

			// Every node and the queue state went back to the allocator.
			blocks, _ := runtime.Live()
			require.Zero(t, blocks)
		})
	}
}

// TestExecute_Arena runs against a small arena so that normal sends are refused and retried.
func TestExecute_Arena(t *testing.T) {
	t.Parallel()

	heap, err := allocator.NewHeap(2048)
	require.NoError(t, err)

	q := newQueue(t, queue.WithAllocator(heap))

	report, err := Execute(t.Context(), q, config.Stress{
		Producers: 3,
		Consumers: 2,
		Messages:  300,
		Timeout:   30 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, 900, report.Received)
	require.Zero(t, report.SentAlarms)
	require.Zero(t, heap.Stats().Blocks)
}

// TestExecute_NoMessages completes immediately.
func TestExecute_NoMessages(t *testing.T) {
	t.Parallel()

	q := newQueue(t)

	report, err := Execute(t.Context(), q, config.Stress{Producers: 2, Consumers: 2})
	require.NoError(t, err)
	require.Zero(t, report.Sent)
	require.True(t, report.OK())

	_, err = q.Size()
	require.ErrorIs(t, err, queue.ErrUninitializedQueue)
}

// TestExecute_Timeout releases producers stuck on the alarm slot once the deadline passes.
func TestExecute_Timeout(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := newQueue(t)

		report, err := Execute(t.Context(), q, config.Stress{
			Producers:  2,
			Messages:   5,
			AlarmRatio: 1,
			Timeout:    time.Second,
		})
		require.ErrorIs(t, err, ErrTimeout)
		require.Equal(t, 1, report.Sent)
		require.Zero(t, report.Received)
		require.Equal(t, time.Second, report.Elapsed)
		require.Equal(t, 1, report.MaxAlarms)
		require.Positive(t, report.Samples)
	})
}

// TestVerify checks that every kind of delivery fault is detected.
func TestVerify(t *testing.T) {
	t.Parallel()

	a0 := newEnvelope(0, 0, alarm.Normal)
	a1 := newEnvelope(0, 1, alarm.Normal)
	a2 := newEnvelope(0, 2, alarm.Normal)
	b0 := newEnvelope(1, 0, alarm.Alarm)
	lost := newEnvelope(1, 1, alarm.Normal)

	sent := func(envs ...*Envelope) []sentRecord {
		out := make([]sentRecord, 0, len(envs))
		for _, e := range envs {
			out = append(out, sentRecord{env: e, digest: e.Digest()})
		}

		return out
	}

	got := func(kind alarm.Kind, e *Envelope) receivedRecord {
		return receivedRecord{env: e, kind: kind, digest: e.Digest()}
	}

	forged := *a1
	forged.Seq = 42

	r := &run{
		settings: config.Stress{Producers: 2, Consumers: 2, Messages: 3},
		sent: [][]sentRecord{
			sent(a0, a1, a2),
			sent(b0, lost),
		},
		got: [][]receivedRecord{
			// a2 before a1 on the same consumer.
			{got(alarm.Normal, a0), got(alarm.Normal, a2), got(alarm.Normal, a1)},
			// b0 arrives with the wrong kind and twice, plus a forged copy.
			{got(alarm.Normal, b0), got(alarm.Alarm, b0), {env: a1, kind: alarm.Normal, digest: forged.Digest()}},
		},
	}

	report := r.verify()
	require.Equal(t, 5, report.Sent)
	require.Equal(t, 1, report.SentAlarms)
	require.Equal(t, 6, report.Received)
	require.Equal(t, 2, report.Duplicates)
	require.Equal(t, 1, report.Lost)
	require.Equal(t, 1, report.Corrupted)
	require.Equal(t, 1, report.KindMismatches)
	require.Equal(t, 1, report.OrderViolations)
	require.NotEqual(t, report.SentDigest, report.ReceivedDigest)
	require.False(t, report.OK())
	require.Len(t, report.Problems(), 7)
}

// TestEnvelopeDigest ensures every field takes part in the fingerprint.
func TestEnvelopeDigest(t *testing.T) {
	t.Parallel()

	base := newEnvelope(3, 9, alarm.Normal)
	same := *base
	require.Equal(t, base.Digest(), same.Digest())

	variants := []func(e *Envelope){
		func(e *Envelope) { e.Producer++ },
		func(e *Envelope) { e.Seq++ },
		func(e *Envelope) { e.Kind = alarm.Alarm },
		func(e *Envelope) { e.ID[0] ^= 0xff },
	}

	for _, mutate := range variants {
		changed := *base
		mutate(&changed)
		require.NotEqual(t, base.Digest(), changed.Digest())
	}

	require.NotEqual(t, base.ID, newEnvelope(3, 9, alarm.Normal).ID)
}

// TestRun loads the configuration and applies the overrides.
func TestRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(path, &config.Config{
		Discipline: "non-blocking",
		Stress:     config.Stress{Producers: 2, Consumers: 2, Messages: 50},
	}))

	ratio := 0.5
	historyPath := filepath.Join(t.TempDir(), "history.json")

	report, err := Run(t.Context(), &Options{
		ConfigPath:  path,
		Discipline:  "blocking",
		Consumers:   3,
		AlarmRatio:  &ratio,
		Seed:        11,
		HistoryFile: historyPath,
	})
	require.NoError(t, err)
	require.Equal(t, "blocking", report.Discipline)
	require.Equal(t, 2, report.Producers)
	require.Equal(t, 3, report.Consumers)
	require.Equal(t, 100, report.Received)
	require.Positive(t, report.SentAlarms)
	require.NotEmpty(t, report.Actor)

	records, err := history.NewFileRepository(historyPath).Load(t.Context())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.True(t, records[0].OK())
	require.Equal(t, uint64(11), records[0].Seed)
	require.Equal(t, 100, records[0].Received)

	_, err = Run(t.Context(), &Options{ConfigPath: path, Producers: -1})
	require.Error(t, err)
}
