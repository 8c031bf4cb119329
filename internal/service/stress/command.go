package stress

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/alarm-queue/internal/config"
	"github.com/oshokin/alarm-queue/internal/domain/alarm"
	"github.com/oshokin/alarm-queue/internal/logger"
	"github.com/oshokin/alarm-queue/internal/queue"
	"github.com/oshokin/alarm-queue/internal/repository/history"
	"github.com/oshokin/alarm-queue/internal/service/common"
)

// SampleInterval is the period of the alarm-count sampler.
const SampleInterval = time.Millisecond

var (
	// ErrTimeout is returned when a run does not complete in time.
	ErrTimeout = errors.New("stress run timed out")
	// ErrVerification is returned when delivery checks fail.
	ErrVerification = errors.New("stress verification failed")
	// errForeignPayload is returned when a consumer receives something that is not an Envelope.
	errForeignPayload = errors.New("unexpected payload type")
)

// Options controls a stress run. Non-zero fields override the configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Discipline overrides the queue discipline.
	Discipline string
	// Producers overrides the number of senders.
	Producers int
	// Consumers overrides the number of receivers.
	Consumers int
	// Messages overrides the number of messages per producer.
	Messages int
	// AlarmRatio overrides the share of alarms when set.
	AlarmRatio *float64
	// Seed overrides the kind selection seed.
	Seed uint64
	// Timeout overrides the run deadline.
	Timeout time.Duration
	// HistoryFile, when set, receives a record of the run.
	HistoryFile string
}

// apply merges the overrides into cfg and validates the result.
func (o *Options) apply(cfg *config.Config) error {
	if o.Discipline != "" {
		cfg.Discipline = o.Discipline
	}

	if o.Producers != 0 {
		cfg.Stress.Producers = o.Producers
	}

	if o.Consumers != 0 {
		cfg.Stress.Consumers = o.Consumers
	}

	if o.Messages != 0 {
		cfg.Stress.Messages = o.Messages
	}

	if o.AlarmRatio != nil {
		cfg.Stress.AlarmRatio = *o.AlarmRatio
	}

	if o.Seed != 0 {
		cfg.Stress.Seed = o.Seed
	}

	if o.Timeout != 0 {
		cfg.Stress.Timeout = o.Timeout
	}

	return config.Validate(cfg)
}

// Run loads the configuration, builds a queue and stresses it.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	ctx = logger.WithName(ctx, "stress")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if err := opts.apply(cfg); err != nil {
		return nil, err
	}

	q, err := common.NewQueue(cfg)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Starting stress run",
		"discipline", q.Discipline(),
		"arena_size", cfg.ArenaSize,
		"producers", cfg.Stress.Producers,
		"consumers", cfg.Stress.Consumers,
		"messages", cfg.Stress.Messages,
		"alarm_ratio", cfg.Stress.AlarmRatio,
	)

	report, err := Execute(ctx, q, cfg.Stress)

	if actor, actorErr := common.DetectActor(); actorErr == nil {
		report.Actor = actor.String()
	} else {
		logger.WarnKV(ctx, "Failed to detect actor", "error", actorErr)
	}

	if opts.HistoryFile != "" {
		repo := history.NewFileRepository(opts.HistoryFile)
		if appendErr := repo.Append(ctx, report.Record(time.Now(), err)); appendErr != nil {
			err = errors.Join(err, fmt.Errorf("record history: %w", appendErr))
		}
	}

	if err != nil {
		logger.ErrorKV(ctx, "Stress run failed", "error", err)

		return report, err
	}

	logger.InfoKV(ctx, "Stress run finished",
		"received", report.Received,
		"alarms", report.SentAlarms,
		"send_retries", report.SendRetries,
		"receive_retries", report.ReceiveRetries,
		"average_wait", report.Metrics.AverageWait().String(),
		"elapsed", report.Elapsed.String(),
	)

	return report, nil
}

// sentRecord is what a producer remembers about an accepted message.
type sentRecord struct {
	env    *Envelope
	digest uint64
}

// receivedRecord is what a consumer observed on delivery.
type receivedRecord struct {
	env    *Envelope
	kind   alarm.Kind
	digest uint64
}

// run is the shared state of one stress run.
type run struct {
	q        *queue.AlarmQueue
	settings config.Stress
	seed     uint64
	total    int64

	// sent and got are indexed by producer and consumer and written by their owner only.
	sent [][]sentRecord
	got  [][]receivedRecord

	received       atomic.Int64
	sendRetries    atomic.Uint64
	receiveRetries atomic.Uint64
	maxAlarms      atomic.Int64
	samples        atomic.Int64

	finished   chan struct{}
	finishOnce sync.Once
	finalSize  int
	finalErr   error

	destroyOnce sync.Once
	destroyErr  error
}

// Execute stresses q with the given settings, used as given, and destroys it afterwards.
// The queue is destroyed early when the deadline passes so that suspended parties return.
func Execute(ctx context.Context, q *queue.AlarmQueue, settings config.Stress) (*Report, error) {
	started := time.Now()

	r := &run{
		q:        q,
		settings: settings,
		seed:     settings.Seed,
		total:    int64(settings.Producers) * int64(settings.Messages),
		sent:     make([][]sentRecord, settings.Producers),
		got:      make([][]receivedRecord, settings.Consumers),
		finished: make(chan struct{}),
	}

	if r.seed == 0 {
		r.seed = rand.Uint64()
	}

	if r.total == 0 {
		r.finish()
	}

	if settings.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, settings.Timeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() {
		_ = r.destroy()
	})

	defer stop()

	for p := range settings.Producers {
		g.Go(func() error {
			return r.produce(gctx, p)
		})
	}

	for c := range settings.Consumers {
		g.Go(func() error {
			return r.consume(gctx, c)
		})
	}

	g.Go(func() error {
		return r.sample(gctx)
	})

	err := g.Wait()
	destroyErr := r.destroy()

	report := r.verify()
	report.Discipline = q.Discipline().String()
	report.Elapsed = time.Since(started)
	report.Metrics = q.Metrics()

	select {
	case <-r.finished:
	default:
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return report, fmt.Errorf("%w after %s: %d of %d messages received",
				ErrTimeout, settings.Timeout, report.Received, r.total)
		} else if ctxErr != nil {
			return report, fmt.Errorf("stress run interrupted: %w", ctxErr)
		}
	}

	switch {
	case err != nil:
		return report, err
	case r.finalErr != nil:
		return report, fmt.Errorf("final size: %w", r.finalErr)
	case destroyErr != nil:
		return report, fmt.Errorf("destroy queue: %w", destroyErr)
	}

	if problems := report.Problems(); len(problems) > 0 {
		return report, fmt.Errorf("%w: %v", ErrVerification, problems)
	}

	return report, nil
}

// produce sends this producer's share of messages, retrying refusals.
func (r *run) produce(ctx context.Context, producer int) error {
	//nolint:gosec // Reproducible kind selection, not security sensitive.
	rng := rand.New(rand.NewPCG(r.seed, uint64(producer)))

	records := make([]sentRecord, 0, r.settings.Messages)
	defer func() {
		r.sent[producer] = records
	}()

	for seq := range r.settings.Messages {
		kind := alarm.Normal
		if rng.Float64() < r.settings.AlarmRatio {
			kind = alarm.Alarm
		}

		env := newEnvelope(producer, seq, kind)
		digest := env.Digest()

		for {
			err := r.q.Send(env, kind)
			if err == nil {
				break
			}

			// The alarm slot or the arena is full; consumers will make room.
			if !errors.Is(err, queue.ErrNoRoom) {
				return fmt.Errorf("producer %d: send %s #%d: %w", producer, kind, seq, err)
			}

			if err := ctx.Err(); err != nil {
				return err
			}

			r.sendRetries.Add(1)
			runtime.Gosched()
		}

		records = append(records, sentRecord{env: env, digest: digest})
	}

	return nil
}

// consume receives messages until every expected message has been delivered.
func (r *run) consume(ctx context.Context, consumer int) error {
	var records []receivedRecord
	defer func() {
		r.got[consumer] = records
	}()

	for {
		kind, payload, err := r.q.Receive()

		switch {
		case err == nil:
		case errors.Is(err, queue.ErrNoMessage):
			if err := ctx.Err(); err != nil {
				return err
			}

			r.receiveRetries.Add(1)
			runtime.Gosched()

			continue
		case errors.Is(err, queue.ErrUninitializedQueue) && r.done():
			return nil
		default:
			return fmt.Errorf("consumer %d: receive: %w", consumer, err)
		}

		env, ok := payload.(*Envelope)
		if !ok {
			return fmt.Errorf("consumer %d: %w: %T", consumer, errForeignPayload, payload)
		}

		records = append(records, receivedRecord{env: env, kind: kind, digest: env.Digest()})

		if r.received.Add(1) == r.total {
			r.finish()
		}
	}
}

// sample polls the alarm count until the run ends.
func (r *run) sample(ctx context.Context) error {
	ticker := time.NewTicker(SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.finished:
			return nil
		case <-ticker.C:
		}

		alarms, err := r.q.Alarms()
		if errors.Is(err, queue.ErrUninitializedQueue) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("sample alarms: %w", err)
		}

		r.samples.Add(1)

		for {
			current := r.maxAlarms.Load()
			if int64(alarms) <= current || r.maxAlarms.CompareAndSwap(current, int64(alarms)) {
				break
			}
		}
	}
}

// finish records the final size and destroys the queue to release waiting consumers.
func (r *run) finish() {
	r.finishOnce.Do(func() {
		r.finalSize, r.finalErr = r.q.Size()
		close(r.finished)
		_ = r.destroy()
	})
}

// done reports whether every expected message was delivered.
func (r *run) done() bool {
	select {
	case <-r.finished:
		return true
	default:
		return false
	}
}

// destroy releases the queue once.
func (r *run) destroy() error {
	r.destroyOnce.Do(func() {
		r.destroyErr = r.q.Destroy()
	})

	return r.destroyErr
}
