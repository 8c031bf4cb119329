package demo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/alarm-queue/internal/config"
	"github.com/oshokin/alarm-queue/internal/domain/alarm"
	"github.com/oshokin/alarm-queue/internal/logger"
	"github.com/oshokin/alarm-queue/internal/queue"
	"github.com/oshokin/alarm-queue/internal/service/common"
)

// Part names used in deliveries and logs.
const (
	PartProducerConsumer = "producer-consumer"
	PartBlockingAlarm    = "blocking-alarm"
	PartFIFO             = "fifo"
)

// DefaultPause is the delay used to steer the goroutines.
const DefaultPause = 500 * time.Millisecond

// Options controls the demonstration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Pause is the scheduling delay between steps.
	Pause time.Duration
}

// Delivery is one message handed out by the queue.
type Delivery struct {
	alarm.Message

	Part string
}

// Report summarises a demonstration run.
type Report struct {
	// Deliveries lists received messages in order, per part.
	Deliveries []Delivery
	// AlarmWait is how long the second alarm sender stayed suspended.
	AlarmWait time.Duration
	// FinalSize is the queue size after the last part.
	FinalSize int
}

// Part returns the deliveries of one part.
func (r *Report) Part(name string) []Delivery {
	var out []Delivery

	for _, d := range r.Deliveries {
		if d.Part == name {
			out = append(out, d)
		}
	}

	return out
}

// Run builds a blocking queue from the configuration and plays the demonstration.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	ctx = logger.WithName(ctx, "demo")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	// The demonstration relies on suspension, whatever the configured discipline.
	q, err := common.NewQueue(cfg, queue.WithDiscipline(queue.Blocking))
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "Queue created successfully")

	return Execute(ctx, q, opts.Pause)
}

// Execute plays the demonstration on q and destroys it afterwards.
// Cancelling ctx destroys the queue early so that suspended goroutines return.
func Execute(ctx context.Context, q *queue.AlarmQueue, pause time.Duration) (*Report, error) {
	if pause <= 0 {
		pause = DefaultPause
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	d := &demo{
		q:      q,
		pause:  pause,
		abort:  cancel,
		report: new(Report),
	}

	// Suspended parties only return once the queue is gone.
	destroyed := make(chan error, 1)
	stop := context.AfterFunc(runCtx, func() {
		destroyed <- q.Destroy()
	})

	parts := []struct {
		name string
		run  func(context.Context) error
	}{
		{name: PartProducerConsumer, run: d.producerConsumer},
		{name: PartBlockingAlarm, run: d.blockingAlarm},
		{name: PartFIFO, run: d.fifo},
	}

	var err error

	for _, part := range parts {
		logger.InfoKV(ctx, "Running part", "part", part.name)

		if err = part.run(logger.WithKV(runCtx, "part", part.name)); err != nil {
			err = fmt.Errorf("%s: %w", part.name, err)

			break
		}
	}

	if err == nil {
		d.report.FinalSize, err = q.Size()
		logger.InfoKV(ctx, "Demonstration finished", "size", d.report.FinalSize)
	}

	if stop() {
		return d.report, errors.Join(err, q.Destroy())
	}

	if cause := context.Cause(runCtx); !errors.Is(err, cause) {
		err = errors.Join(cause, err)
	}

	return d.report, errors.Join(err, <-destroyed)
}

// demo holds the state shared by the parts.
type demo struct {
	q     *queue.AlarmQueue
	pause time.Duration
	// abort cancels the run when a goroutine fails.
	abort context.CancelCauseFunc

	mu     sync.Mutex
	report *Report
}

// spawn runs fn in g and aborts the whole run if it fails.
func (d *demo) spawn(g *errgroup.Group, fn func() error) {
	g.Go(func() error {
		err := fn()
		if err != nil {
			d.abort(err)
		}

		return err
	})
}

// receive takes one message and records it.
func (d *demo) receive(ctx context.Context, part, who string) error {
	msg, err := d.q.ReceiveMessage()
	if err != nil {
		return fmt.Errorf("%s: receive: %w", who, err)
	}

	logger.InfoKV(ctx, "Received message", "by", who, "kind", msg.Kind, "payload", msg.Payload)

	d.mu.Lock()
	d.report.Deliveries = append(d.report.Deliveries, Delivery{Message: *msg, Part: part})
	d.mu.Unlock()

	return nil
}

// send hands one message to the queue.
func (d *demo) send(ctx context.Context, who string, payload any, kind alarm.Kind) error {
	if err := d.q.Send(payload, kind); err != nil {
		return fmt.Errorf("%s: send %s: %w", who, kind, err)
	}

	logger.InfoKV(ctx, "Sent message", "by", who, "kind", kind, "payload", payload)

	return nil
}

// producerConsumer starts a consumer that waits on the empty queue for a slow producer.
func (d *demo) producerConsumer(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	d.spawn(g, func() error {
		if err := sleep(gctx, d.pause); err != nil {
			return err
		}

		if err := d.send(ctx, "producer", 1, alarm.Normal); err != nil {
			return err
		}

		if err := sleep(gctx, d.pause); err != nil {
			return err
		}

		for _, payload := range []int{2, 3} {
			if err := d.send(ctx, "producer", payload, alarm.Normal); err != nil {
				return err
			}
		}

		return nil
	})

	d.spawn(g, func() error {
		for range 3 {
			if err := d.receive(ctx, PartProducerConsumer, "consumer"); err != nil {
				return err
			}
		}

		return nil
	})

	return g.Wait()
}

// blockingAlarm shows a second alarm sender suspended until the slot is freed.
func (d *demo) blockingAlarm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	d.spawn(g, func() error {
		logger.Info(ctx, "Thread A: sending first alarm")

		return d.send(ctx, "thread A", "Alarm1", alarm.Alarm)
	})

	d.spawn(g, func() error {
		if err := sleep(gctx, d.pause); err != nil {
			return err
		}

		logger.Info(ctx, "Thread B: attempting to send second alarm")

		started := time.Now()
		if err := d.send(ctx, "thread B", "Alarm2", alarm.Alarm); err != nil {
			return err
		}

		wait := time.Since(started)

		d.mu.Lock()
		d.report.AlarmWait = wait
		d.mu.Unlock()

		logger.InfoKV(ctx, "Thread B: unblocked", "waited", wait.String())

		return nil
	})

	d.spawn(g, func() error {
		if err := sleep(gctx, 2*d.pause); err != nil {
			return err
		}

		return d.receive(ctx, PartBlockingAlarm, "thread C")
	})

	if err := g.Wait(); err != nil {
		return err
	}

	// The second alarm is still outstanding.
	return d.receive(ctx, PartBlockingAlarm, "drain")
}

// fifo sends a burst of normal messages and drains them later.
func (d *demo) fifo(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	d.spawn(g, func() error {
		for _, payload := range []string{"Message 1", "Message 2", "Message 3"} {
			if err := d.send(ctx, "thread X", payload, alarm.Normal); err != nil {
				return err
			}
		}

		return nil
	})

	d.spawn(g, func() error {
		if err := sleep(gctx, d.pause); err != nil {
			return err
		}

		for range 3 {
			if err := d.receive(ctx, PartFIFO, "thread Y"); err != nil {
				return err
			}
		}

		return nil
	})

	return g.Wait()
}

// sleep pauses for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
