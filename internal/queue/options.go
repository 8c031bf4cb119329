package queue

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/alarm-queue/internal/allocator"
	"github.com/oshokin/alarm-queue/internal/logger"
	"github.com/oshokin/alarm-queue/internal/telemetry"
)

// loggerName names the component logger of a queue.
const loggerName = "alarm-queue"

// options collects the settings applied by New.
type options struct {
	// discipline is fixed for the lifetime of the queue.
	discipline Discipline
	// allocator provides the state block and one block per normal message.
	allocator allocator.Allocator
	// log receives lifecycle and failure events.
	log *zap.SugaredLogger
	// metrics receives operation counters.
	metrics *telemetry.QueueMetrics
}

// Option configures a queue.
type Option func(*options)

// WithDiscipline selects the blocking or non-blocking discipline.
func WithDiscipline(d Discipline) Option {
	return func(o *options) {
		o.discipline = d
	}
}

// WithAllocator sets the storage allocator. A nil allocator is ignored.
func WithAllocator(a allocator.Allocator) Option {
	return func(o *options) {
		if a != nil {
			o.allocator = a
		}
	}
}

// WithLogger sets the queue logger. A nil logger is ignored.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics makes the queue count into m, which may be shared between queues.
func WithMetrics(m *telemetry.QueueMetrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// defaultOptions returns a blocking queue on the runtime allocator that logs
// warnings and above.
func defaultOptions() options {
	return options{
		discipline: Blocking,
		allocator:  allocator.NewRuntime(),
		log:        logger.ForComponent(loggerName, zapcore.WarnLevel),
		metrics:    new(telemetry.QueueMetrics),
	}
}
