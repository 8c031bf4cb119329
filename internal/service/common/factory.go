//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"

	"github.com/oshokin/alarm-queue/internal/allocator"
	"github.com/oshokin/alarm-queue/internal/config"
	"github.com/oshokin/alarm-queue/internal/logger"
	"github.com/oshokin/alarm-queue/internal/queue"
)

// QueueComponent is the logger name used by queues built here.
const QueueComponent = "alarm-queue"

// errConfigRequired is returned when no configuration is supplied.
var errConfigRequired = errors.New("configuration must be provided")

// NewAllocator returns the allocator selected by cfg:
// a bounded Heap arena when ArenaSize is set, the unbounded Runtime otherwise.
func NewAllocator(cfg *config.Config) (allocator.Allocator, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	if cfg.ArenaSize == 0 {
		return allocator.NewRuntime(), nil
	}

	heap, err := allocator.NewHeap(cfg.ArenaSize)
	if err != nil {
		return nil, fmt.Errorf("create arena: %w", err)
	}

	return heap, nil
}

// NewQueue creates a queue configured from cfg.
// Options in opts are applied last and override the configuration.
func NewQueue(cfg *config.Config, opts ...queue.Option) (*queue.AlarmQueue, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}

	alloc, err := NewAllocator(cfg)
	if err != nil {
		return nil, err
	}

	level, ok := logger.ParseLogLevel(cfg.QueueLogLevel)
	if !ok {
		level, _ = logger.ParseLogLevel(config.DefaultQueueLogLevel)
	}

	base := []queue.Option{
		queue.WithDiscipline(cfg.QueueDiscipline()),
		queue.WithAllocator(alloc),
		queue.WithLogger(logger.ForComponent(QueueComponent, level)),
	}

	q, err := queue.New(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("build queue: %w", err)
	}

	return q, nil
}
