package scenario

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/oshokin/alarm-queue/internal/config"
	"github.com/oshokin/alarm-queue/internal/logger"
	"github.com/oshokin/alarm-queue/internal/queue"
	"github.com/oshokin/alarm-queue/internal/service/common"
)

// Options controls the scenario run.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Discipline optionally overrides the configured discipline.
	Discipline string
}

// Step is the outcome of one scripted action.
type Step struct {
	// Name describes the action and its expectation.
	Name string
	// Err is nil when the step passed.
	Err error
}

// Passed reports whether the step met its expectation.
func (s Step) Passed() bool {
	return s.Err == nil
}

// Result is the outcome of a whole run.
type Result struct {
	Discipline queue.Discipline
	Steps      []Step
}

// Failed returns the number of failed steps.
func (r *Result) Failed() int {
	var failed int

	for _, s := range r.Steps {
		if !s.Passed() {
			failed++
		}
	}

	return failed
}

// ErrScenarioFailed is returned when at least one step failed.
var ErrScenarioFailed = errors.New("scenario failed")

// Run loads the configuration, builds a fresh queue and plays the script for its discipline.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "scenario")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.Discipline != "" {
		cfg.Discipline = opts.Discipline
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}

	q, err := common.NewQueue(cfg)
	if err != nil {
		return nil, err
	}

	result, err := Execute(ctx, q)
	err = multierr.Append(err, q.Destroy())

	return result, err
}

// Execute plays the script on q and logs every step.
// The queue is expected to be empty and is left empty when every step passes.
func Execute(ctx context.Context, q *queue.AlarmQueue) (*Result, error) {
	result := &Result{Discipline: q.Discipline()}

	logger.InfoKV(ctx, "Running scenario", "discipline", result.Discipline)

	for _, s := range script(result.Discipline) {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("scenario interrupted: %w", err)
		}

		err := s.run(q)
		result.Steps = append(result.Steps, Step{Name: s.name, Err: err})

		if err != nil {
			logger.ErrorKV(ctx, "FAIL", "step", s.name, "error", err)

			// Later receives could wait forever on a blocking queue left in an unexpected state.
			if result.Discipline == queue.Blocking {
				break
			}

			continue
		}

		logger.InfoKV(ctx, "PASS", "step", s.name)
	}

	if failed := result.Failed(); failed > 0 {
		return result, fmt.Errorf("%w: %d of %d steps", ErrScenarioFailed, failed, len(result.Steps))
	}

	return result, nil
}
