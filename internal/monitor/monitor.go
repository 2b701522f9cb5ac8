// Package monitor samples host CPU and memory utilisation alongside an
// operation and persists one series per run.
//
// A Wrapper runs the operation a fixed number of times. For each run it starts
// a fresh Sampler on its own goroutine, runs the operation, then stops the
// sampler and waits for it to persist before moving on. The sampler is never
// tied to the operation's workers; it observes them from the side.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/clock/system"
	"github.com/JakeFAU/concurrent-sentiment/internal/logging"
	"github.com/JakeFAU/concurrent-sentiment/internal/metrics"
)

// MinInterval is the shortest sampling interval accepted.
const MinInterval = 500 * time.Millisecond

var (
	// ErrInvalidRuns is returned when fewer than one run is requested.
	ErrInvalidRuns = errors.New("runs must be at least 1")
	// ErrIntervalCount is returned when the interval list does not have one
	// entry per run.
	ErrIntervalCount = errors.New("need exactly one interval per run")
	// ErrIntervalTooShort is returned for intervals under MinInterval.
	ErrIntervalTooShort = errors.New("sampling interval too short")
)

// Operation is the unit of work being measured.
type Operation func(ctx context.Context) error

// Deps are the collaborators of a Wrapper. Zero values fall back to procfs,
// the system clock, no persistence and a no-op logger.
type Deps struct {
	NewProbe func() (Probe, error)
	Clock    Clock
	Writer   RecordWriter
	Logger   *zap.Logger
	JobID    string
}

// Wrapper measures an operation over a fixed number of runs.
type Wrapper struct {
	name      string
	runs      int
	intervals []time.Duration
	deps      Deps
	logger    *zap.Logger
}

// New validates the run configuration and returns a Wrapper.
func New(name string, runs int, intervals []time.Duration, deps Deps) (*Wrapper, error) {
	if runs < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRuns, runs)
	}
	if len(intervals) != runs {
		return nil, fmt.Errorf("%w: %d runs, %d intervals", ErrIntervalCount, runs, len(intervals))
	}
	for i, iv := range intervals {
		if iv < MinInterval {
			return nil, fmt.Errorf("%w: run %d interval %s < %s", ErrIntervalTooShort, i+1, iv, MinInterval)
		}
	}
	if deps.NewProbe == nil {
		deps.NewProbe = func() (Probe, error) { return NewProcfsProbe("") }
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	return &Wrapper{
		name:      name,
		runs:      runs,
		intervals: append([]time.Duration(nil), intervals...),
		deps:      deps,
		logger:    logging.OrNop(deps.Logger),
	}, nil
}

// Runs is the configured number of runs.
func (w *Wrapper) Runs() int { return w.runs }

// Run executes op once per configured run, strictly one after another. An
// error from op aborts the remaining runs.
func (w *Wrapper) Run(ctx context.Context, op Operation) error {
	for r := 1; r <= w.runs; r++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: stopped before run %d: %w", w.name, r, err)
		}
		if err := w.runOnce(ctx, r, op); err != nil {
			metrics.ObserveRun(w.name, "failed")
			return err
		}
		metrics.ObserveRun(w.name, "succeeded")
	}
	return nil
}

// Wrap returns op measured by w.
func (w *Wrapper) Wrap(op Operation) Operation {
	return func(ctx context.Context) error {
		return w.Run(ctx, op)
	}
}

type samplerResult struct {
	rec RunRecord
	err error
}

func (w *Wrapper) runOnce(ctx context.Context, run int, op Operation) (err error) {
	log := w.logger.With(zap.String("name", w.name), zap.Int("run", run))

	probe, err := w.deps.NewProbe()
	if err != nil {
		return fmt.Errorf("%s run %d: create probe: %w", w.name, run, err)
	}
	sampler := NewSampler(w.name, run, w.intervals[run-1], probe, w.deps.Clock, w.deps.Writer,
		w.logger.Named("sampler"), WithJobID(w.deps.JobID))

	samplerCtx, stop := context.WithCancel(ctx)
	done := make(chan samplerResult, 1)
	go func() {
		rec, err := sampler.Run(samplerCtx)
		done <- samplerResult{rec: rec, err: err}
	}()

	// Runs on every exit path, panics included.
	defer func() {
		stop()
		res := <-done
		if res.err != nil {
			log.Error("sampler failed", zap.Error(res.err))
			err = multierror.Append(err, fmt.Errorf("%s run %d: sampler: %w", w.name, run, res.err)).ErrorOrNil()
			return
		}
		if sum, sumErr := res.rec.Summary(); sumErr == nil {
			log.Info("run measured",
				zap.Float64("execution_time_seconds", sum.ExecutionTime),
				zap.Float64("avg_cpu_util", sum.AvgCPU),
				zap.Float64("avg_ram_util", sum.AvgRAM),
				zap.Int("samples", sum.Samples),
			)
		}
	}()

	log.Info("run started", zap.Duration("interval", w.intervals[run-1]))
	if err := op(ctx); err != nil {
		return fmt.Errorf("%s run %d: %w", w.name, run, err)
	}
	return nil
}
