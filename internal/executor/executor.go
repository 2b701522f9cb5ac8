// Package executor splits a job into ranges and runs one worker per range,
// either on goroutines or in separate processes, joining them all before
// reporting completion.
package executor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/concurrent-sentiment/internal/logging"
	"github.com/JakeFAU/concurrent-sentiment/internal/metrics"
	"github.com/JakeFAU/concurrent-sentiment/internal/partition"
)

// DefaultMinLoadPerWorker is the per-worker item count below which a job runs
// inline on the caller.
const DefaultMinLoadPerWorker = 4

// Config controls partitioning.
type Config struct {
	Workers          int
	MinLoadPerWorker int
	// Mode labels metrics and logs ("thread", "process").
	Mode string
}

// Report describes how a job was executed.
type Report struct {
	Ranges   []partition.Range
	Inline   bool
	Spawned  int
	Duration time.Duration
}

// Executor partitions jobs and joins their workers.
type Executor struct {
	spawner Spawner
	inline  WorkFunc
	cfg     Config
	logger  *zap.Logger
}

// New constructs an Executor. inline runs the whole job on the calling
// goroutine when the load per worker is under cfg.MinLoadPerWorker.
func New(spawner Spawner, inline WorkFunc, cfg Config, logger *zap.Logger) *Executor {
	return &Executor{
		spawner: spawner,
		inline:  inline,
		cfg:     cfg,
		logger:  logging.OrNop(logger),
	}
}

// Start runs a job of n items and blocks until every worker has finished or
// one has failed. The first failure cancels the remaining workers and is
// returned.
func (e *Executor) Start(ctx context.Context, n int) (Report, error) {
	started := time.Now()
	report, err := e.start(ctx, n)
	report.Duration = time.Since(started)

	status := "succeeded"
	if err != nil {
		status = "failed"
	}
	metrics.ObserveJob(e.cfg.Mode, status, report.Duration)
	return report, err
}

func (e *Executor) start(ctx context.Context, n int) (Report, error) {
	layout, err := partition.Plan(n, e.cfg.Workers, e.cfg.MinLoadPerWorker)
	if err != nil {
		return Report{}, fmt.Errorf("plan job: %w", err)
	}
	report := Report{Ranges: layout.Ranges, Inline: layout.Inline}

	if layout.Inline {
		e.logger.Info("load below per-worker floor; running inline",
			zap.Int("items", n),
			zap.Int("workers", e.cfg.Workers),
			zap.Int("min_load_per_worker", e.cfg.MinLoadPerWorker),
		)
		if err := e.inline(ctx, layout.Ranges[0]); err != nil {
			return report, fmt.Errorf("inline range %s: %w", layout.Ranges[0], err)
		}
		return report, nil
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(jobCtx)

	for idx, r := range layout.Ranges {
		if r.Len() == 0 {
			continue
		}
		if gctx.Err() != nil {
			// A running worker failed or the caller gave up; the join reports why.
			return report, e.abort(ctx, gctx, g, cancel, idx, gctx.Err())
		}
		h, err := e.spawner.Spawn(gctx, r)
		if err != nil {
			return report, e.abort(ctx, gctx, g, cancel, idx, err)
		}
		report.Spawned++
		e.logger.Debug("worker spawned", zap.Int("worker", idx), zap.Stringer("range", r))
		g.Go(func() error {
			if err := h.Wait(); err != nil {
				return fmt.Errorf("worker %d: %w", idx, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.Error("job aborted", zap.Int("items", n), zap.Error(err))
		return report, err
	}
	e.logger.Info("job finished", zap.Int("items", n), zap.Int("workers", report.Spawned))
	return report, nil
}

// abort stops spawning at worker idx, cancels and joins the workers already
// running. When a worker failure is what cancelled gctx, that failure is
// returned instead of the spawn error it caused.
func (e *Executor) abort(
	ctx, gctx context.Context,
	g *errgroup.Group,
	cancel context.CancelFunc,
	idx int,
	spawnErr error,
) error {
	workerFailed := gctx.Err() != nil && ctx.Err() == nil
	cancel()
	err := g.Wait()
	if workerFailed && err != nil {
		e.logger.Error("job aborted", zap.Int("worker", idx), zap.Error(err))
		return err
	}
	return fmt.Errorf("spawn worker %d: %w", idx, spawnErr)
}
