// Package analysis runs one sentiment analysis job: it owns the result buffer,
// picks the worker backend and turns the final scores into output rows.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/config"
	"github.com/JakeFAU/concurrent-sentiment/internal/executor"
	"github.com/JakeFAU/concurrent-sentiment/internal/export"
	"github.com/JakeFAU/concurrent-sentiment/internal/logging"
	"github.com/JakeFAU/concurrent-sentiment/internal/partition"
	"github.com/JakeFAU/concurrent-sentiment/internal/results"
)

// ErrNoWorkerCommand is returned for process mode without a command builder.
var ErrNoWorkerCommand = errors.New("process mode needs a worker command")

// WorkerSpec is everything a worker process needs to score one range.
type WorkerSpec struct {
	JobID      string
	Range      partition.Range
	BufferPath string
	Count      int
	URLs       []string
}

// WorkerCommand builds the child process for spec. The command must be bound
// to ctx.
type WorkerCommand func(ctx context.Context, spec WorkerSpec) (*exec.Cmd, error)

// Pipeline is the per-item processing chain.
type Pipeline struct {
	Fetcher   executor.Fetcher
	Extractor executor.Extractor
	Scorer    executor.Scorer
}

// Options configure a Job.
type Options struct {
	Mode             string
	Workers          int
	MinLoadPerWorker int
	BufferDir        string
	WorkerCommand    WorkerCommand
}

// Job is one analysis over a fixed URL list. It may be run repeatedly; every
// run rewrites the same result slots.
type Job struct {
	ID     string
	urls   []string
	sink   results.Sink
	shared *results.Shared
	exec   *executor.Executor
	logger *zap.Logger
}

// New allocates the result buffer and the executor for the configured mode.
func New(id string, urls []string, p Pipeline, opts Options, logger *zap.Logger) (*Job, error) {
	logger = logging.OrNop(logger).With(zap.String("job_id", id))
	j := &Job{ID: id, urls: urls, logger: logger}
	execCfg := executor.Config{
		Workers:          opts.Workers,
		MinLoadPerWorker: opts.MinLoadPerWorker,
		Mode:             opts.Mode,
	}

	var spawner executor.Spawner
	switch opts.Mode {
	case config.ModeThread, "":
		execCfg.Mode = config.ModeThread
		j.sink = results.NewMemory(len(urls))
		worker := executor.NewRangeWorker(urls, p.Fetcher, p.Extractor, p.Scorer, j.sink, logger.Named("worker"))
		spawner = executor.ThreadSpawner{Work: worker.Run}
		j.exec = executor.New(spawner, worker.Run, execCfg, logger.Named("executor"))
	case config.ModeProcess:
		if opts.WorkerCommand == nil {
			return nil, ErrNoWorkerCommand
		}
		shared, err := results.CreateShared(opts.BufferDir, len(urls))
		if err != nil {
			return nil, fmt.Errorf("allocate result buffer: %w", err)
		}
		j.sink, j.shared = shared, shared
		worker := executor.NewRangeWorker(urls, p.Fetcher, p.Extractor, p.Scorer, shared, logger.Named("worker"))
		spawner = executor.ProcessSpawner{Command: func(ctx context.Context, r partition.Range) (*exec.Cmd, error) {
			return opts.WorkerCommand(ctx, WorkerSpec{
				JobID:      id,
				Range:      r,
				BufferPath: shared.Path(),
				Count:      len(urls),
				URLs:       urls,
			})
		}}
		j.exec = executor.New(spawner, worker.Run, execCfg, logger.Named("executor"))
	default:
		return nil, fmt.Errorf("unknown execution mode %q", opts.Mode)
	}
	return j, nil
}

// Run scores every URL and blocks until all workers have finished.
func (j *Job) Run(ctx context.Context) error {
	report, err := j.exec.Start(ctx, len(j.urls))
	if err != nil {
		return err
	}
	j.logger.Info("analysis finished",
		zap.Int("items", len(j.urls)),
		zap.Bool("inline", report.Inline),
		zap.Int("workers", report.Spawned),
		zap.Duration("duration", report.Duration),
	)
	return nil
}

// Scores returns a copy of the result buffer.
func (j *Job) Scores() []int32 {
	return results.Snapshot(j.sink)
}

// Rows pairs the URLs with their sentiment labels in input order.
func (j *Job) Rows() ([]export.Row, error) {
	return export.Rows(j.urls, j.Scores())
}

// Close releases the shared buffer, if any.
func (j *Job) Close() error {
	if j.shared == nil {
		return nil
	}
	return j.shared.Close()
}
