package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/analysis"
	"github.com/JakeFAU/concurrent-sentiment/internal/export"
	"github.com/JakeFAU/concurrent-sentiment/internal/monitor"
)

// AnalyzeRequest describes one monitored analysis.
type AnalyzeRequest struct {
	URLs     []string
	Pipeline analysis.Pipeline
	// WorkerCommand starts worker processes in process mode.
	WorkerCommand analysis.WorkerCommand
}

// Outcome summarises a finished analysis.
type Outcome struct {
	JobID        string
	Rows         []export.Row
	SentimentURI string
}

// Analyze runs the job under the resource monitor for the configured number
// of runs, then writes the sentiment table.
func (a *App) Analyze(ctx context.Context, req AnalyzeRequest) (Outcome, error) {
	jobID, err := a.ids.NewID()
	if err != nil {
		return Outcome{}, err
	}
	log := a.logger.With(zap.String("job_id", jobID))

	wrapper, err := monitor.New(a.cfg.Monitor.Name, a.cfg.Monitor.Runs, a.cfg.Intervals(), monitor.Deps{
		NewProbe: a.NewProbe,
		Writer:   a.RecordWriter(),
		Logger:   log.Named("monitor"),
		JobID:    jobID,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("configure monitor: %w", err)
	}

	job, err := analysis.New(jobID, req.URLs, req.Pipeline, analysis.Options{
		Mode:             a.cfg.Executor.Mode,
		Workers:          a.cfg.Executor.Workers,
		MinLoadPerWorker: a.cfg.Executor.MinLoadPerWorker,
		BufferDir:        a.cfg.Executor.BufferDir,
		WorkerCommand:    req.WorkerCommand,
	}, log)
	if err != nil {
		return Outcome{}, err
	}
	defer func() {
		if cerr := job.Close(); cerr != nil {
			log.Warn("release job buffer", zap.Error(cerr))
		}
	}()

	log.Info("analysis starting",
		zap.Int("urls", len(req.URLs)),
		zap.String("mode", a.cfg.Executor.Mode),
		zap.Int("workers", a.cfg.Executor.Workers),
		zap.Int("runs", wrapper.Runs()),
	)
	a.server.SetReady(true)
	defer a.server.SetReady(false)

	if err := wrapper.Wrap(job.Run)(ctx); err != nil {
		return Outcome{JobID: jobID}, err
	}

	rows, err := job.Rows()
	if err != nil {
		return Outcome{JobID: jobID}, err
	}
	uri, err := export.Save(ctx, a.blobs, a.cfg.Output.SentimentObject, rows)
	if err != nil {
		return Outcome{JobID: jobID}, fmt.Errorf("export sentiments: %w", err)
	}
	log.Info("sentiments written", zap.String("uri", uri), zap.Int("rows", len(rows)))
	return Outcome{JobID: jobID, Rows: rows, SentimentURI: uri}, nil
}
