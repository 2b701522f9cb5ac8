package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/executor"
	"github.com/JakeFAU/concurrent-sentiment/internal/results"
)

// ServeRange is the body of a worker process: it maps the parent's result
// buffer and scores spec.Range into it.
func ServeRange(ctx context.Context, spec WorkerSpec, p Pipeline, logger *zap.Logger) (err error) {
	if len(spec.URLs) != spec.Count {
		return fmt.Errorf("worker got %d urls, want %d", len(spec.URLs), spec.Count)
	}
	buf, err := results.OpenShared(spec.BufferPath, spec.Count)
	if err != nil {
		return fmt.Errorf("open result buffer: %w", err)
	}
	defer func() {
		if cerr := buf.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close result buffer: %w", cerr)
		}
	}()

	worker := executor.NewRangeWorker(spec.URLs, p.Fetcher, p.Extractor, p.Scorer, buf, logger)
	return worker.Run(ctx, spec.Range)
}
