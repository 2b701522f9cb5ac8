package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/concurrent-sentiment/internal/analysis"
	"github.com/JakeFAU/concurrent-sentiment/internal/input"
)

func newWorkerCmd() *cobra.Command {
	var spec analysis.WorkerSpec
	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Score one range into a shared result buffer",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := resolveState(cmd.Context())
			if err != nil {
				return err
			}
			defer st.release()
			urls, err := input.ReadLines(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read urls from stdin: %w", err)
			}
			spec.URLs = urls
			return runWorker(cmd, st, spec)
		},
	}
	cmd.Flags().StringVar(&spec.JobID, "job-id", "", "parent job id")
	cmd.Flags().IntVar(&spec.Range.Start, "start", 0, "first index, inclusive")
	cmd.Flags().IntVar(&spec.Range.End, "end", 0, "last index, inclusive")
	cmd.Flags().StringVar(&spec.BufferPath, "buffer", "", "path of the shared result buffer")
	cmd.Flags().IntVar(&spec.Count, "count", 0, "total number of urls")
	_ = cmd.MarkFlagRequired("buffer")
	_ = cmd.MarkFlagRequired("count")
	return cmd
}

func runWorker(cmd *cobra.Command, st *state, spec analysis.WorkerSpec) error {
	log := st.logger.With(
		zap.String("job_id", spec.JobID),
		zap.Stringer("range", spec.Range),
	)
	pipeline, closePipeline, err := pipelineFactory(st.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closePipeline(); cerr != nil {
			log.Warn("close fetcher", zap.Error(cerr))
		}
	}()

	if err := analysis.ServeRange(cmd.Context(), spec, pipeline, log); err != nil {
		return err
	}
	log.Debug("range scored")
	return nil
}
